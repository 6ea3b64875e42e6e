package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmcnally/provisor/internal/config"
	"github.com/jmcnally/provisor/internal/crypto"
	"github.com/jmcnally/provisor/internal/fieldcfg"
	"github.com/jmcnally/provisor/internal/linkmap"
	"github.com/jmcnally/provisor/internal/operator"
	"github.com/jmcnally/provisor/internal/tenant"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a demo tenant with field configs, mappings, and an admin operator",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoMappings = map[linkmap.Family][]linkmap.Mapping{
	linkmap.DepartmentApps: {
		{SourceValue: "Engineering", TargetName: "GitHub"},
		{SourceValue: "Engineering", TargetName: "PagerDuty"},
		{SourceValue: "Sales", TargetName: "Salesforce"},
		{SourceValue: "Marketing", TargetName: "Mailchimp"},
	},
	linkmap.DepartmentGroups: {
		{SourceValue: "Engineering", TargetName: "eng-all"},
		{SourceValue: "Sales", TargetName: "sales-all"},
	},
	linkmap.EmployeeTypeApps: {
		{SourceValue: "Full-Time", TargetName: "Slack"},
		{SourceValue: "Contractor", TargetName: "Slack"},
	},
	linkmap.EmployeeTypeGroups: {
		{SourceValue: "Full-Time", TargetName: "staff"},
		{SourceValue: "Contractor", TargetName: "contractors"},
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	cipher, err := crypto.NewCipher(cfg.CredentialKey)
	if err != nil {
		return err
	}

	tenantStore := tenant.NewStore(pool, cipher)
	fieldStore := fieldcfg.NewStore(pool)
	mappingStore := linkmap.NewStore(pool)
	operatorStore := operator.NewStore(pool)

	// Check if seed has already run.
	existing, err := tenantStore.List(ctx)
	if err != nil {
		return fmt.Errorf("checking existing tenants: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	t, err := tenantStore.Create(ctx, tenant.CreateTenantInput{
		Slug:           "acme",
		Name:           "Acme Corp",
		DirectoryURL:   "https://directory.acme.example.com",
		DirectoryToken: "demo-directory-token",
	})
	if err != nil {
		return fmt.Errorf("creating demo tenant: %w", err)
	}
	slog.Info("created tenant", "slug", t.Slug, "name", t.Name)

	// Customize a few fields away from their defaults so the demo shows
	// linkage and policy behavior.
	department := &fieldcfg.SelectConfig{
		Required:   true,
		UseList:    true,
		Options:    []string{"Engineering", "Sales", "Marketing"},
		LinkApps:   true,
		LinkGroups: true,
	}
	if err := fieldStore.Save(ctx, t.Slug, fieldcfg.KeyDepartment, department); err != nil {
		return fmt.Errorf("saving department config: %w", err)
	}

	employeeType := &fieldcfg.SelectConfig{
		Required:   true,
		UseList:    true,
		Options:    []string{"Full-Time", "Contractor"},
		LinkApps:   true,
		LinkGroups: true,
	}
	if err := fieldStore.Save(ctx, t.Slug, fieldcfg.KeyEmployeeType, employeeType); err != nil {
		return fmt.Errorf("saving employee type config: %w", err)
	}

	email := &fieldcfg.EmailConfig{
		Required: true,
		Domains:  []string{"acme.example.com", "acme-corp.example.com"},
	}
	if err := fieldStore.Save(ctx, t.Slug, fieldcfg.KeyEmailUsername, email); err != nil {
		return fmt.Errorf("saving email config: %w", err)
	}

	for family, mappings := range demoMappings {
		if err := mappingStore.ReplaceFamily(ctx, t.Slug, family, mappings); err != nil {
			return fmt.Errorf("seeding %s mappings: %w", family, err)
		}
		slog.Info("seeded mappings", "family", family, "count", len(mappings))
	}

	adminPassword, err := randomPassword()
	if err != nil {
		return fmt.Errorf("generating admin password: %w", err)
	}
	op, err := operatorStore.Create(ctx, operator.CreateOperatorInput{
		Email:    "admin@acme.example.com",
		Password: adminPassword,
		Name:     "Demo Admin",
		Role:     "admin",
	})
	if err != nil {
		return fmt.Errorf("creating admin operator: %w", err)
	}

	slog.Info("created admin operator", "id", op.ID, "email", op.Email)
	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Tenant:    %s (%s)\n", t.Name, t.Slug)
	fmt.Printf("Operator:  %s\n", op.Email)
	fmt.Printf("Password:  %s\n", adminPassword)
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -X POST -d '{\"email\":\"%s\",\"password\":\"%s\"}' http://localhost:8080/api/v1/auth/login\n", op.Email, adminPassword)
	fmt.Printf("  curl -H 'Authorization: Bearer <token>' http://localhost:8080/api/v1/tenants/%s/field-configs\n", t.Slug)

	return nil
}

func randomPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
