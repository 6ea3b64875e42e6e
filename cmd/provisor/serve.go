package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmcnally/provisor/internal/api"
	"github.com/jmcnally/provisor/internal/audit"
	"github.com/jmcnally/provisor/internal/config"
	"github.com/jmcnally/provisor/internal/crypto"
	"github.com/jmcnally/provisor/internal/directory"
	"github.com/jmcnally/provisor/internal/fieldcfg"
	"github.com/jmcnally/provisor/internal/linkmap"
	"github.com/jmcnally/provisor/internal/metrics"
	"github.com/jmcnally/provisor/internal/operator"
	"github.com/jmcnally/provisor/internal/ratelimit"
	"github.com/jmcnally/provisor/internal/staging"
	"github.com/jmcnally/provisor/internal/tenant"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Provisor console server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	cipher, err := crypto.NewCipher(cfg.CredentialKey)
	if err != nil {
		return err
	}
	if cipher == nil {
		slog.Warn("credential encryption disabled; directory tokens stored in plaintext")
	}

	m := metrics.New()
	m.RegisterDBPoolCollector(func() (total, idle, acquired int32) {
		st := pool.Stat()
		return st.TotalConns(), st.IdleConns(), st.AcquiredConns()
	})

	fieldStore := fieldcfg.NewStore(pool)
	fieldStore.OnParseFallback = func(tenantSlug string, key fieldcfg.FieldKey) {
		m.IncParseFallback(string(key))
	}
	mappingStore := linkmap.NewStore(pool)
	tenantStore := tenant.NewStore(pool, cipher)
	operatorStore := operator.NewStore(pool)

	auditStore := audit.NewStore(pool)
	collector := audit.NewCollector(auditStore, cfg.Audit.BatchSize, cfg.Audit.FlushInterval)
	collector.OnRecord = func(buffered int) {
		m.AuditEventsTotal.Inc()
		m.AuditBufferSize.Set(float64(buffered))
	}
	collector.OnFlush = func(count int, took time.Duration, err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.AuditFlushesTotal.WithLabelValues(status).Inc()
		m.AuditFlushDuration.Observe(took.Seconds())
		m.AuditBufferSize.Set(float64(collector.BufferLen()))
	}
	go collector.Start(ctx)

	sessions := staging.NewManager(fieldStore, cfg.Sessions.IdleTTL)
	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)
	dirClient := directory.NewClient(cfg.Directory.Timeout, cfg.Directory.MaxResponseSize)

	// Reap expired operator sessions in the background.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := operatorStore.CleanExpiredSessions(ctx); err == nil && n > 0 {
					slog.Info("cleaned expired operator sessions", "count", n)
				}
			}
		}
	}()

	router := api.NewRouter(api.RouterDeps{
		FieldConfigs: fieldStore,
		Mappings:     mappingStore,
		Tenants:      tenantStore,
		Operators:    operatorStore,
		Sessions:     sessions,
		Directory:    dirClient,
		AuditStore:   auditStore,
		Collector:    collector,
		Limiter:      limiter,
		Metrics:      m,
		AdminKey:     cfg.AdminKey,
		CORSOrigins:  cfg.CORS.AllowedOrigins,
		Version:      version,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	collector.Stop()

	return srv.Shutdown(shutdownCtx)
}
