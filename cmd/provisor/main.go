package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "provisor",
	Short: "Provisor — Identity Provisioning Console",
	Long:  "Provisor is a multi-tenant console for administering user provisioning: per-field form configuration, attribute-linked app and group selection, password policies, and submission to each tenant's directory service.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/provisor.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
