package main

import (
	"os"

	"github.com/spf13/cobra"

	"tollgate/internal/interfaces/cli/reconcile"
	"tollgate/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tollgate",
		Short: "Tollgate - plan lifecycle and quota enforcement engine",
		Long:  `Tollgate manages subscription plan lifecycles, quota enforcement and invoice emission for multi-tenant billing.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		reconcile.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
