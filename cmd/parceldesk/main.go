package main

import (
	"os"

	"github.com/spf13/cobra"

	"parceldesk/internal/interfaces/cli/migrate"
	"parceldesk/internal/interfaces/cli/seed"
	"parceldesk/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "parceldesk",
		Short: "ParcelDesk - courier customer-service dashboard backend",
		Long:  `ParcelDesk serves the support dashboard: ticket management, notification delivery monitoring and realtime updates over websocket.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		seed.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
