package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sjaconsulting/static-page-handler/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "pagehost",
	Short:   "Multi-domain static content server backed by shared object storage",
	Long: `Pagehost routes each request's hostname and path through a static
route table to a key in a shared storage backend. Reads are gated by an
exact-path allow list, writes and deletes by a shared-secret header.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path(s), later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (env: PAGEHOST_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: PAGEHOST_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory path (env: PAGEHOST_STORAGE_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
