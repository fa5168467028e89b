package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	pagehandler "github.com/sjaconsulting/static-page-handler"
	"github.com/sjaconsulting/static-page-handler/config"
	"github.com/sjaconsulting/static-page-handler/database"
	"github.com/sjaconsulting/static-page-handler/filesystem"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the metadata database from storage files",
	Long: `Scan the storage directory and populate the metadata database
with entries for all existing files. This is useful when:
  - Setting up pagehost with existing files
  - Recovering metadata after database loss
  - Migrating from another storage system`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()

	if _, err = os.Stat(cfg.Storage.Path); os.IsNotExist(err) {
		return fmt.Errorf("storage directory does not exist: %s", cfg.Storage.Path)
	}

	root, err := os.OpenRoot(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open storage root: %w", err)
	}
	defer func() { _ = root.Close() }()

	storage := filesystem.NewFileStorage(root)

	service, err := pagehandler.NewService(repo, storage, pagehandler.ServiceConfig{})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	synced, err := service.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync metadata: %w", err)
	}

	slog.Info("metadata sync complete", "objects", synced)
	return nil
}
