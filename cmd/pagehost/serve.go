package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	pagehandler "github.com/sjaconsulting/static-page-handler"
	"github.com/sjaconsulting/static-page-handler/config"
	"github.com/sjaconsulting/static-page-handler/database"
	"github.com/sjaconsulting/static-page-handler/filesystem"
	handlerhttp "github.com/sjaconsulting/static-page-handler/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the pagehost HTTP server.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8972, "HTTP server port")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cfg, err := config.FromContext(ctx)
	if err != nil {
		return err
	}

	routes, err := cfg.RouteTable()
	if err != nil {
		return err
	}

	allowList, err := cfg.ReadAllowList()
	if err != nil {
		return err
	}

	if cfg.Auth.Secret == "" {
		slog.Warn("no auth secret configured, write and delete requests will be rejected")
	}

	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer closeDB()
	slog.Info("connected to database", "type", cfg.Database.Type)

	if err = os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
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

	handlerConfig := handlerhttp.HandlerConfig{
		Routes: routes,
		Reads:  allowList,
		Auth: handlerhttp.AuthConfig{
			Header: cfg.Auth.Header,
			Secret: cfg.Auth.Secret,
		},
		CORS: cfg.CORS,
	}

	handler := handlerhttp.NewHandler(&handlerConfig, service)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server", "addr", addr, "hosts", routes.Hosts())
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
