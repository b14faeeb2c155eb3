package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/logger"
)

var configFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "storefront serves the catalog, review and account API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveRunE,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "optional config file (yaml, json, toml or env)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  serveRunE,
	})
	rootCmd.AddCommand(newCreateAdminCmd())
	rootCmd.AddCommand(newSeedCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log.WithFields(log.Fields{
		"env":    cfg.AppEnv,
		"driver": cfg.DatabaseDriver,
	}).Info("Loaded config")
	return cfg, nil
}

func serveRunE(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	res, err := openResources(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer res.Close()

	server := app.NewApp(cfg, res.deps)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.AppPort).Info("Starting server")
		errCh <- server.Listen(cfg.AppPort)
	}()

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("Shutting down server...")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Error("Error during server shutdown")
	}
	log.Info("Server gracefully stopped")
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
