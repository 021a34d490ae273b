package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"imagegallery/internal/config"
	"imagegallery/internal/database"
	"imagegallery/internal/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "api",
	Short:         "Image gallery HTTP API",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// bootstrap loads config, installs the logger and opens the database.
func bootstrap() (*config.Config, *slog.Logger, *gorm.DB, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.Setup(os.Stderr, cfg.LogLevel, cfg.AppEnv)

	db, err := database.Connect(cfg.DatabaseURL, database.Options{LogSQL: !cfg.IsProd() && cfg.LogLevel == "debug"})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return cfg, log, db, nil
}
