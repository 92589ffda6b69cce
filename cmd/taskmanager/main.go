package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskmanager/internal/config"
	"taskmanager/internal/logger"
	"taskmanager/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:          "taskmanager",
	Short:        "Personal task manager API with reminder alerts",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the reminder scheduler",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads config and opens the logger and database shared by all commands.
func bootstrap() (config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("logger: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		_ = log.Sync()
		return cfg, nil, nil, fmt.Errorf("db: %w", err)
	}
	return cfg, log, db, nil
}

func runMigrate(_ *cobra.Command, _ []string) error {
	_, log, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	log.Info("schema up to date")
	return nil
}
