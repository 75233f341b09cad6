package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/racing-form/internal/config"
	"github.com/yourusername/racing-form/internal/database"
	"github.com/yourusername/racing-form/internal/logger"
	"github.com/yourusername/racing-form/internal/repository"
	"github.com/yourusername/racing-form/internal/service"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	log        *logrus.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "racing-form",
	Short: "Horse racing form, simulation and betting settlement",
	Long: `Builds per-runner race form from stored performance data, simulates race
outcomes to price runners, and settles betting selections across strategies.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadAndValidate(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		// stdout carries command output
		log = logger.NewLoggerWithOutput(cfg.App.LogLevel, cfg.App.Environment, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.Version = fmt.Sprintf("%s (%s)", Version, GitCommit)

	rootCmd.AddCommand(newRacesCmd(), newFormCmd(), newSimulateCmd(), newSelectionsCmd(), newSettleCmd(), newScheduleCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// services bundles the database-backed services
type services struct {
	db      *database.DB
	form    *service.FormService
	betting *service.BettingService
}

func (s *services) Close() {
	s.db.Close()
}

func openServices(ctx context.Context) (*services, error) {
	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.Initialize(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err := repository.NewRepositories(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	return &services{
		db:      db,
		form:    service.NewFormService(repos.Form, cfg, log),
		betting: service.NewBettingService(repos.Betting, cfg.Betting.LenientStrategies, log),
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
