// Package config provides configuration management for the racing form service.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Form       FormConfig       `mapstructure:"form" validate:"required"`
	Simulation SimulationConfig `mapstructure:"simulation" validate:"required"`
	Betting    BettingConfig    `mapstructure:"betting"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	AWS        AWSConfig        `mapstructure:"aws"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// FormConfig tunes the feature pipeline and race card listing
type FormConfig struct {
	WindowSize      int      `mapstructure:"window_size" validate:"required,gt=0"`
	WindowYears     int      `mapstructure:"window_years" validate:"required,gt=0"`
	MinRating       int      `mapstructure:"min_rating" validate:"gte=0"`
	LookbackWeeks   int      `mapstructure:"lookback_weeks" validate:"required,gt=0"`
	ExcludedCourses []string `mapstructure:"excluded_courses"`
	CacheTTLSeconds int      `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// SimulationConfig configures the Monte-Carlo race simulator
type SimulationConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Trials       int     `mapstructure:"trials" validate:"required,gt=0"`
	Workers      int     `mapstructure:"workers" validate:"required,gt=0,lte=64"`
	Seed         uint64  `mapstructure:"seed"`
	TargetRuns   int     `mapstructure:"target_runs" validate:"required,gt=0"`
	PriceCeiling float64 `mapstructure:"price_ceiling" validate:"required,gt=1"`
}

// BettingConfig configures selection storage and settlement
type BettingConfig struct {
	LenientStrategies bool `mapstructure:"lenient_strategies"`
}

// SchedulerConfig holds cron expressions for background jobs
type SchedulerConfig struct {
	SettlementRefresh string `mapstructure:"settlement_refresh" validate:"omitempty,cron"`
	RaceCacheWarm     string `mapstructure:"race_cache_warm" validate:"omitempty,cron"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// AWSConfig locates the secret holding the database password
type AWSConfig struct {
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// CacheTTL returns the race form cache lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Form.CacheTTLSeconds) * time.Second
}
