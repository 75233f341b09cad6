package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "RACING_FORM"

// IrishCourses are left off the race card by default
var IrishCourses = []string{
	"Ballinrobe", "Bellewstown", "Clonmel", "Cork", "Curragh", "Down Royal",
	"Downpatrick", "Dundalk", "Fairyhouse", "Galway", "Gowran Park", "Kilbeggan",
	"Killarney", "Laytown", "Leopardstown", "Limerick", "Listowel", "Naas",
	"Navan", "Punchestown", "Roscommon", "Sligo", "Thurles", "Tipperary",
	"Tramore", "Wexford",
}

// Load reads configuration from a YAML file, expanding ${VAR_NAME}
// placeholders, then applies RACING_FORM_* environment overrides. A missing
// file is allowed; defaults and the environment are used instead.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadAndValidate loads the configuration and runs validation on it
func LoadAndValidate(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "racing-form")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "racing")
	v.SetDefault("database.user", "racing")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("form.window_size", 5)
	v.SetDefault("form.window_years", 2)
	v.SetDefault("form.min_rating", 15)
	v.SetDefault("form.lookback_weeks", 156)
	v.SetDefault("form.excluded_courses", IrishCourses)
	v.SetDefault("form.cache_ttl_seconds", 300)

	v.SetDefault("simulation.enabled", true)
	v.SetDefault("simulation.trials", 1000)
	v.SetDefault("simulation.workers", 1)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.target_runs", 15)
	v.SetDefault("simulation.price_ceiling", 999.0)

	v.SetDefault("betting.lenient_strategies", false)

	v.SetDefault("scheduler.settlement_refresh", "*/15 * * * *")
	v.SetDefault("scheduler.race_cache_warm", "0 7 * * *")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.secret_name", "")
}
