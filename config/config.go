package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/finn-wa/grocy-trolley-sub000/internal/http/ratelimit"
	"github.com/finn-wa/grocy-trolley-sub000/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Grocy     GrocyConfig      `mapstructure:"grocy"`
	Stores    StoresConfig     `mapstructure:"stores"`
	Import    ImportConfig     `mapstructure:"import"`
	Server    ServerConfig     `mapstructure:"server"`
	RateLimit ratelimit.Config `mapstructure:"rate_limit"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// GrocyConfig points at the inventory service
type GrocyConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
	// ShoppingListID is the list exported by export-list
	ShoppingListID int `mapstructure:"shopping_list_id"`
}

// StoresConfig holds per-store credentials
type StoresConfig struct {
	Foodstuffs FoodstuffsConfig `mapstructure:"foodstuffs"`
}

// FoodstuffsConfig configures the PAK'nSAVE and New World API. Tokens come
// from an already authenticated browser session.
type FoodstuffsConfig struct {
	PaknsaveURL   string `mapstructure:"paknsave_url"`
	NewWorldURL   string `mapstructure:"new_world_url"`
	PaknsaveToken string `mapstructure:"paknsave_token"`
	NewWorldToken string `mapstructure:"new_world_token"`
	StoreID       string `mapstructure:"store_id"`
}

// ImportConfig tunes import runs
type ImportConfig struct {
	// Stock posts stock after creating products without asking
	Stock bool `mapstructure:"stock"`
	// NonInteractive answers every prompt with skip/no
	NonInteractive bool `mapstructure:"non_interactive"`
	// ReportDir archives run reports when set
	ReportDir string `mapstructure:"report_dir"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// APIKey protects /api when set
	APIKey            string  `mapstructure:"api_key"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(); err != nil {
		// .env is optional
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix("GROCY_TROLLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env file found. Variables already set in the
// environment win.
func loadEnvFile() error {
	for _, dir := range []string{".", "./config"} {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			return godotenv.Load(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

// bindEnvVars binds the unprefixed variable names used by the original
// deployment scripts.
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("grocy.url", "GROCY_TROLLEY_GROCY_URL", "GROCY_URL")
	v.BindEnv("grocy.api_key", "GROCY_TROLLEY_GROCY_API_KEY", "GROCY_API_KEY")
	v.BindEnv("stores.foodstuffs.paknsave_token", "GROCY_TROLLEY_PAKNSAVE_TOKEN", "PAKNSAVE_TOKEN")
	v.BindEnv("stores.foodstuffs.new_world_token", "GROCY_TROLLEY_NEW_WORLD_TOKEN", "NEW_WORLD_TOKEN")

	v.BindEnv("server.port", "GROCY_TROLLEY_SERVER_PORT", "PORT")
	v.BindEnv("logging.level", "GROCY_TROLLEY_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("telemetry.endpoint", "GROCY_TROLLEY_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("grocy.url", "http://localhost:9283/api")
	v.SetDefault("grocy.shopping_list_id", 1)

	v.SetDefault("stores.foodstuffs.paknsave_url", "https://www.paknsave.co.nz")
	v.SetDefault("stores.foodstuffs.new_world_url", "https://www.newworld.co.nz")
	v.SetDefault("stores.foodstuffs.store_id", "")

	v.SetDefault("import.stock", false)
	v.SetDefault("import.non_interactive", false)
	v.SetDefault("import.report_dir", "")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.requests_per_second", 1)
	v.SetDefault("server.burst", 5)
	v.SetDefault("server.api_key", "")

	rl := ratelimit.DefaultConfig()
	v.SetDefault("rate_limit.requests_per_second", rl.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", rl.Burst)
	v.SetDefault("rate_limit.max_retries", rl.MaxRetries)
	v.SetDefault("rate_limit.initial_backoff_ms", rl.InitialBackoffMs)
	v.SetDefault("rate_limit.max_backoff_ms", rl.MaxBackoffMs)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.no_color", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", telemetry.DefaultServiceName)
	v.SetDefault("telemetry.service_version", "")
	v.SetDefault("telemetry.environment", "")
}

// Validate checks the settings every import needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Grocy.URL == "" {
		errs = append(errs, errors.New("grocy.url is required"))
	}
	if c.Grocy.APIKey == "" {
		errs = append(errs, errors.New("grocy.api_key is required"))
	}
	return errors.Join(errs...)
}
