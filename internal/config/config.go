package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/opsboard/import-engine/internal/domain"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Import   ImportConfig
}

type AppConfig struct {
	Name        string
	Environment string
}

// DatabaseConfig selects and configures the store. The sqlite driver is
// the default single-user store; postgres is available for shared
// deployments.
type DatabaseConfig struct {
	Driver string `validate:"oneof=sqlite postgres"`
	// Path is the sqlite database file.
	Path string
	// Postgres connection settings, ignored for sqlite.
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

type LoggingConfig struct {
	Level  string
	Format string
}

// ImportConfig carries the default validation rules. Persisted overrides
// (the import_configs row) take precedence at run time.
type ImportConfig struct {
	Rules domain.ValidationRules
}

// ConnectionString builds the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	// Read from config file
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Import Engine")
	v.SetDefault("app.environment", "development")

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/import-engine.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "import_engine")
	v.SetDefault("database.user", "import_engine")
	v.SetDefault("database.password", "import_engine")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Validation rule defaults
	defaults := domain.DefaultValidationRules()
	v.SetDefault("import.rules.allowNegativeNumbers", defaults.AllowNegativeNumbers)
	v.SetDefault("import.rules.warnOnZeroValues", defaults.WarnOnZeroValues)
	v.SetDefault("import.rules.validateCalculatedHours", defaults.ValidateCalculatedHours)
	v.SetDefault("import.rules.calculatedHoursTolerance", defaults.CalculatedHoursTolerance)
	v.SetDefault("import.rules.minimumRows", defaults.MinimumRows)
	v.SetDefault("import.rules.maximumRows", defaults.MaximumRows)
}
