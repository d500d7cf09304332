package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

//Config holds the settings the service reads from its environment
type Config struct {
	ServicePort string
	LogLevel    string

	DBDriver   string
	DBHost     string
	DBUser     string
	DBName     string
	DBPassword string
	DBSSLMode  string
	SQLiteDSN  string

	Location        *time.Location
	BaselineKWh     float64
	TariffEURPerKWh float64

	SeedDemoData     bool
	MessagingEnabled bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8880")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("ENERGY_DB_DRIVER", "postgres")
	v.SetDefault("ENERGY_DB_HOST", "localhost")
	v.SetDefault("ENERGY_DB_USER", "postgres")
	v.SetDefault("ENERGY_DB_NAME", "smart_urban_energy_db")
	v.SetDefault("ENERGY_DB_PASSWORD", "")
	v.SetDefault("ENERGY_DB_SSLMODE", "require")
	v.SetDefault("ENERGY_SQLITE_DSN", "file::memory:?cache=shared")

	v.SetDefault("ENERGY_TIMEZONE", "Local")
	v.SetDefault("ENERGY_BASELINE_KWH", 50.0)
	v.SetDefault("ENERGY_TARIFF_EUR_PER_KWH", 0.40)

	v.SetDefault("ENERGY_SEED_DEMO_DATA", false)
	v.SetDefault("ENERGY_MESSAGING_ENABLED", false)
}

//Load reads the configuration from environment variables, falling back to defaults
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("ENERGY_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENERGY_TIMEZONE: %w", err)
	}

	cfg := &Config{
		ServicePort: v.GetString("SERVICE_PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),

		DBDriver:   v.GetString("ENERGY_DB_DRIVER"),
		DBHost:     v.GetString("ENERGY_DB_HOST"),
		DBUser:     v.GetString("ENERGY_DB_USER"),
		DBName:     v.GetString("ENERGY_DB_NAME"),
		DBPassword: v.GetString("ENERGY_DB_PASSWORD"),
		DBSSLMode:  v.GetString("ENERGY_DB_SSLMODE"),
		SQLiteDSN:  v.GetString("ENERGY_SQLITE_DSN"),

		Location:        loc,
		BaselineKWh:     v.GetFloat64("ENERGY_BASELINE_KWH"),
		TariffEURPerKWh: v.GetFloat64("ENERGY_TARIFF_EUR_PER_KWH"),

		SeedDemoData:     v.GetBool("ENERGY_SEED_DEMO_DATA"),
		MessagingEnabled: v.GetBool("ENERGY_MESSAGING_ENABLED"),
	}

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported ENERGY_DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.BaselineKWh <= 0 {
		return nil, fmt.Errorf("ENERGY_BASELINE_KWH must be positive, got %v", cfg.BaselineKWh)
	}

	return cfg, nil
}

//PostgresDSN builds a libpq style connection string from the database settings
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s dbname=%s sslmode=%s password=%s",
		c.DBHost, c.DBUser, c.DBName, c.DBSSLMode, c.DBPassword,
	)
}
