package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUsesDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8880", cfg.ServicePort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 50.0, cfg.BaselineKWh)
	assert.InDelta(t, 0.40, cfg.TariffEURPerKWh, 1e-9)
	assert.False(t, cfg.SeedDemoData)
	assert.NotNil(t, cfg.Location)
}

func TestLoadReadsOverrides(t *testing.T) {
	v := viper.New()
	v.Set("ENERGY_DB_DRIVER", "sqlite")
	v.Set("ENERGY_TIMEZONE", "UTC")
	v.Set("ENERGY_BASELINE_KWH", 80.0)

	cfg, err := load(v)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.Equal(t, 80.0, cfg.BaselineKWh)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	v := viper.New()
	v.Set("ENERGY_DB_DRIVER", "mysql")

	_, err := load(v)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveBaseline(t *testing.T) {
	v := viper.New()
	v.Set("ENERGY_BASELINE_KWH", 0)

	_, err := load(v)
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBUser: "u", DBName: "n", DBSSLMode: "disable", DBPassword: "p"}
	assert.Equal(t, "host=db user=u dbname=n sslmode=disable password=p", cfg.PostgresDSN())
}
