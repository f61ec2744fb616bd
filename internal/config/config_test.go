package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Analysis.Alpha)
	assert.Equal(t, 999, cfg.Analysis.Permutations)
	assert.Equal(t, models.YearRange{Start: 2014, End: 2019}, cfg.Analysis.Baseline)
	assert.Len(t, cfg.Analysis.Periods, 3)
	assert.Equal(t, "IT", cfg.Geometry.Country)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "config.toml", `
[analysis]
alpha = 0.01
permutations = 499
seed = 12345
baseline = { start = 2015, end = 2018 }

[[analysis.periods]]
key = "early"
name = "Early"
years = { start = 2015, end = 2017 }

[[analysis.periods]]
key = "late"
name = "Late"
years = { start = 2021, end = 2023 }

[geometry]
provinces = "/data/nuts3.geojson"
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LISA_PERMUTATIONS", "99")
	t.Setenv("SERVER_READ_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.01, cfg.Analysis.Alpha)
	assert.Equal(t, 99, cfg.Analysis.Permutations)
	assert.Equal(t, uint64(12345), cfg.Analysis.Seed)
	assert.Equal(t, 1e-7, cfg.Analysis.Tolerance, "unset keys keep their defaults")
	assert.Equal(t, models.YearRange{Start: 2015, End: 2018}, cfg.Analysis.Baseline)
	require.Len(t, cfg.Analysis.Periods, 2)
	assert.Equal(t, "late", cfg.Analysis.Periods[1].Key)
	assert.Equal(t, "/data/nuts3.geojson", cfg.Geometry.Provinces)
	assert.Equal(t, "./data/shapes/nuts2_it.geojson", cfg.Geometry.Regions)
	assert.Equal(t, 5*time.Second, cfg.ReadTimeout)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CorsOrigins)
}

func TestLoad_FileWithoutPeriodsKeepsDefaults(t *testing.T) {
	path := writeFile(t, "config.toml", "[analysis]\npermutations = 199\n")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 199, cfg.Analysis.Permutations)
	assert.Equal(t, DefaultPeriods(), cfg.Analysis.Periods)
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeFile(t, "config.toml", "[analysis\nalpha = "))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha zero", func(c *Config) { c.Analysis.Alpha = 0 }},
		{"alpha one", func(c *Config) { c.Analysis.Alpha = 1 }},
		{"no permutations", func(c *Config) { c.Analysis.Permutations = 0 }},
		{"inverted baseline", func(c *Config) { c.Analysis.Baseline = models.YearRange{Start: 2020, End: 2019} }},
		{"no periods", func(c *Config) { c.Analysis.Periods = nil }},
		{"duplicate period", func(c *Config) {
			c.Analysis.Periods = append(c.Analysis.Periods, c.Analysis.Periods[0])
		}},
		{"default secret in production", func(c *Config) { c.Environment = "production" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Defaults().Validate())
}

func TestAnalysisConfig_Period(t *testing.T) {
	a := Defaults().Analysis

	p, ok := a.Period("during-covid")
	require.True(t, ok)
	assert.Equal(t, models.YearRange{Start: 2020, End: 2021}, p.Years)

	p, ok = a.Period("baseline")
	require.True(t, ok)
	assert.Equal(t, a.Baseline, p.Years)

	_, ok = a.Period("nope")
	assert.False(t, ok)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "unit", "ITC4C")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"unit":"ITC4C"`)
}
