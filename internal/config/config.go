package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jengzang/crime-lisa-go/internal/models"
)

// Config holds the application configuration
type Config struct {
	Environment string
	Port        string
	DBPath      string
	JWTSecret   string

	LogLevel  string
	LogFormat string // text or json

	RateLimit       int // requests per minute per client IP
	RateBurst       int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string

	ConfigFile   string
	TaxonomyFile string

	Analysis AnalysisConfig `toml:"analysis"`
	Geometry GeometryConfig `toml:"geometry"`
}

// AnalysisConfig holds the statistical defaults and period layout
type AnalysisConfig struct {
	Alpha        float64          `toml:"alpha"`
	Permutations int              `toml:"permutations"`
	Seed         uint64           `toml:"seed"` // 0 draws a fresh seed per computation
	Tolerance    float64          `toml:"tolerance"`
	CacheSize    int              `toml:"cache_size"`
	Baseline     models.YearRange `toml:"baseline"`
	Periods      []models.Period  `toml:"periods"`
}

// GeometryConfig points at one NUTS GeoJSON file per level
type GeometryConfig struct {
	Country   string `toml:"country"`
	Macro     string `toml:"macro"`
	Regions   string `toml:"regions"`
	Provinces string `toml:"provinces"`
}

// Paths returns the configured files keyed by level
func (g GeometryConfig) Paths() map[models.GeoLevel]string {
	return map[models.GeoLevel]string{
		models.LevelMacro:     g.Macro,
		models.LevelRegions:   g.Regions,
		models.LevelProvinces: g.Provinces,
	}
}

// DefaultPeriods are the pre, during and post COVID windows
func DefaultPeriods() []models.Period {
	return []models.Period{
		{Key: "pre-covid", Name: "Pre-COVID (2014-2019)", Years: models.YearRange{Start: 2014, End: 2019}},
		{Key: "during-covid", Name: "During COVID (2020-2021)", Years: models.YearRange{Start: 2020, End: 2021}},
		{Key: "post-covid", Name: "Post-COVID (2022-2023)", Years: models.YearRange{Start: 2022, End: 2023}},
	}
}

// Defaults returns a Config populated with built-in default values
func Defaults() *Config {
	return &Config{
		Environment:     "development",
		Port:            ":8080",
		DBPath:          "./data/crime.db",
		JWTSecret:       "your-secret-key-change-in-production",
		LogLevel:        "info",
		LogFormat:       "text",
		RateLimit:       120,
		RateBurst:       20,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		CorsOrigins:     []string{"*"},
		ConfigFile:      "./config.toml",
		TaxonomyFile:    "./configs/crime_types.yaml",
		Analysis: AnalysisConfig{
			Alpha:        0.05,
			Permutations: 999,
			Tolerance:    1e-7,
			CacheSize:    64,
			Baseline:     models.YearRange{Start: 2014, End: 2019},
			Periods:      DefaultPeriods(),
		},
		Geometry: GeometryConfig{
			Country:   "IT",
			Macro:     "./data/shapes/nuts1_it.geojson",
			Regions:   "./data/shapes/nuts2_it.geojson",
			Provinces: "./data/shapes/nuts3_it.geojson",
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file named
// by CONFIG_FILE, then environment variables. Missing files are not errors.
func Load() (*Config, error) {
	cfg := Defaults()
	cfg.ConfigFile = getEnv("CONFIG_FILE", cfg.ConfigFile)

	if err := cfg.overlayFile(cfg.ConfigFile); err != nil {
		return nil, err
	}

	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.RateLimit = getEnvAsInt("RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = getEnvAsInt("RATE_BURST", cfg.RateBurst)
	cfg.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.ShutdownTimeout = getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.CorsOrigins = getEnvAsSlice("CORS_ORIGINS", cfg.CorsOrigins)
	cfg.TaxonomyFile = getEnv("TAXONOMY_FILE", cfg.TaxonomyFile)

	cfg.Analysis.Alpha = getEnvAsFloat("LISA_ALPHA", cfg.Analysis.Alpha)
	cfg.Analysis.Permutations = getEnvAsInt("LISA_PERMUTATIONS", cfg.Analysis.Permutations)
	cfg.Analysis.Seed = getEnvAsUint64("LISA_SEED", cfg.Analysis.Seed)
	cfg.Analysis.CacheSize = getEnvAsInt("WEIGHTS_CACHE_SIZE", cfg.Analysis.CacheSize)

	cfg.Geometry.Macro = getEnv("GEOMETRY_MACRO", cfg.Geometry.Macro)
	cfg.Geometry.Regions = getEnv("GEOMETRY_REGIONS", cfg.Geometry.Regions)
	cfg.Geometry.Provinces = getEnv("GEOMETRY_PROVINCES", cfg.Geometry.Provinces)

	return cfg, cfg.Validate()
}

// overlayFile decodes the [analysis] and [geometry] tables of a TOML file
func (c *Config) overlayFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var file struct {
		Analysis *AnalysisConfig `toml:"analysis"`
		Geometry *GeometryConfig `toml:"geometry"`
	}
	file.Analysis = &c.Analysis
	file.Geometry = &c.Geometry

	periods := c.Analysis.Periods
	c.Analysis.Periods = nil
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(c.Analysis.Periods) == 0 {
		c.Analysis.Periods = periods
	}
	return nil
}

// Validate checks the analysis settings
func (c *Config) Validate() error {
	a := c.Analysis
	if a.Alpha <= 0 || a.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %v", a.Alpha)
	}
	if a.Permutations < 1 {
		return fmt.Errorf("permutations must be positive, got %d", a.Permutations)
	}
	if err := a.Baseline.Validate(); err != nil {
		return fmt.Errorf("baseline: %w", err)
	}
	if len(a.Periods) == 0 {
		return fmt.Errorf("at least one period is required")
	}
	seen := make(map[string]struct{}, len(a.Periods))
	for _, p := range a.Periods {
		if p.Key == "" {
			return fmt.Errorf("period %q has no key", p.Name)
		}
		if _, dup := seen[p.Key]; dup {
			return fmt.Errorf("duplicate period key %q", p.Key)
		}
		seen[p.Key] = struct{}{}
		if err := p.Years.Validate(); err != nil {
			return fmt.Errorf("period %s: %w", p.Key, err)
		}
	}
	if c.JWTSecret == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// Period looks up a configured period by key. The key "baseline" resolves
// to the baseline range.
func (a AnalysisConfig) Period(key string) (models.Period, bool) {
	for _, p := range a.Periods {
		if p.Key == key {
			return p, true
		}
	}
	if key == "baseline" {
		return a.BaselinePeriod(), true
	}
	return models.Period{}, false
}

// BaselinePeriod returns the baseline range as a period
func (a AnalysisConfig) BaselinePeriod() models.Period {
	return models.Period{
		Key:   "baseline",
		Name:  fmt.Sprintf("Baseline (%s)", a.Baseline),
		Years: a.Baseline,
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value, err := strconv.ParseUint(getEnv(key, ""), 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
