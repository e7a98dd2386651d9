// Package config loads demo-data settings from a .env file and the
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ehr/demodata/internal/domain/terminology"
	"github.com/ehr/demodata/internal/platform/export"
	"github.com/ehr/demodata/internal/platform/hipaa"
	"github.com/ehr/demodata/internal/platform/sandbox"
)

type Config struct {
	Env                   string `mapstructure:"ENV"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	ResidentsFile         string `mapstructure:"RESIDENTS_FILE"`
	OutputDir             string `mapstructure:"OUTPUT_DIR"`
	OutputFormat          string `mapstructure:"OUTPUT_FORMAT"`
	DisordersFile         string `mapstructure:"SNOMED_DISORDERS_FILE"`
	AllergyNamesFile      string `mapstructure:"SNOMED_ALLERGY_NAMES_FILE"`
	AllergyReactionsFile  string `mapstructure:"SNOMED_ALLERGY_REACTIONS_FILE"`
	AllergySubstancesFile string `mapstructure:"SNOMED_ALLERGY_SUBSTANCES_FILE"`
	StartDate             string `mapstructure:"START_DATE"`
	IntermediaryDate      string `mapstructure:"INTERMEDIARY_DATE"`
	Now                   string `mapstructure:"NOW"`
	Seed                  int64  `mapstructure:"SEED"`
	StaffCount            int    `mapstructure:"STAFF_COUNT"`
	ExpandActivities      bool   `mapstructure:"EXPAND_ACTIVITIES"`
	ManagingOrganization  string `mapstructure:"MANAGING_ORGANIZATION"`
	EncryptionKey         string `mapstructure:"ENCRYPTION_KEY"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32  `mapstructure:"DB_MIN_CONNS"`
	Port                  string `mapstructure:"PORT"`
}

var keys = []string{
	"ENV",
	"LOG_LEVEL",
	"RESIDENTS_FILE",
	"OUTPUT_DIR",
	"OUTPUT_FORMAT",
	"SNOMED_DISORDERS_FILE",
	"SNOMED_ALLERGY_NAMES_FILE",
	"SNOMED_ALLERGY_REACTIONS_FILE",
	"SNOMED_ALLERGY_SUBSTANCES_FILE",
	"START_DATE",
	"INTERMEDIARY_DATE",
	"NOW",
	"SEED",
	"STAFF_COUNT",
	"EXPAND_ACTIVITIES",
	"MANAGING_ORGANIZATION",
	"ENCRYPTION_KEY",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"PORT",
}

// Load reads .env (optional) and the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file. A missing file is not an
// error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RESIDENTS_FILE", "demo-data/residents/data-plain.json")
	v.SetDefault("OUTPUT_DIR", "demo-data")
	v.SetDefault("OUTPUT_FORMAT", string(export.FormatJSON))
	v.SetDefault("SNOMED_DISORDERS_FILE", "demo-data/snomed-examples/disorders.txt")
	v.SetDefault("SNOMED_ALLERGY_NAMES_FILE", "demo-data/snomed-examples/allergies/name.txt")
	v.SetDefault("SNOMED_ALLERGY_REACTIONS_FILE", "demo-data/snomed-examples/allergies/reaction.txt")
	v.SetDefault("SNOMED_ALLERGY_SUBSTANCES_FILE", "demo-data/snomed-examples/allergies/substance.txt")
	v.SetDefault("START_DATE", "2023-01-01")
	v.SetDefault("INTERMEDIARY_DATE", "2024-01-01")
	v.SetDefault("STAFF_COUNT", 6)
	v.SetDefault("MANAGING_ORGANIZATION", "Golden Years Retreat Homes")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("PORT", "8000")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading the env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level parses LOG_LEVEL, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// parseDate accepts a date (2006-01-02) or an RFC 3339 timestamp, in UTC.
func parseDate(key, s string) (time.Time, error) {
	t, _, err := parseDateOnly(key, s)
	return t, err
}

// parseBoundary is parseDate for an inclusive upper bound: a bare date
// resolves to the last second of that day.
func parseBoundary(key, s string) (time.Time, error) {
	t, dateOnly, err := parseDateOnly(key, s)
	if err != nil || !dateOnly {
		return t, err
	}
	return t.AddDate(0, 0, 1).Add(-time.Second), nil
}

func parseDateOnly(key, s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), true, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, fmt.Errorf("%s: invalid date %q, expected YYYY-MM-DD or RFC 3339", key, s)
}

// Generation resolves the run boundaries into a sandbox.Config. An empty
// NOW means clock and a date-only NOW covers that whole day.
func (c *Config) Generation(clock time.Time) (sandbox.Config, error) {
	start, err := parseDate("START_DATE", c.StartDate)
	if err != nil {
		return sandbox.Config{}, err
	}
	inter, err := parseDate("INTERMEDIARY_DATE", c.IntermediaryDate)
	if err != nil {
		return sandbox.Config{}, err
	}
	now := clock.UTC()
	if c.Now != "" {
		if now, err = parseBoundary("NOW", c.Now); err != nil {
			return sandbox.Config{}, err
		}
	}

	cfg := sandbox.DefaultConfig(now)
	cfg.Start = start
	cfg.Intermediary = inter
	cfg.Seed = c.Seed
	cfg.StaffCount = c.StaffCount
	cfg.ExpandActivities = c.ExpandActivities
	if c.ManagingOrganization != "" {
		cfg.ManagingOrganization = c.ManagingOrganization
	}
	if err := cfg.Validate(); err != nil {
		return sandbox.Config{}, err
	}
	return cfg, nil
}

// TerminologyPaths returns the configured terminology files.
func (c *Config) TerminologyPaths() terminology.Paths {
	return terminology.Paths{
		Disorders:         c.DisordersFile,
		AllergyNames:      c.AllergyNamesFile,
		AllergyReactions:  c.AllergyReactionsFile,
		AllergySubstances: c.AllergySubstancesFile,
	}
}

// Validate checks the settings every command depends on. The encryption
// key and database URL are checked by the commands that use them.
func (c *Config) Validate() error {
	if _, err := export.ParseFormat(c.OutputFormat); err != nil {
		return fmt.Errorf("OUTPUT_FORMAT: %w", err)
	}
	if c.StaffCount < 1 {
		return fmt.Errorf("STAFF_COUNT must be at least 1, got %d", c.StaffCount)
	}
	if c.ResidentsFile == "" {
		return fmt.Errorf("RESIDENTS_FILE is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR is required")
	}
	if _, err := c.Generation(time.Now()); err != nil {
		return err
	}
	if c.EncryptionKey != "" {
		if _, err := hipaa.ParseKey(c.EncryptionKey); err != nil {
			return fmt.Errorf("ENCRYPTION_KEY: %w", err)
		}
	}
	return nil
}

// Key returns the decoded ENCRYPTION_KEY.
func (c *Config) Key() ([]byte, error) {
	if c.EncryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	key, err := hipaa.ParseKey(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY: %w", err)
	}
	return key, nil
}
