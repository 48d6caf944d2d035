package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/epeers/fundsync/internal/database"
	"github.com/epeers/fundsync/internal/models"
	"github.com/epeers/fundsync/internal/util"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration loaded from environment variables
// (optionally seeded from a .env file in the working directory).
type Config struct {
	DBHost          string `env:"DB_HOST" env-default:"localhost"`
	DBPort          int    `env:"DB_PORT" env-default:"5432"`
	DBName          string `env:"DB_NAME" env-default:"funds"`
	DBSSLMode       string `env:"DB_SSLMODE" env-default:"disable"`
	DBMaintenanceDB string `env:"DB_MAINTENANCE_DB" env-default:"postgres"`
	DBPoolSize      int32  `env:"DB_POOL_SIZE" env-default:"5"`

	// Root account used for schema and account provisioning.
	RootUser     string `env:"DB_ROOT_USER" env-default:"postgres"`
	RootPassword string `env:"DB_ROOT_PASSWORD"`

	AdminUser      string `env:"ADMIN_USER" env-default:"fund_admin"`
	AdminPassword  string `env:"ADMIN_PASSWORD"`
	ReaderUser     string `env:"READER_USER" env-default:"fund_reader"`
	ReaderPassword string `env:"READER_PASSWORD"`

	AllfundsBaseURL string `env:"ALLFUNDS_BASE_URL" env-default:"https://api.neuralfin.ai/product/api/v1"`
	AllfundsToken   string `env:"ALLFUNDS_TOKEN"`

	FundISINs        []string `env:"FUND_ISINS" env-separator:","`
	FundUniverseFile string   `env:"FUND_UNIVERSE_FILE"`
	NavSinceDate     string   `env:"NAV_SINCE_DATE" env-default:"2020-01-01"`
	NavUntilDate     string   `env:"NAV_UNTIL_DATE"`
	FetchConcurrency int      `env:"FETCH_CONCURRENCY" env-default:"1"`
	StrictFetch      bool     `env:"STRICT_FETCH" env-default:"false"`

	SchemaPath string `env:"SCHEMA_PATH" env-default:"sql/schema.sql"`

	Port      string `env:"PORT" env-default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"`
}

// universeFile is the on-disk shape of FUND_UNIVERSE_FILE.
type universeFile struct {
	ISINs []string `yaml:"isins"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.RootPassword == "" {
		return nil, fmt.Errorf("DB_ROOT_PASSWORD environment variable is required")
	}
	if cfg.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD environment variable is required")
	}
	if cfg.ReaderPassword == "" {
		return nil, fmt.Errorf("READER_PASSWORD environment variable is required")
	}
	if cfg.DBPoolSize <= 0 {
		return nil, fmt.Errorf("DB_POOL_SIZE must be positive, got %d", cfg.DBPoolSize)
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}

	if _, _, err := cfg.NavRange(); err != nil {
		return nil, err
	}

	if cfg.FundUniverseFile != "" {
		isins, err := loadUniverse(cfg.FundUniverseFile)
		if err != nil {
			return nil, err
		}
		cfg.FundISINs = append(cfg.FundISINs, isins...)
	}
	cfg.FundISINs = dedupeISINs(cfg.FundISINs)

	return &cfg, nil
}

// NavRange parses NAV_SINCE_DATE and the optional NAV_UNTIL_DATE.
// A nil until means "today" to the fund client.
func (c *Config) NavRange() (time.Time, *time.Time, error) {
	since, err := util.ParseDate(c.NavSinceDate)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid NAV_SINCE_DATE %q: %w", c.NavSinceDate, err)
	}
	if c.NavUntilDate == "" {
		return since, nil, nil
	}
	until, err := util.ParseDate(c.NavUntilDate)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid NAV_UNTIL_DATE %q: %w", c.NavUntilDate, err)
	}
	if until.Before(since) {
		return time.Time{}, nil, fmt.Errorf("NAV_UNTIL_DATE %s is before NAV_SINCE_DATE %s", c.NavUntilDate, c.NavSinceDate)
	}
	return since, &until, nil
}

// RootDatabase is the target database reached with the root account.
func (c *Config) RootDatabase() database.Config {
	return database.Config{
		Host:     c.DBHost,
		Port:     c.DBPort,
		Database: c.DBName,
		User:     c.RootUser,
		Password: c.RootPassword,
		SSLMode:  c.DBSSLMode,
		PoolSize: c.DBPoolSize,
	}
}

// AdminDatabase is the target database reached with the admin account; the
// ingest stage's pool is opened with it.
func (c *Config) AdminDatabase() database.Config {
	return c.RootDatabase().WithCredentials(c.AdminUser, c.AdminPassword)
}

// Accounts returns the admin and reader accounts to provision.
func (c *Config) Accounts() (admin, reader models.DatabaseAccount) {
	admin = models.DatabaseAccount{Username: c.AdminUser, Password: c.AdminPassword, Role: models.RoleAdmin}
	reader = models.DatabaseAccount{Username: c.ReaderUser, Password: c.ReaderPassword, Role: models.RoleReader}
	return admin, reader
}

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the standard logrus logger.
func (c *Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func loadUniverse(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fund universe file: %w", err)
	}

	var u universeFile
	if err := yaml.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("failed to parse fund universe file: %w", err)
	}
	return u.ISINs, nil
}

func dedupeISINs(isins []string) []string {
	seen := make(map[string]bool, len(isins))
	out := make([]string, 0, len(isins))
	for _, isin := range isins {
		isin = strings.ToUpper(strings.TrimSpace(isin))
		if isin == "" || seen[isin] {
			continue
		}
		seen[isin] = true
		out = append(out, isin)
	}
	return out
}
