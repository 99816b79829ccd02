package config

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data   DataConfig   `yaml:"data" mapstructure:"data"`
	Match  MatchConfig  `yaml:"match" mapstructure:"match"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the director registry and movie history tables.
// Locations are local paths or http(s)/ftp URLs.
type DataConfig struct {
	Directors string `yaml:"directors" mapstructure:"directors"`
	Movies    string `yaml:"movies" mapstructure:"movies"`
	Format    string `yaml:"format" mapstructure:"format"`
	Sheet     string `yaml:"sheet" mapstructure:"sheet"`
}

// MatchConfig tunes director name matching.
type MatchConfig struct {
	MinScore float64 `yaml:"min_score" mapstructure:"min_score"`
	Top      int     `yaml:"top" mapstructure:"top"`
}

// FetchConfig configures remote table downloads.
type FetchConfig struct {
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// StoreConfig configures the prediction log backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// BatchConfig configures batch prediction.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Store drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	storeDrivers = []string{DriverNone, DriverSQLite, DriverPostgres}
	dataFormats  = []string{"auto", "csv", "tsv", "xlsx"}
	logFormats   = []string{"json", "console"}
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("BOXOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.directors", "directors.csv")
	v.SetDefault("data.movies", "movies.csv")
	v.SetDefault("data.format", "auto")
	v.SetDefault("data.sheet", "")
	v.SetDefault("match.min_score", 60.0)
	v.SetDefault("match.top", 5)
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.user_agent", "boxoffice/1.0")
	v.SetDefault("fetch.rate_per_sec", 0.0)
	v.SetDefault("store.driver", DriverNone)
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "predict", "batch", "serve", "runs" and "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "predict", "batch", "serve":
		if strings.TrimSpace(c.Data.Directors) == "" {
			errs = append(errs, "data.directors is required")
		}
		if strings.TrimSpace(c.Data.Movies) == "" {
			errs = append(errs, "data.movies is required")
		}
		if !slices.Contains(dataFormats, strings.ToLower(c.Data.Format)) && c.Data.Format != "" {
			errs = append(errs, "data.format must be one of "+strings.Join(dataFormats, ", "))
		}
		if c.Match.MinScore <= 0 || c.Match.MinScore > 100 {
			errs = append(errs, "match.min_score must be > 0 and <= 100")
		}
		if mode == "batch" && (c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64) {
			errs = append(errs, "batch.concurrency must be between 1 and 64")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "runs", "migrate":
		if c.Store.Driver == DriverNone || c.Store.Driver == "" {
			errs = append(errs, "store.driver must be sqlite or postgres")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver != "" && !slices.Contains(storeDrivers, c.Store.Driver) {
		errs = append(errs, "store.driver must be one of "+strings.Join(storeDrivers, ", "))
	}
	if c.Store.Driver == DriverPostgres && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required for postgres")
	}
	if c.Fetch.MaxRetries < 0 {
		errs = append(errs, "fetch.max_retries must be >= 0")
	}
	if c.Fetch.TimeoutSecs < 0 {
		errs = append(errs, "fetch.timeout_secs must be >= 0")
	}
	if c.Fetch.RatePerSec < 0 {
		errs = append(errs, "fetch.rate_per_sec must be >= 0")
	}
	if c.Log.Format != "" && !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, "log.format must be json or console")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
