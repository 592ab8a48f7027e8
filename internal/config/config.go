package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SEALHITS_DATABASE_DSN.
const EnvPrefix = "SEALHITS"

const (
	DefaultDriver          = "sqlite"
	DefaultDSN             = "sealhits.db"
	DefaultBufferSeconds   = 4.0
	DefaultMaxGroupSeconds = 800.0
	DefaultLogFile         = "ingest.log"
)

// Config holds every setting of the sealhits tools.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects the persisted store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	DSN    string `mapstructure:"dsn"`
}

// IngestConfig holds ingest defaults. Durations are in seconds.
type IngestConfig struct {
	Buffer       float64 `mapstructure:"buffer"`
	MaxSecs      float64 `mapstructure:"max_secs"`
	MaxImageSecs float64 `mapstructure:"max_image_secs"`
	Workers      int     `mapstructure:"workers"`
	OutPath      string  `mapstructure:"outpath"`
}

// LogConfig controls the console and rotating file loggers.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SplitBuffer returns the split buffer as a duration.
func (c IngestConfig) SplitBuffer() time.Duration {
	return seconds(c.Buffer)
}

// MaxGroupDuration returns the group duration limit.
func (c IngestConfig) MaxGroupDuration() time.Duration {
	return seconds(c.MaxSecs)
}

// MaxImageDuration returns the image group duration limit, falling back to
// the group limit when unset.
func (c IngestConfig) MaxImageDuration() time.Duration {
	if c.MaxImageSecs <= 0 {
		return c.MaxGroupDuration()
	}
	return seconds(c.MaxImageSecs)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DefaultDriver)
	v.SetDefault("database.dsn", DefaultDSN)

	v.SetDefault("ingest.buffer", DefaultBufferSeconds)
	v.SetDefault("ingest.max_secs", DefaultMaxGroupSeconds)
	v.SetDefault("ingest.max_image_secs", 0.0)
	v.SetDefault("ingest.workers", runtime.NumCPU())
	v.SetDefault("ingest.outpath", ".")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", DefaultLogFile)
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
}

// Load reads configuration from defaults, an optional YAML file and
// SEALHITS_* environment variables. bind may attach command-line flags so
// they take precedence; it can be nil.
func Load(path string, bind func(v *viper.Viper) error) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sealhits")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "sealhits"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if bind != nil {
		if err := bind(v); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q (want sqlite or postgres)", c.Database.Driver)
	}
	if c.Ingest.Workers < 1 {
		c.Ingest.Workers = 1
	}
	return nil
}
