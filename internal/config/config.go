package config

import (
	"os"
	"path/filepath"

	"codeberg.org/kessl/xptrack/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel    = "info"
	DefaultListen      = "127.0.0.1:7825"
	DefaultIntervalSec = 10
)

type Config struct {
	Listen     string `mapstructure:"listen"`
	Database   string `mapstructure:"database"`
	ProfileDir string `mapstructure:"profile_dir"`
	Interval   int    `mapstructure:"interval"`
	LogLevel   string `mapstructure:"log_level"`
}

func defaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "xptrack.db"
	}

	return filepath.Join(home, ".local", "share", "xptrack", "xptrack.db")
}

func defaultProfileDir() string {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}

	return filepath.Join(dir, "profiles")
}

// Load reads configuration from flags, the environment and an optional
// TOML file. Flags override file values.
func Load() (*Config, error) {
	errFactory := errors.New()

	v := viper.New()
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("database", defaultDatabasePath())
	v.SetDefault("profile_dir", defaultProfileDir())
	v.SetDefault("interval", DefaultIntervalSec)
	v.SetDefault("log_level", DefaultLogLevel)

	flags := pflag.NewFlagSet("xptrackd", pflag.ContinueOnError)
	flags.String("listen", DefaultListen, "Address for the HTTP API")
	flags.String("database", "", "Path to the sample database")
	flags.String("profile-dir", "", "Directory for overlay profiles")
	flags.Int("interval", DefaultIntervalSec, "Default sampling interval in seconds")
	flags.String("log-level", "", "Log level (debug, info, warning, error)")

	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Load configuration from file. XPTRACK_CONFIG points at an explicit
	// file; otherwise search the usual locations.
	if path := os.Getenv("XPTRACK_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("xptrack")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Override config file values with command line flags
	flags.Visit(func(f *pflag.Flag) {
		key := f.Name
		if key == "log-level" {
			key = "log_level"
		}
		if key == "profile-dir" {
			key = "profile_dir"
		}
		v.Set(key, f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks invariants the rest of the daemon relies on.
func (c *Config) Validate() error {
	errFactory := errors.New()

	switch c.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Interval < 1 {
		c.Interval = 1
	}

	if c.Database == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "database path must not be empty")
	}

	return nil
}
