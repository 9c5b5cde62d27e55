// Package config loads service configuration from flags, environment and an
// optional yaml file, in that priority order.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the serve and seed commands need.
type Config struct {
	ListenAddr      string        // address the HTTP server binds to
	DBPath          string        // SQLite database path, or :memory:
	TemplateCatalog string        // yaml catalog path; empty uses the built-in catalog
	TemplateTTL     time.Duration // catalog cache TTL
	Verbose         bool          // log every resolution record
}

// Defaults registers default values on a viper instance.
func Defaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("db", "taskdeck.db")
	v.SetDefault("templates", "")
	v.SetDefault("template-ttl", 5*time.Minute)
	v.SetDefault("verbose", false)
}

// Load reads configuration. When cfgFile is empty a taskdeck.yaml in the
// working directory is used if present; a missing file is not an error, a
// malformed one is. Environment variables use the TASKDECK_ prefix with
// dashes mapped to underscores (TASKDECK_TEMPLATE_TTL and so on).
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	Defaults(v)

	v.SetEnvPrefix("TASKDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("taskdeck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		ListenAddr:      v.GetString("listen"),
		DBPath:          v.GetString("db"),
		TemplateCatalog: v.GetString("templates"),
		TemplateTTL:     v.GetDuration("template-ttl"),
		Verbose:         v.GetBool("verbose"),
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path must not be empty")
	}
	return cfg, nil
}
