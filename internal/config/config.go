// Package config wraps viper behind a small accessor type so packages
// depend on configuration values, not on viper itself.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config provides read access to the loaded configuration.
type Config struct {
	v *viper.Viper
}

// New wraps an existing viper instance. A nil viper yields an empty
// Config that returns zero values.
func New(v *viper.Viper) *Config {
	if v == nil {
		v = viper.New()
	}
	return &Config{v: v}
}

// Load reads the configuration. With an explicit path the file must exist;
// otherwise pnpcensus.yaml is searched in the working directory and
// /etc/pnpcensus, and a missing file just means defaults plus PNPCENSUS_*
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("pnpcensus")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pnpcensus")
	}

	v.SetEnvPrefix("PNPCENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return New(v), nil
		}
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return New(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pci.sysfs_root", "")
	v.SetDefault("net.sysfs_root", "")
	v.SetDefault("classifier.extra_table", "")
	v.SetDefault("inventory.path", "")
	v.SetDefault("log.debug", false)
}

// GetString returns the string value for a key.
func (c *Config) GetString(key string) string { return c.v.GetString(key) }

// GetInt returns the int value for a key.
func (c *Config) GetInt(key string) int { return c.v.GetInt(key) }

// GetBool returns the bool value for a key.
func (c *Config) GetBool(key string) bool { return c.v.GetBool(key) }

// GetDuration returns the duration value for a key.
func (c *Config) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }

// IsSet reports whether a key has a value.
func (c *Config) IsSet(key string) bool { return c.v.IsSet(key) }

// Sub returns the subtree under key. Returns an empty Config, never nil,
// so callers can chain lookups without guarding.
func (c *Config) Sub(key string) *Config {
	sub := c.v.Sub(key)
	if sub == nil {
		sub = viper.New()
	}
	return New(sub)
}

// Unmarshal decodes the whole configuration into a struct.
func (c *Config) Unmarshal(rawVal any) error {
	return c.v.Unmarshal(rawVal)
}
