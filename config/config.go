/*
Config package
*/
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is a thin, instance-scoped wrapper over viper.
// Every client owns its own Config; nothing is read from viper's global instance.
type Config struct {
	v *viper.Viper
}

// New reads .env from the working directory and ENV variables.
// A missing .env file is reported through log and is not an error.
func New(log Logger) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("dotenv")
	v.AddConfigPath(".") // look for config in the working directory
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var typeErr viper.ConfigFileNotFoundError
		if !errors.As(err, &typeErr) {
			return nil, err
		}

		if log != nil {
			log.Warn("The .env file has not been found in the current directory")
		}
	}

	return &Config{v: v}, nil
}

// NewEnv builds a Config that only consults ENV variables and explicit Set calls.
func NewEnv() *Config {
	v := viper.New()
	v.AutomaticEnv()

	return &Config{v: v}
}

func (c *Config) SetDefault(key string, value any) {
	c.v.SetDefault(key, value)
}

func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}
