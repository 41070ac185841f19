// Package config loads service settings from .env, an optional config.yaml and the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the process configuration. Keys match the environment variable names.
type Config struct {
	Port          string `mapstructure:"port"`
	BaseURL       string `mapstructure:"base_url"`
	DataFile      string `mapstructure:"data_file"`
	BotToken      string `mapstructure:"bot_token"`
	GuildID       string `mapstructure:"guild_id"`
	LogChannelID  string `mapstructure:"log_channel_id"`
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	CallbackURL   string `mapstructure:"callback_url"`
	SessionSecret string `mapstructure:"session_secret"`
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
}

var defaults = map[string]string{
	"port":           "3000",
	"base_url":       "",
	"data_file":      "db.json",
	"bot_token":      "",
	"guild_id":       "",
	"log_channel_id": "",
	"client_id":      "",
	"client_secret":  "",
	"callback_url":   "",
	"session_secret": "",
	"log_level":      "info",
	"log_format":     "console",
}

// Load reads .env when present, then config.yaml from ./configs or the working
// directory, then the environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path searches the defaults.
func LoadFrom(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:" + c.Port
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.CallbackURL == "" {
		c.CallbackURL = c.BaseURL + "/auth/callback"
	}
}

// Addr is the dashboard listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// SecureCookies reports whether the dashboard is served over HTTPS.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.BaseURL, "https://")
}

// BotEnabled reports whether a Discord token is configured.
func (c *Config) BotEnabled() bool {
	return c.BotToken != ""
}

// LoginEnabled reports whether Discord OAuth2 credentials are configured.
func (c *Config) LoginEnabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}
