package config

import (
	"encoding/base64"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lecternapp/lectern/cms"
	"github.com/lecternapp/lectern/internal/logger"
)

const (
	configFilename = "config.yaml"
	secretFilename = ".cookiesecret.yaml"
)

// SetupConfig loads file-based configuration needed for bootstrap,
// initializes the logger, and ensures a session cookie secret exists.
func SetupConfig() *cms.Config {
	viper.SetDefault("article_root", "articles")
	viper.SetDefault("dbfile", "lectern.db")
	viper.SetDefault("host", "0.0.0.0:8080")
	viper.SetDefault("base_url", "http://localhost:8080")
	viper.SetDefault("log_format", "pretty") // pretty, json, or text
	viper.SetDefault("log_level", "info")    // debug, info, warn, error
	viper.SetDefault("cache_ttl", time.Minute)
	viper.SetDefault("sync_workers", 2)
	viper.SetDefault("rate_limit_max", 30)
	viper.SetDefault("rate_limit_window", time.Minute)
	viper.SetDefault("minimum_password_length", 8)
	viper.SetDefault("cookie_expiry", 86400*7) // a week

	viper.SetConfigFile(configFilename)
	viper.AddConfigPath(".")
	err := viper.ReadInConfig()

	createDefaultConfigFile := false

	if err != nil {
		if strings.Contains(err.Error(), "no such file or directory") {
			createDefaultConfigFile = true
		} else {
			slog.Error("failed to read config", "error", err)
			os.Exit(1)
		}
	}

	// Initialize logger with configured format and level
	logger.InitLogger(
		logger.ParseLogFormat(viper.GetString("log_format")),
		logger.ParseLogLevel(viper.GetString("log_level")),
	)

	config := &cms.Config{
		ArticleRoot:           viper.GetString("article_root"),
		DatabaseFile:          viper.GetString("dbfile"),
		Host:                  viper.GetString("host"),
		BaseURL:               viper.GetString("base_url"),
		LogFormat:             viper.GetString("log_format"),
		LogLevel:              viper.GetString("log_level"),
		CacheTTL:              viper.GetDuration("cache_ttl"),
		SyncWorkers:           viper.GetInt("sync_workers"),
		RateLimitMax:          viper.GetInt("rate_limit_max"),
		RateLimitWindow:       viper.GetDuration("rate_limit_window"),
		MinimumPasswordLength: viper.GetInt("minimum_password_length"),
		CookieExpiry:          viper.GetInt("cookie_expiry"),
		CookieSecret:          loadOrCreateCookieSecret(),
	}

	if createDefaultConfigFile {
		slog.Info("config not found, writing defaults", "file", configFilename)
		conf, err := os.Create(configFilename)
		if err != nil {
			slog.Error("failed to create config file", "error", err)
			os.Exit(1)
		}
		defer conf.Close()

		if err := yaml.NewEncoder(conf).Encode(config); err != nil {
			slog.Error("failed to write config file", "error", err)
			os.Exit(1)
		}
	}

	return config
}

// loadOrCreateCookieSecret reads the session secret file, generating a
// fresh random secret on first run.
func loadOrCreateCookieSecret() []byte {
	if _, err := os.Stat(secretFilename); err == nil {
		viper.SetConfigFile(secretFilename)
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err != nil {
			slog.Error("failed to read cookie secret config", "error", err)
			os.Exit(1)
		}
		secretBytes, err := base64.StdEncoding.DecodeString(viper.GetString("cookie_secret"))
		if err != nil {
			slog.Error("failed to decode cookie secret", "error", err)
			os.Exit(1)
		}
		return secretBytes
	}

	file, err := os.Create(secretFilename)
	if err != nil {
		slog.Error("failed to create cookie secret file", "error", err)
		os.Exit(1)
	}
	defer file.Close()

	secretBytes := securecookie.GenerateRandomKey(64)
	if secretBytes == nil {
		slog.Error("failed to generate cookie secret")
		os.Exit(1)
	}
	secret := base64.StdEncoding.EncodeToString(secretBytes)

	if _, err := file.WriteString("cookie_secret: " + secret + "\n"); err != nil {
		slog.Error("failed to write cookie secret", "error", err)
		os.Exit(1)
	}
	return secretBytes
}
