package cms

import "time"

// Config holds the file-based configuration for the platform. These are
// bootstrap settings loaded from config.yaml.
type Config struct {
	ArticleRoot           string        `yaml:"article_root"`
	DatabaseFile          string        `yaml:"dbfile"`
	Host                  string        `yaml:"host"`
	BaseURL               string        `yaml:"base_url"`
	LogFormat             string        `yaml:"log_format"`
	LogLevel              string        `yaml:"log_level"`
	CacheTTL              time.Duration `yaml:"cache_ttl"`
	SyncWorkers           int           `yaml:"sync_workers"`
	RateLimitMax          int           `yaml:"rate_limit_max"`
	RateLimitWindow       time.Duration `yaml:"rate_limit_window"`
	MinimumPasswordLength int           `yaml:"minimum_password_length"`
	CookieExpiry          int           `yaml:"cookie_expiry"`
	CookieSecret          []byte        `yaml:"-"`
}
