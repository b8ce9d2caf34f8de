package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rg/danmakubot/internal/chunk"
	"github.com/rg/danmakubot/internal/security"
)

const (
	defaultConfigPath   = "./configs/config.yaml"
	defaultAPITimeout   = 60 * time.Second
	defaultPollTimeout  = 60
	defaultCacheTTL     = 30 * time.Second
	defaultRateRequests = 20
	defaultRateWindow   = time.Minute
	defaultLogMaxSize   = 5 * 1024 * 1024
	defaultDBPath       = "./data/danmakubot.db"
	defaultRetention    = 30 * 24 * time.Hour
)

type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	DanmakuAPI DanmakuAPIConfig `yaml:"danmaku_api"`
	Message    MessageConfig    `yaml:"message"`
	Storage    StorageConfig    `yaml:"storage"`
	Cache      CacheConfig      `yaml:"cache"`
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Security   SecurityConfig   `yaml:"security"`
}

type TelegramConfig struct {
	Token          string  `yaml:"token"`
	AllowedUserIDs []int64 `yaml:"allowed_user_ids"`
	// Empty means every allowed user is an admin.
	AdminUserIDs []int64 `yaml:"admin_user_ids"`
	PollTimeout  int     `yaml:"poll_timeout"`
	// Optional socks5://, socks5h://, http:// or https:// proxy for the Bot API.
	Proxy string `yaml:"proxy"`
}

type DanmakuAPIConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type MessageConfig struct {
	ChunkLimit int `yaml:"chunk_limit"`
}

type StorageConfig struct {
	DBPath string `yaml:"db_path"`
	// Audit records older than this are pruned. Negative keeps them forever.
	AuditRetention time.Duration `yaml:"audit_retention"`
}

type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Path    string `yaml:"path"`
	Level   string `yaml:"level"`
	MaxSize int64  `yaml:"max_size"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type SecurityConfig struct {
	SecretPatterns []string `yaml:"secret_patterns"`
}

// Load reads the config file named by CONFIG_PATH (or the default path).
func Load() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	return LoadFile(configPath)
}

// LoadFile reads, expands, defaults and validates the config at path.
// A .env file in the working directory is loaded first if present.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse builds a Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	content := expandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}
	if len(c.Telegram.AdminUserIDs) == 0 {
		c.Telegram.AdminUserIDs = append([]int64(nil), c.Telegram.AllowedUserIDs...)
	}
	if c.DanmakuAPI.Timeout <= 0 {
		c.DanmakuAPI.Timeout = defaultAPITimeout
	}
	c.DanmakuAPI.BaseURL = strings.TrimRight(c.DanmakuAPI.BaseURL, "/")
	if c.Message.ChunkLimit == 0 {
		c.Message.ChunkLimit = chunk.DefaultLimit
	}
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = defaultDBPath
	}
	if c.Storage.AuditRetention == 0 {
		c.Storage.AuditRetention = defaultRetention
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = defaultCacheTTL
	}
	if c.Log.MaxSize <= 0 {
		c.Log.MaxSize = defaultLogMaxSize
	}
	if c.RateLimit.Requests <= 0 {
		c.RateLimit.Requests = defaultRateRequests
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = defaultRateWindow
	}
	if len(c.Security.SecretPatterns) == 0 {
		c.Security.SecretPatterns = security.DefaultPatterns
	}
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if len(c.Telegram.AllowedUserIDs) == 0 {
		return fmt.Errorf("telegram.allowed_user_ids is required (at least one user ID)")
	}
	if c.DanmakuAPI.BaseURL == "" {
		return fmt.Errorf("danmaku_api.base_url is required")
	}
	if !strings.HasPrefix(c.DanmakuAPI.BaseURL, "http://") && !strings.HasPrefix(c.DanmakuAPI.BaseURL, "https://") {
		return fmt.Errorf("danmaku_api.base_url must start with http:// or https://")
	}
	if c.DanmakuAPI.APIKey == "" {
		return fmt.Errorf("danmaku_api.api_key is required")
	}
	if err := chunk.ValidateLimit(c.Message.ChunkLimit); err != nil {
		return fmt.Errorf("message.chunk_limit: %w", err)
	}
	return nil
}

func expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Telegram Token: %s\n", security.MaskSecret(c.Telegram.Token)))
	sb.WriteString(fmt.Sprintf("  Allowed Users: %d\n", len(c.Telegram.AllowedUserIDs)))
	sb.WriteString(fmt.Sprintf("  Admin Users: %d\n", len(c.Telegram.AdminUserIDs)))
	if c.Telegram.Proxy != "" {
		sb.WriteString("  Telegram Proxy: configured\n")
	}
	sb.WriteString(fmt.Sprintf("  Danmaku API: %s\n", c.DanmakuAPI.BaseURL))
	sb.WriteString(fmt.Sprintf("  Danmaku API Key: %s\n", security.MaskSecret(c.DanmakuAPI.APIKey)))
	sb.WriteString(fmt.Sprintf("  Danmaku API Timeout: %s\n", c.DanmakuAPI.Timeout))
	sb.WriteString(fmt.Sprintf("  Message Chunk Limit: %d\n", c.Message.ChunkLimit))
	sb.WriteString(fmt.Sprintf("  Storage DB Path: %s\n", c.Storage.DBPath))
	if c.Storage.AuditRetention > 0 {
		sb.WriteString(fmt.Sprintf("  Audit Retention: %s\n", c.Storage.AuditRetention))
	}
	if c.Cache.RedisAddr != "" {
		sb.WriteString(fmt.Sprintf("  Cache: redis %s/%d (TTL: %s)\n", c.Cache.RedisAddr, c.Cache.RedisDB, c.Cache.TTL))
	} else {
		sb.WriteString(fmt.Sprintf("  Cache: memory (TTL: %s)\n", c.Cache.TTL))
	}
	if c.HTTP.Addr != "" {
		sb.WriteString(fmt.Sprintf("  HTTP Addr: %s\n", c.HTTP.Addr))
	}
	sb.WriteString(fmt.Sprintf("  Rate Limit: %d per %s\n", c.RateLimit.Requests, c.RateLimit.Window))
	sb.WriteString(fmt.Sprintf("  Log Level: %s\n", c.Log.Level))
	return sb.String()
}
