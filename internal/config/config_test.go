package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rg/danmakubot/internal/chunk"
)

const validConfig = `
telegram:
  token: "123456:test-token-abcdef"
  allowed_user_ids:
    - 1001
    - 1002

danmaku_api:
  base_url: "https://danmaku.example.com/api/control/"
  api_key: "secret-api-key-123"
`

func TestExpandEnv(t *testing.T) {
	os.Setenv("TEST_VAR", "test_value")
	defer os.Unsetenv("TEST_VAR")

	input := "prefix_${TEST_VAR}_suffix"
	result := expandEnv(input)
	expected := "prefix_test_value_suffix"

	if result != expected {
		t.Errorf("expandEnv(%q) = %q, want %q", input, result, expected)
	}
}

func TestExpandEnv_MissingVar(t *testing.T) {
	os.Unsetenv("MISSING_VAR")

	input := "prefix_${MISSING_VAR}_suffix"
	result := expandEnv(input)
	expected := "prefix__suffix"

	if result != expected {
		t.Errorf("expandEnv(%q) = %q, want %q", input, result, expected)
	}
}

func TestParse_ValidConfigDefaults(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Telegram.Token != "123456:test-token-abcdef" {
		t.Errorf("Token = %s, want 123456:test-token-abcdef", cfg.Telegram.Token)
	}
	if cfg.DanmakuAPI.BaseURL != "https://danmaku.example.com/api/control" {
		t.Errorf("BaseURL = %s, trailing slash should be stripped", cfg.DanmakuAPI.BaseURL)
	}
	if cfg.Message.ChunkLimit != chunk.DefaultLimit {
		t.Errorf("ChunkLimit = %d, want %d", cfg.Message.ChunkLimit, chunk.DefaultLimit)
	}
	if cfg.DanmakuAPI.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.DanmakuAPI.Timeout)
	}
	if cfg.Telegram.PollTimeout != 60 {
		t.Errorf("PollTimeout = %d, want 60", cfg.Telegram.PollTimeout)
	}
	if len(cfg.Telegram.AdminUserIDs) != 2 {
		t.Errorf("AdminUserIDs = %v, should default to allowed users", cfg.Telegram.AdminUserIDs)
	}
	if cfg.Log.MaxSize != 5*1024*1024 {
		t.Errorf("Log.MaxSize = %d, want 5MiB", cfg.Log.MaxSize)
	}
	if len(cfg.Security.SecretPatterns) == 0 {
		t.Error("SecretPatterns should default to security.DefaultPatterns")
	}
	if cfg.Storage.AuditRetention != 30*24*time.Hour {
		t.Errorf("AuditRetention = %v, want 720h", cfg.Storage.AuditRetention)
	}
}

func TestParse_NegativeRetentionKept(t *testing.T) {
	cfg, err := Parse([]byte(validConfig + "\nstorage:\n  audit_retention: -1s\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Storage.AuditRetention >= 0 {
		t.Errorf("negative retention should disable pruning, got %v", cfg.Storage.AuditRetention)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name: "missing_token",
			config: `
telegram:
  allowed_user_ids: [1]
danmaku_api:
  base_url: "https://x"
  api_key: "k"
`,
			wantErr: "telegram.token",
		},
		{
			name: "empty_allowed_users",
			config: `
telegram:
  token: "t"
  allowed_user_ids: []
danmaku_api:
  base_url: "https://x"
  api_key: "k"
`,
			wantErr: "allowed_user_ids",
		},
		{
			name: "missing_base_url",
			config: `
telegram:
  token: "t"
  allowed_user_ids: [1]
danmaku_api:
  api_key: "k"
`,
			wantErr: "danmaku_api.base_url",
		},
		{
			name: "bad_scheme",
			config: `
telegram:
  token: "t"
  allowed_user_ids: [1]
danmaku_api:
  base_url: "ftp://x"
  api_key: "k"
`,
			wantErr: "http://",
		},
		{
			name: "missing_api_key",
			config: `
telegram:
  token: "t"
  allowed_user_ids: [1]
danmaku_api:
  base_url: "https://x"
`,
			wantErr: "danmaku_api.api_key",
		},
		{
			name:    "negative_chunk_limit",
			config:  validConfig + "\nmessage:\n  chunk_limit: -1\n",
			wantErr: "message.chunk_limit",
		},
		{
			name:    "invalid_yaml",
			config:  "telegram: [",
			wantErr: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.config))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Error should mention %q: %v", tt.wantErr, err)
			}
		})
	}
}

func TestParse_NegativeChunkLimitWrapsSentinel(t *testing.T) {
	_, err := Parse([]byte(validConfig + "\nmessage:\n  chunk_limit: -10\n"))
	if !errors.Is(err, chunk.ErrInvalidLimit) {
		t.Errorf("error should wrap chunk.ErrInvalidLimit: %v", err)
	}
}

func TestLoad_FromConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := validConfig + `
message:
  chunk_limit: 1000
cache:
  redis_addr: "${TEST_REDIS_ADDR}"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", configPath)
	t.Setenv("TEST_REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Message.ChunkLimit != 1000 {
		t.Errorf("ChunkLimit = %d, want 1000", cfg.Message.ChunkLimit)
	}
	if cfg.Cache.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q, want localhost:6379", cfg.Cache.RedisAddr)
	}
}

func TestLoadFile_ExampleConfig(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123456:example-token")
	t.Setenv("DANMAKU_API_KEY", "example-key")

	cfg, err := LoadFile(filepath.Join("..", "..", "configs", "config.example.yaml"))
	if err != nil {
		t.Fatalf("LoadFile(example) error: %v", err)
	}
	if cfg.Message.ChunkLimit >= chunk.DefaultLimit {
		t.Errorf("example chunk_limit = %d, want headroom below %d", cfg.Message.ChunkLimit, chunk.DefaultLimit)
	}
	if cfg.Telegram.Token != "123456:example-token" || cfg.DanmakuAPI.APIKey != "example-key" {
		t.Error("example config should take secrets from the environment")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestParse_ExplicitAdmins(t *testing.T) {
	cfg, err := Parse([]byte(`
telegram:
  token: "t"
  allowed_user_ids: [1, 2]
  admin_user_ids: [3]
danmaku_api:
  base_url: "https://x"
  api_key: "k"
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(cfg.Telegram.AdminUserIDs) != 1 || cfg.Telegram.AdminUserIDs[0] != 3 {
		t.Errorf("AdminUserIDs = %v, explicit admins should not be replaced by allowed users", cfg.Telegram.AdminUserIDs)
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	s := cfg.String()
	if strings.Contains(s, "secret-api-key-123") {
		t.Error("String() leaked the API key")
	}
	if strings.Contains(s, "test-token-abcdef") {
		t.Error("String() leaked the bot token")
	}
	if !strings.Contains(s, "Message Chunk Limit: 4096") {
		t.Errorf("String() should include chunk limit: %s", s)
	}
}
