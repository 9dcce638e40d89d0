package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	HTTP      HTTPConfig      `toml:"http"`
	DB        DBConfig        `toml:"db"`
	Log       LogConfig       `toml:"log"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Inventory InventoryConfig `toml:"inventory"`
}

type HTTPConfig struct {
	Addr           string   `toml:"addr"`
	TrustedProxies []string `toml:"trusted_proxies"`
}

type DBConfig struct {
	// empty means database.DefaultConfig()
	Path string `toml:"path"`
}

type LogConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"` // "text" or "json"
	AddSource bool   `toml:"add_source"`
}

type RateLimitConfig struct {
	RPS   int `toml:"rps"`
	Burst int `toml:"burst"`
}

type InventoryConfig struct {
	LowStockThreshold int `toml:"low_stock_threshold"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTP: HTTPConfig{
			Addr:           ":3001",
			TrustedProxies: []string{"127.0.0.1"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		RateLimit: RateLimitConfig{
			RPS:   20,
			Burst: 40,
		},
		Inventory: InventoryConfig{
			LowStockThreshold: 5,
		},
	}
}

// LoadServerConfig starts from the defaults, applies the TOML file named by
// TCG_CONFIG (if set) and then the individual TCG_* environment variables.
func LoadServerConfig() (ServerConfig, error) {
	cfg := DefaultServerConfig()

	if path := os.Getenv("TCG_CONFIG"); path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg, os.Getenv)
	return cfg, nil
}

func decodeFile(path string, cfg *ServerConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *ServerConfig, getenv func(string) string) {
	if v := getenv("TCG_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := getenv("TCG_DB_PATH"); v != "" {
		cfg.DB.Path = v
	}
	if v := getenv("TCG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := getenv("TCG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	// numeric overrides that fail to parse keep the previous value
	cfg.RateLimit.RPS = envInt(getenv, "TCG_RATE_RPS", cfg.RateLimit.RPS)
	cfg.RateLimit.Burst = envInt(getenv, "TCG_RATE_BURST", cfg.RateLimit.Burst)
	cfg.Inventory.LowStockThreshold = envInt(getenv, "TCG_LOW_STOCK_THRESHOLD", cfg.Inventory.LowStockThreshold)
}

func envInt(getenv func(string) string, key string, def int) int {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
