// 包 config：集中读取环境变量（可由 .env 提供），为各模块提供带默认值的配置快照
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config：进程级配置快照，启动时读取一次
type Config struct {
	Addr    string
	APIBase string

	LogLevel  string
	LogFormat string

	// 地块数据源：URL 优先于本地路径
	ParcelsPath        string
	ParcelsURL         string
	DatasetLoadTimeout time.Duration
	// 定时刷新间隔，0 关闭
	DatasetRefresh time.Duration

	FrameRate int

	LocatorCacheSize int
	LocatorCacheTTL  time.Duration

	RedisEnabled  bool
	RedisAddr     string
	RedisPass     string
	RedisDB       int
	ResolveTTL    time.Duration
	RedisKeyScope string

	RateLimitEnabled bool
	RateLimitQPS     float64
	RateLimitBurst   int

	AdminToken string

	// websocket 允许的 Origin；同源请求与无 Origin 的非浏览器客户端总是放行，"*" 放行全部
	WSAllowedOrigins []string

	TLSEnable   bool
	TLSCertPath string
	TLSKeyPath  string
}

// Load：加载 .env 后读取环境变量
// 约束：.env 缺失不是错误；数值解析失败回退默认值；仅对互相矛盾的组合报错
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))

	c := &Config{
		Addr:               getEnv("ADDR", ":8080"),
		APIBase:            strings.TrimRight(getEnv("API_BASE", "/api"), "/"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
		ParcelsPath:        getEnv("PARCELS_PATH", filepath.Join("data", "parcels", "laplata.geojson")),
		ParcelsURL:         getEnv("PARCELS_URL", ""),
		DatasetLoadTimeout: getDuration("DATASET_LOAD_TIMEOUT", 30*time.Second),
		DatasetRefresh:     getDuration("DATASET_REFRESH_INTERVAL", 0),
		FrameRate:          getInt("FRAME_RATE", 60),
		LocatorCacheSize:   getInt("LOCATOR_CACHE_SIZE", 4096),
		LocatorCacheTTL:    getDuration("LOCATOR_CACHE_TTL", time.Hour),
		RedisEnabled:       getBool("REDIS_ENABLED", false),
		RedisAddr:          getEnv("REDIS_HOST", "127.0.0.1") + ":" + getEnv("REDIS_PORT", "6379"),
		RedisPass:          getEnv("REDIS_PASS", ""),
		RedisDB:            getInt("REDIS_DB", 0),
		ResolveTTL:         getDuration("RESOLVE_CACHE_TTL", time.Hour),
		RedisKeyScope:      getEnv("REDIS_KEY_SCOPE", "parcel"),
		RateLimitEnabled:   getBool("RATE_LIMIT_ENABLED", false),
		RateLimitQPS:       getFloat("RATE_LIMIT_QPS", 200),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 400),
		AdminToken:         getEnv("ADMIN_TOKEN", ""),
		WSAllowedOrigins:   getList("WS_ALLOWED_ORIGINS"),
		TLSEnable:          getBool("TLS_ENABLE", false),
		TLSCertPath:        getEnv("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt")),
		TLSKeyPath:         getEnv("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key")),
	}
	if c.FrameRate <= 0 || c.FrameRate > 240 {
		return nil, fmt.Errorf("FRAME_RATE must be in (0, 240], got %d", c.FrameRate)
	}
	if c.ParcelsPath == "" && c.ParcelsURL == "" {
		return nil, fmt.Errorf("one of PARCELS_PATH or PARCELS_URL is required")
	}
	return c, nil
}

// FrameInterval：帧间隔（1s / FRAME_RATE）
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getList：逗号分隔列表，空项忽略
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if s := os.Getenv(key); s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		return strings.EqualFold(s, "true") || s == "1"
	}
	return fallback
}

// 支持 "30s" 形式，也兼容纯数字秒数（沿用 *_S 变量的旧习惯）
func getDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
