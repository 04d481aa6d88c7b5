package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort  string
	LogLevel string

	// 全局访问密码，非空时 /api/v1 启用 Basic Auth
	BasicAuthUser string
	BasicAuthPass string

	// REDIS_ADDR 为空时不启用跨进程运行锁
	RedisAddr  string
	RunLockTTL time.Duration

	CronSpec string
	Timezone string

	// 需要运行的数据源 code，例如 aitimes,mirakleai
	Sources        []string
	ListingPages   int
	RequestTimeout time.Duration

	Mail MailConfig
}

// MailConfig SMTP 发信配置，账号与收件人任一缺失时跳过发送
type MailConfig struct {
	Server    string
	Port      int
	User      string
	Password  string
	Recipient string
}

// Missing 返回缺失的必填项（环境变量名），为空表示可以发信
func (m MailConfig) Missing() []string {
	var out []string
	if m.User == "" {
		out = append(out, "SMTP_USER")
	}
	if m.Password == "" {
		out = append(out, "SMTP_PASSWORD")
	}
	if m.Recipient == "" {
		out = append(out, "RECIPIENT_EMAIL")
	}
	return out
}

// Enabled 所有必填项齐全
func (m MailConfig) Enabled() bool {
	return len(m.Missing()) == 0
}

// Load 从环境变量读取配置；若当前目录存在 .env 会先加载（不会覆盖已设置的变量）
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppPort:        getEnv("APP_PORT", "9000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		BasicAuthUser:  os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:  os.Getenv("APP_BASIC_PASS"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RunLockTTL:     getEnvDuration("RUN_LOCK_TTL", 10*time.Minute),
		CronSpec:       getEnv("CRON_SPEC", "0 8 * * *"),
		Timezone:       getEnv("TIMEZONE", "Asia/Seoul"),
		Sources:        splitList(getEnv("SOURCES", "aitimes,mirakleai")),
		ListingPages:   getEnvInt("LISTING_PAGES", 2),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 10*time.Second),
		Mail: MailConfig{
			Server:    getEnv("SMTP_SERVER", "smtp.gmail.com"),
			Port:      getEnvInt("SMTP_PORT", 465),
			User:      os.Getenv("SMTP_USER"),
			Password:  os.Getenv("SMTP_PASSWORD"),
			Recipient: os.Getenv("RECIPIENT_EMAIL"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Location 解析 Timezone，失败时回退到固定 UTC+9（KST）
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}
