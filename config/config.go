package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Slack     SlackConfig
	S3        S3Config
	Collector CollectorConfig
	Enrich    EnrichConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type SlackConfig struct {
	WebhookURL string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// CollectorConfig はブラウザ収集ジョブの設定。
// スクロール回数・待機時間はボット検知を避けるための経験値であり、
// タイミング保証ではない。
type CollectorConfig struct {
	TargetLocations []string      // 収集対象エリア（郵便番号など）
	ScrollCount     int           // 1エリアあたりのスクロール回数
	BlockCheckEvery int           // 何スクロールごとに検知チェックするか
	OutputFile      string        // 追記保存先CSV
	UserAgent       string        // Bot判定回避用UA
	TypeDelayMin    time.Duration // 1文字入力の最小待機
	TypeDelayMax    time.Duration
	ScrollDelayMin  time.Duration
	ScrollDelayMax  time.Duration
}

// EnrichConfig は補完ループの設定。
type EnrichConfig struct {
	Limit      int           // 1ラウンドあたりの処理件数
	Delay      time.Duration // フェッチ間の待機
	MaxRounds  int           // 0 = 無制限
	HostFilter string        // 詳細ページのホストパターン
	UserAgent  string
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "apclo_crm"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry: parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "12h")),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Slack: SlackConfig{
			WebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "apclo-crm-exports"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
		Collector: CollectorConfig{
			TargetLocations: parseSlice(getEnv("COLLECT_LOCATIONS", "150-0043,160-0022,106-0032,171-0014,104-0061")),
			ScrollCount:     getEnvInt("COLLECT_SCROLL_COUNT", 30),
			BlockCheckEvery: getEnvInt("COLLECT_BLOCK_CHECK_EVERY", 10),
			OutputFile:      getEnv("COLLECT_OUTPUT_FILE", "ubereats_list_collected.csv"),
			UserAgent:       getEnv("COLLECT_USER_AGENT", defaultUserAgent),
			TypeDelayMin:    100 * time.Millisecond,
			TypeDelayMax:    300 * time.Millisecond,
			ScrollDelayMin:  1000 * time.Millisecond,
			ScrollDelayMax:  1500 * time.Millisecond,
		},
		Enrich: EnrichConfig{
			Limit:      getEnvInt("ENRICH_LIMIT", 50),
			Delay:      parseDuration(getEnv("ENRICH_DELAY", "2s")),
			MaxRounds:  getEnvInt("ENRICH_MAX_ROUNDS", 0),
			HostFilter: getEnv("ENRICH_HOST_FILTER", "tabelog.com"),
			UserAgent:  getEnv("ENRICH_USER_AGENT", defaultUserAgent),
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func parseDuration(s string) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default 2s", s)
		return 2 * time.Second
	}
	return duration
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
