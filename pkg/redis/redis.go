package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/infratech-maker/apclo-partner-crm/config"
	"github.com/infratech-maker/apclo-partner-crm/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

const enrichProgressKey = "enrich:progress"

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// EnrichProgress は補完ジョブの進捗スナップショット。
// 書き込みは補完プロセスの単一goroutineのみ。APIは読み取り専用。
type EnrichProgress struct {
	Round          int       `json:"round"`
	Processed      int       `json:"processed"`
	Updated        int       `json:"updated"`
	Remaining      int64     `json:"remaining"`
	ProgressRate   float64   `json:"progress_rate"`
	Prefecture     string    `json:"prefecture,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
}

// SetEnrichProgress stores the latest progress snapshot (whole-value replace)
func SetEnrichProgress(ctx context.Context, progress EnrichProgress) error {
	if client == nil {
		return nil
	}
	data, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return client.Set(ctx, enrichProgressKey, data, 24*time.Hour).Err()
}

// GetEnrichProgress returns the latest snapshot, or (nil, nil) when none exists
func GetEnrichProgress(ctx context.Context) (*EnrichProgress, error) {
	if client == nil {
		return nil, nil
	}
	data, err := client.Get(ctx, enrichProgressKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var progress EnrichProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}
