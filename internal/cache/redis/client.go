package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/storage/models"
	"github.com/buildsafe/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func libraryKey(tenantID string, kind models.LibraryKind) string {
	return fmt.Sprintf("library:%s:%s", tenantID, kind)
}

func (c *Client) SetLibrary(ctx context.Context, tenantID string, kind models.LibraryKind, entries []models.LibraryEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal library entries: %w", err)
	}

	err = c.client.Set(ctx, libraryKey(tenantID, kind), data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set library cache: %w", err)
	}

	logger.Debug("Library cached",
		zap.String("kind", string(kind)),
		zap.Int("entries", len(entries)),
	)
	return nil
}

func (c *Client) GetLibrary(ctx context.Context, tenantID string, kind models.LibraryKind) ([]models.LibraryEntry, bool, error) {
	data, err := c.client.Get(ctx, libraryKey(tenantID, kind)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get library cache: %w", err)
	}

	var entries []models.LibraryEntry
	err = json.Unmarshal(data, &entries)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal library entries: %w", err)
	}

	logger.Debug("Library cache hit", zap.String("kind", string(kind)))
	return entries, true, nil
}

// InvalidateLibraries drops cached snapshots after CRUD changes so the next
// request reads fresh library state.
func (c *Client) InvalidateLibraries(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, "library:*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Library cache invalidated")
	return nil
}

func (c *Client) SetSuggestion(ctx context.Context, requestHash string, response *models.SuggestionResponse, ttl time.Duration) error {
	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("suggestion:%s", requestHash), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set suggestion cache: %w", err)
	}

	logger.Debug("Suggestion cached", zap.String("request_hash", requestHash))
	return nil
}

func (c *Client) GetSuggestion(ctx context.Context, requestHash string) (*models.SuggestionResponse, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("suggestion:%s", requestHash)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get suggestion cache: %w", err)
	}

	var response models.SuggestionResponse
	err = json.Unmarshal(data, &response)
	if err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	logger.Debug("Suggestion cache hit", zap.String("request_hash", requestHash))
	return &response, true, nil
}
