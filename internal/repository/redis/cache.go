package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rrens/support-widget/internal/domain"
)

const (
	settingsCachePrefix = "widget_settings:"
	defaultSettingsTTL  = 5 * time.Minute
)

// SettingsCache caches widget settings per organization
type SettingsCache struct {
	client *Client
	ttl    time.Duration
}

// NewSettingsCache creates a new widget settings cache
func NewSettingsCache(client *Client, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = defaultSettingsTTL
	}
	return &SettingsCache{client: client, ttl: ttl}
}

func settingsKey(organizationID string) string {
	return settingsCachePrefix + organizationID
}

// Get retrieves cached settings. A miss returns (nil, nil).
func (c *SettingsCache) Get(ctx context.Context, organizationID string) (*domain.WidgetSettings, error) {
	data, err := c.client.rdb.Get(ctx, settingsKey(organizationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached settings: %w", err)
	}

	var settings domain.WidgetSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	return &settings, nil
}

// Set caches settings for an organization
func (c *SettingsCache) Set(ctx context.Context, settings *domain.WidgetSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	return c.client.rdb.Set(ctx, settingsKey(settings.OrganizationID), data, c.ttl).Err()
}

// Invalidate removes cached settings for an organization
func (c *SettingsCache) Invalidate(ctx context.Context, organizationID string) error {
	return c.client.rdb.Del(ctx, settingsKey(organizationID)).Err()
}

// FlushAll removes all cached settings
func (c *SettingsCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := settingsCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
