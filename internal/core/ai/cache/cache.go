package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"fridge-vision/internal/infrastructure/config"
)

// ErrCacheMiss 快取中沒有對應的值
var ErrCacheMiss = errors.New("cache miss")

// Store 快取後端
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Key 以各部分的 SHA-256 產生快取鍵
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s:%s", namespace, hex.EncodeToString(hash[:]))
}

// NewStore 依設定建立快取後端；停用時回傳 nil
func NewStore(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case config.CacheRedis:
		store, err := NewRedisStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return NewManager(cfg), nil
	}
}
