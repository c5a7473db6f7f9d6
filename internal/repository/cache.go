package repository

import (
	"context"
	"errors"
	"time"
)

// キーが無い（ミス）
var ErrCacheMiss = errors.New("cache miss")

// カタログ読みの前段に置くKVキャッシュの約束。
// 値はJSONバイト列。実装はredis、無効時はnilを渡す。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
