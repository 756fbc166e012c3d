package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/attendance-report-api/pkg/errors"
)

// StoreRedis names the cache in errors and metrics.
const StoreRedis = "redis"

// CacheRepository provides the Redis primitives behind the student fact cache.
type CacheRepository struct {
	client  *redis.Client
	logger  *zap.Logger
	timeout time.Duration
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger, timeout time.Duration) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CacheRepository{client: client, logger: logger, timeout: timeout}
}

// GetString returns the scalar stored at key or appErrors.ErrCacheMiss.
func (r *CacheRepository) GetString(ctx context.Context, key string) (string, error) {
	if r.client == nil {
		return "", appErrors.ErrCacheMiss
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", appErrors.ErrCacheMiss
		}
		return "", classifyRedis(fmt.Errorf("redis get %s: %w", key, err))
	}
	return value, nil
}

// SetString stores a scalar with the given TTL.
func (r *CacheRepository) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return classifyRedis(fmt.Errorf("redis setex %s: %w", key, err))
	}
	return nil
}

// HashGetAll returns the record stored at key. Records written as a JSON string are decoded as well.
func (r *CacheRepository) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		if isWrongType(err) {
			return r.jsonRecord(ctx, key)
		}
		return nil, classifyRedis(fmt.Errorf("redis hgetall %s: %w", key, err))
	}
	if len(fields) == 0 {
		return nil, appErrors.ErrCacheMiss
	}
	return fields, nil
}

func (r *CacheRepository) jsonRecord(ctx context.Context, key string) (map[string]string, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, classifyRedis(fmt.Errorf("redis get %s: %w", key, err))
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		r.logger.Warn("undecodable cached record", zap.String("key", key), zap.Error(err))
		return nil, appErrors.ErrCacheMiss
	}
	fields := make(map[string]string, len(decoded))
	for name, value := range decoded {
		fields[name] = StringifyField(value)
	}
	return fields, nil
}

// HashSet replaces the record at key with fields.
func (r *CacheRepository) HashSet(ctx context.Context, key string, fields map[string]string) error {
	if r.client == nil || len(fields) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	values := make(map[string]interface{}, len(fields))
	for name, value := range fields {
		values[name] = value
	}
	if _, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		return nil
	}); err != nil {
		return classifyRedis(fmt.Errorf("redis hset %s: %w", key, err))
	}
	return nil
}

// Exists reports whether key is present.
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, classifyRedis(fmt.Errorf("redis exists %s: %w", key, err))
	}
	return n > 0, nil
}

// Delete removes keys and returns how many existed.
func (r *CacheRepository) Delete(ctx context.Context, keys ...string) (int64, error) {
	if r.client == nil || len(keys) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		return 0, classifyRedis(fmt.Errorf("redis delete %s: %w", strings.Join(keys, ","), err))
	}
	return n, nil
}

// Ping checks the client for readiness probes.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return appErrors.Unavailable(StoreRedis, errors.New("redis client not configured"))
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return classifyRedis(err)
	}
	return nil
}

// Close releases the underlying Redis connection pool if present.
func (r *CacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// StringifyField renders a decoded JSON value the way it is stored in a Redis hash.
func StringifyField(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}

func isWrongType(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "WRONGTYPE")
}

func classifyRedis(err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return appErrors.Unavailable(StoreRedis, err)
	}
	return appErrors.Classify(StoreRedis, err)
}
