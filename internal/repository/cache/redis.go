package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/asquebay/order-stats-service/internal/config"
	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisCache хранит результаты метрик в redis в виде JSON
// каждая операция ограничена коротким таймаутом, ошибки оборачиваются в UnavailableError
type RedisCache struct {
	rdb       *redis.Client
	prefix    string
	opTimeout time.Duration
}

// NewRedisClient создаёт клиента redis по конфигу
func NewRedisClient(cfg config.Redis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}

// NewRedisCache создаёт кэш поверх готового клиента
func NewRedisCache(rdb *redis.Client, prefix string, opTimeout time.Duration) *RedisCache {
	if opTimeout <= 0 {
		opTimeout = 150 * time.Millisecond
	}
	return &RedisCache{rdb: rdb, prefix: prefix, opTimeout: opTimeout}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// Get читает результат; redis.Nil и битый JSON считаются промахом
func (c *RedisCache) Get(ctx context.Context, key string) (model.MetricResult, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.MetricResult{}, false, nil
	}
	if err != nil {
		return model.MetricResult{}, false, &UnavailableError{Op: "get", Key: key, Err: err}
	}

	value, err := decode(raw)
	if err != nil {
		// запись испорчена: удаляем, следующий запрос пересчитает метрику
		_ = c.rdb.Del(ctx, c.key(key)).Err()
		return model.MetricResult{}, false, nil
	}
	return value, true, nil
}

// Put сохраняет результат с TTL
func (c *RedisCache) Put(ctx context.Context, key string, value model.MetricResult, ttl time.Duration) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.rdb.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return &UnavailableError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Forget удаляет ключ
func (c *RedisCache) Forget(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.rdb.Del(ctx, c.key(key)).Err(); err != nil {
		return &UnavailableError{Op: "del", Key: key, Err: err}
	}
	return nil
}

// Has проверяет наличие ключа
func (c *RedisCache) Has(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	n, err := c.rdb.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, &UnavailableError{Op: "exists", Key: key, Err: err}
	}
	return n > 0, nil
}

// флаг isFromCache не сохраняется: его выставляет провайдер при чтении
func encode(value model.MetricResult) ([]byte, error) {
	value.IsFromCache = false
	return json.Marshal(value)
}

func decode(raw []byte) (model.MetricResult, error) {
	var value model.MetricResult
	if err := json.Unmarshal(raw, &value); err != nil {
		return model.MetricResult{}, err
	}
	if err := value.Validate(); err != nil {
		return model.MetricResult{}, err
	}
	return value, nil
}
