package cache

import (
	"context"
	"sync"
	"time"

	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/jonboulle/clockwork"
)

// entry — закэшированный результат метрики вместе с моментом истечения
type entry struct {
	value     model.MetricResult
	expiresAt time.Time
}

// MetricCache — потокобезопасный in-memory кэш результатов метрик с TTL
// вытеснения нет: ключей мало (по одному на метрику и временной бакет)
type MetricCache struct {
	// sync.Map выбрал для обеспечения потокобезопасности
	// Ключ — string (ключ провайдера), значение — *entry
	storage sync.Map
	clock   clockwork.Clock
}

// NewMetricCache создаёт новый экземпляр кэша
// часы передаются снаружи, чтобы в тестах управлять истечением TTL
func NewMetricCache(clock clockwork.Clock) *MetricCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MetricCache{clock: clock}
}

// Put добавляет или перезаписывает результат с заданным временем жизни
func (c *MetricCache) Put(_ context.Context, key string, value model.MetricResult, ttl time.Duration) error {
	c.storage.Store(key, &entry{
		value:     value.Clone(),
		expiresAt: c.clock.Now().Add(ttl),
	})
	return nil
}

// Get извлекает результат по ключу
// просроченная запись удаляется и считается промахом
func (c *MetricCache) Get(_ context.Context, key string) (model.MetricResult, bool, error) {
	e, ok := c.load(key)
	if !ok {
		return model.MetricResult{}, false, nil
	}
	return e.value.Clone(), true, nil
}

// Has сообщает, есть ли непросроченная запись по ключу
func (c *MetricCache) Has(_ context.Context, key string) (bool, error) {
	_, ok := c.load(key)
	return ok, nil
}

// Forget удаляет запись по ключу
func (c *MetricCache) Forget(_ context.Context, key string) error {
	c.storage.Delete(key)
	return nil
}

func (c *MetricCache) load(key string) (*entry, bool) {
	value, ok := c.storage.Load(key)
	if !ok {
		return nil, false
	}

	// выполняем безопасное приведение типа
	e, ok := value.(*entry)
	if !ok {
		return nil, false
	}

	if !c.clock.Now().Before(e.expiresAt) {
		// сравнение по указателю: запись, перезаписанная параллельным Put, не удаляется
		c.storage.CompareAndDelete(key, e)
		return nil, false
	}
	return e, true
}
