package service

import (
	"context"
	"time"

	"github.com/asquebay/order-stats-service/internal/model"
)

// StatsRepository определяет контракт агрегирующих запросов к хранилищу заказов
// все методы только читают данные
type StatsRepository interface {
	CountOrders(ctx context.Context) (int64, error)
	CountOrdersWithStatus(ctx context.Context, status model.OrderStatus) (int64, error)
	CountOrdersByStatus(ctx context.Context) (map[model.OrderStatus]int64, error)
	CountDelivered(ctx context.Context) (total, delivered int64, err error)
	DeliveredByAdministration(ctx context.Context) ([]model.LabelCount, error)
	DeliveredByUser(ctx context.Context) ([]model.UserDeliveryCount, error)
	DeliveredProductQuantities(ctx context.Context, limit int) ([]model.LabelCount, error)
	OrdersCreatedPerDay(ctx context.Context, since time.Time, tz string) ([]model.DayCount, error)
}

// MetricCache определяет контракт кэша результатов метрик
// ошибки означают недоступность хранилища, промах возвращается как ok == false
type MetricCache interface {
	Get(ctx context.Context, key string) (model.MetricResult, bool, error)
	Put(ctx context.Context, key string, value model.MetricResult, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
}

// Provider — источник данных одного графика с собственной политикой кэширования
type Provider interface {
	ID() string
	CacheKey(ctx context.Context) (string, error)
	GetData(ctx context.Context, bypassCache bool) (model.MetricResult, error)
}
