package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/jonboulle/clockwork"
)

// ProviderSettings — TTL и таймаут для набора провайдеров дашборда
type ProviderSettings struct {
	QueryTimeout      time.Duration
	DefaultTTL        time.Duration
	AdministrationTTL time.Duration
	UserDeliveryTTL   time.Duration
	TrendTTL          time.Duration
	// Location — зона часовых и дневных бакетов ключей; nil означает UTC
	Location *time.Location
}

// DashboardProviders собирает провайдеры всех графиков дашборда
//
// Ключи кэша подобраны под каждую метрику:
//   - статусы заказов: общее число заказов (вставка или удаление сбрасывает кэш)
//   - доставка: число заказов в статусе approved
//   - администрации: статический ключ, ограничен только TTL
//   - доставки по пользователям: часовой бакет YYYYMMDDHH
//   - тренд: календарный день YYYY-MM-DD
//   - доставленные товары: статический ключ с TTL по умолчанию
func DashboardProviders(repo StatsRepository, sources *Sources, cache MetricCache, clock clockwork.Clock, set ProviderSettings, log *slog.Logger) []*ChartProvider {
	loc := set.Location
	if loc == nil {
		loc = time.UTC
	}

	defs := []ProviderDef{
		{
			ID:   MetricOrderStatus,
			Kind: model.KindGeneric,
			TTL:  set.DefaultTTL,
			Key: func(ctx context.Context) (string, error) {
				n, err := repo.CountOrders(ctx)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%s:%d", MetricOrderStatus, n), nil
			},
			Source: sources.OrderStatusCounts,
		},
		{
			ID:   MetricDelivery,
			Kind: model.KindGeneric,
			TTL:  set.DefaultTTL,
			Key: func(ctx context.Context) (string, error) {
				n, err := repo.CountOrdersWithStatus(ctx, model.StatusApproved)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%s:%d", MetricDelivery, n), nil
			},
			Source: sources.DeliveryCounts,
		},
		{
			ID:     MetricAdministration,
			Kind:   model.KindAdministration,
			TTL:    set.AdministrationTTL,
			Key:    staticKey(MetricAdministration),
			Source: sources.AdministrationDistribution,
		},
		{
			ID:   MetricUserDelivery,
			Kind: model.KindUser,
			TTL:  set.UserDeliveryTTL,
			Key: func(context.Context) (string, error) {
				return MetricUserDelivery + ":" + clock.Now().In(loc).Format("2006010215"), nil
			},
			Source: sources.UserDeliveryDistribution,
		},
		{
			ID:     MetricDeliveredProducts,
			Kind:   model.KindGeneric,
			TTL:    set.DefaultTTL,
			Key:    staticKey(MetricDeliveredProducts),
			Source: sources.DeliveredProductsDistribution,
		},
		{
			ID:   MetricOrderTrend,
			Kind: model.KindGeneric,
			TTL:  set.TrendTTL,
			Key: func(context.Context) (string, error) {
				return MetricOrderTrend + ":" + clock.Now().In(loc).Format(time.DateOnly), nil
			},
			Source: sources.OrderTrend,
		},
	}

	providers := make([]*ChartProvider, len(defs))
	for i, def := range defs {
		providers[i] = NewChartProvider(def, cache, clock, set.QueryTimeout, log)
	}
	return providers
}

func staticKey(key string) KeyFunc {
	return func(context.Context) (string, error) {
		return key, nil
	}
}
