package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Aggregator опрашивает все провайдеры с одним и тем же флагом обхода кэша
// и собирает их результаты в один ответ
type Aggregator struct {
	providers []Provider
	byID      map[string]Provider
	clock     clockwork.Clock
	log       *slog.Logger
}

// NewAggregator создает агрегатор; порядок провайдеров сохраняется
func NewAggregator(providers []Provider, clock clockwork.Clock, log *slog.Logger) *Aggregator {
	byID := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byID[p.ID()] = p
	}
	return &Aggregator{
		providers: providers,
		byID:      byID,
		clock:     clock,
		log:       log,
	}
}

// Providers возвращает зарегистрированные провайдеры
func (a *Aggregator) Providers() []Provider {
	return a.providers
}

// GetAllStats запрашивает все метрики параллельно и нормализует распределения
// если хоть один провайдер вернул ошибку, весь ответ считается неуспешным
func (a *Aggregator) GetAllStats(ctx context.Context, bypassCache bool) (model.AggregateResult, error) {
	results := make([]model.MetricResult, len(a.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range a.providers {
		g.Go(func() error {
			res, err := fetch(gctx, p, bypassCache)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.AggregateResult{}, err
	}

	metrics := make(map[string]model.MetricResult, len(a.providers)+1)
	for i, p := range a.providers {
		metrics[p.ID()] = results[i]
	}
	normalizeDistributions(metrics)

	return model.AggregateResult{
		Metrics:       metrics,
		GeneratedAt:   a.clock.Now(),
		CacheBypassed: bypassCache,
	}, nil
}

// GetMetric возвращает одну метрику с той же нормализацией, что и в сводном ответе
// общий ключ распределения доступен, даже если под ним нет отдельного провайдера
func (a *Aggregator) GetMetric(ctx context.Context, name string, bypassCache bool) (model.MetricResult, error) {
	needed := []string{name}
	if name == MetricUserDistribution {
		needed = append(needed, MetricAdministration)
	}

	metrics := make(map[string]model.MetricResult, len(needed)+1)
	for _, id := range needed {
		p, ok := a.byID[id]
		if !ok {
			continue
		}
		res, err := fetch(ctx, p, bypassCache)
		if err != nil {
			return model.MetricResult{}, err
		}
		metrics[id] = res
	}
	normalizeDistributions(metrics)

	out, ok := metrics[name]
	if !ok {
		return model.MetricResult{}, fmt.Errorf("%w: %s", ErrUnknownMetric, name)
	}
	return out, nil
}

// fetch вызывает провайдер и превращает ошибку или панику в AggregationError
func fetch(ctx context.Context, p Provider, bypassCache bool) (res model.MetricResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &AggregationError{ProviderID: p.ID(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	res, err = p.GetData(ctx, bypassCache)
	if err != nil {
		return model.MetricResult{}, &AggregationError{ProviderID: p.ID(), Err: err}
	}
	return res, nil
}
