package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/asquebay/order-stats-service/internal/config"
	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/jonboulle/clockwork"
)

// StatsService — точка входа дашборда: сводная статистика, одна метрика и сброс кэша
type StatsService struct {
	aggregator  *Aggregator
	invalidator *Invalidator
	log         *slog.Logger
}

// NewStatsService создаёт сервис поверх готовых агрегатора и инвалидатора
func NewStatsService(aggregator *Aggregator, invalidator *Invalidator, log *slog.Logger) *StatsService {
	return &StatsService{
		aggregator:  aggregator,
		invalidator: invalidator,
		log:         log,
	}
}

// NewDashboard собирает весь граф зависимостей дашборда по конфигу
// он принимает интерфейсы, а не конкретные типы, для гибкости и тестируемости
func NewDashboard(repo StatsRepository, cache MetricCache, clock clockwork.Clock, cfg config.Stats, log *slog.Logger) (*StatsService, error) {
	const op = "service.NewDashboard"

	filter, err := NewAdministrationFilter(cfg.ExcludeTerms, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	loc := time.UTC
	if cfg.TimeZone != "" {
		if loc, err = time.LoadLocation(cfg.TimeZone); err != nil {
			return nil, fmt.Errorf("%s: invalid time zone: %w", op, err)
		}
	}

	sources := NewSources(repo, clock, SourceOptions{
		AdministrationLimit: cfg.AdministrationLimit,
		ProductsLimit:       cfg.ProductsLimit,
		TrendDays:           cfg.TrendDays,
		DefaultDepartments:  cfg.DefaultDepartments,
		Filter:              filter,
		Location:            loc,
	})

	chart := DashboardProviders(repo, sources, cache, clock, ProviderSettings{
		QueryTimeout:      cfg.QueryTimeout,
		DefaultTTL:        cfg.DefaultTTL,
		AdministrationTTL: cfg.AdministrationTTL,
		UserDeliveryTTL:   cfg.UserDeliveryTTL,
		TrendTTL:          cfg.TrendTTL,
		Location:          loc,
	}, log)

	providers := make([]Provider, len(chart))
	for i, p := range chart {
		providers[i] = p
	}

	return NewStatsService(
		NewAggregator(providers, clock, log),
		NewInvalidator(providers, cache, log),
		log,
	), nil
}

// GetAllStats возвращает сводную статистику по всем графикам
func (s *StatsService) GetAllStats(ctx context.Context, bypassCache bool) (model.AggregateResult, error) {
	const op = "service.StatsService.GetAllStats"
	log := s.log.With(slog.String("op", op), slog.Bool("bypass_cache", bypassCache))

	res, err := s.aggregator.GetAllStats(ctx, bypassCache)
	if err != nil {
		log.Error("failed to aggregate dashboard stats", slog.String("error", err.Error()))
		return model.AggregateResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("dashboard stats aggregated", slog.Int("metrics", len(res.Metrics)))
	return res, nil
}

// GetMetric возвращает одну метрику по имени
func (s *StatsService) GetMetric(ctx context.Context, name string, bypassCache bool) (model.MetricResult, error) {
	const op = "service.StatsService.GetMetric"
	log := s.log.With(slog.String("op", op), slog.String("metric", name), slog.Bool("bypass_cache", bypassCache))

	res, err := s.aggregator.GetMetric(ctx, name, bypassCache)
	if err != nil {
		// не логируем как ошибку, если метрика просто не существует
		if !errors.Is(err, ErrUnknownMetric) {
			log.Error("failed to get metric", slog.String("error", err.Error()))
		}
		return model.MetricResult{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

// InvalidateAll сбрасывает все известные ключи кэша
func (s *StatsService) InvalidateAll(ctx context.Context) ([]string, error) {
	return s.invalidator.InvalidateAll(ctx)
}

// Metrics возвращает имена доступных метрик, включая общий ключ распределения
func (s *StatsService) Metrics() []string {
	names := make([]string, 0, len(s.aggregator.Providers())+1)
	for _, p := range s.aggregator.Providers() {
		names = append(names, p.ID())
	}
	if !slices.Contains(names, MetricUserDistribution) {
		names = append(names, MetricUserDistribution)
	}
	return names
}
