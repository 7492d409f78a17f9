package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Invalidator сбрасывает все ключи кэша, известные зарегистрированным провайдерам
// параметризованные ключи вычисляются заново по текущему значению параметра
type Invalidator struct {
	providers []Provider
	cache     MetricCache
	log       *slog.Logger
}

// NewInvalidator создаёт инвалидатор поверх того же кэша, что используют провайдеры
func NewInvalidator(providers []Provider, cache MetricCache, log *slog.Logger) *Invalidator {
	return &Invalidator{providers: providers, cache: cache, log: log}
}

// InvalidateAll удаляет текущий ключ каждого провайдера и возвращает удалённые ключи
// сбой одного провайдера не мешает сбросить остальные; ошибки объединяются
func (i *Invalidator) InvalidateAll(ctx context.Context) ([]string, error) {
	const op = "service.Invalidator.InvalidateAll"
	log := i.log.With(slog.String("op", op))

	var (
		forgotten []string
		errs      []error
	)
	for _, p := range i.providers {
		key, err := p.CacheKey(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: key: %w", p.ID(), err))
			continue
		}
		if err := i.cache.Forget(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("%s: forget %q: %w", p.ID(), key, err))
			continue
		}
		forgotten = append(forgotten, key)
	}

	if err := errors.Join(errs...); err != nil {
		log.Error("cache invalidation incomplete",
			slog.Int("forgotten", len(forgotten)),
			slog.String("error", err.Error()),
		)
		return forgotten, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("dashboard cache invalidated", slog.Int("keys", len(forgotten)))
	return forgotten, nil
}
