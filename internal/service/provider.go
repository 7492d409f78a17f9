package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/jonboulle/clockwork"
)

// KeyFunc вычисляет ключ кэша провайдера; ключ меняется ровно тогда,
// когда прежний результат следует считать устаревшим
type KeyFunc func(ctx context.Context) (string, error)

// SourceFunc выполняет запрос метрики
type SourceFunc func(ctx context.Context) (model.MetricResult, error)

// ProviderDef описывает одну метрику: политику ключа, TTL и источник
type ProviderDef struct {
	ID     string
	Kind   model.DataKind
	TTL    time.Duration
	Key    KeyFunc
	Source SourceFunc
}

// ChartProvider оборачивает источник метрики кэшированием и заглушкой на случай ошибки
type ChartProvider struct {
	def     ProviderDef
	cache   MetricCache
	clock   clockwork.Clock
	timeout time.Duration
	log     *slog.Logger
}

// NewChartProvider создаёт провайдер
// timeout ограничивает вычисление ключа и запрос к источнику; 0 — без ограничения
func NewChartProvider(def ProviderDef, cache MetricCache, clock clockwork.Clock, timeout time.Duration, log *slog.Logger) *ChartProvider {
	return &ChartProvider{
		def:     def,
		cache:   cache,
		clock:   clock,
		timeout: timeout,
		log:     log,
	}
}

// ID возвращает идентификатор метрики
func (p *ChartProvider) ID() string {
	return p.def.ID
}

// CacheKey вычисляет текущий ключ кэша
func (p *ChartProvider) CacheKey(ctx context.Context) (string, error) {
	return p.def.Key(ctx)
}

// GetData возвращает результат метрики, по возможности из кэша
// при bypassCache ключ сначала удаляется и метрика всегда пересчитывается
// ошибка источника и истечение любого таймаута превращаются в заглушку;
// ошибка возвращается только если вызывающий отменил контекст
func (p *ChartProvider) GetData(ctx context.Context, bypassCache bool) (model.MetricResult, error) {
	const op = "service.ChartProvider.GetData"
	log := p.log.With(slog.String("op", op), slog.String("provider", p.def.ID))

	qctx, cancel := p.queryContext(ctx)
	defer cancel()

	key, err := p.def.Key(qctx)
	if err != nil {
		return p.fail(ctx, log, sourceErr(p.def.ID, err))
	}

	if bypassCache {
		if err := p.cache.Forget(ctx, key); err != nil {
			log.Warn("cache forget failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	} else {
		cached, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			// кэш — оптимизация, при его недоступности идём в источник
			log.Warn("cache read failed, fetching fresh", slog.String("key", key), slog.String("error", err.Error()))
		case ok:
			log.Debug("metric served from cache", slog.String("key", key))
			cached.IsFromCache = true
			cached.ProviderID = p.def.ID
			return cached, nil
		}
	}

	result, err := p.def.Source(qctx)
	if err == nil {
		if verr := result.Validate(); verr != nil {
			err = sourceErr(p.def.ID, verr)
		}
	}
	if err != nil {
		return p.fail(ctx, log, err)
	}

	result.IsFromCache = false
	result.ProviderID = p.def.ID
	result.GeneratedAt = p.clock.Now()
	if result.DataKind == "" {
		result.DataKind = p.def.Kind
	}

	if err := p.cache.Put(ctx, key, result, p.def.TTL); err != nil {
		log.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	} else {
		log.Debug("metric computed and cached", slog.String("key", key), slog.Duration("ttl", p.def.TTL))
	}

	return result, nil
}

func (p *ChartProvider) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// fail отдаёт заглушку вместо результата; в кэш она не попадает
// истёкший дедлайн вызывающего тоже даёт заглушку, ошибкой считается только явная отмена
func (p *ChartProvider) fail(ctx context.Context, log *slog.Logger, err error) (model.MetricResult, error) {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return model.MetricResult{}, fmt.Errorf("%s: %w", p.def.ID, ctxErr)
	}

	log.Error("data source failed, serving fallback", slog.String("error", err.Error()))
	return p.fallback(err), nil
}

func (p *ChartProvider) fallback(err error) model.MetricResult {
	res := model.Placeholder(model.PlaceholderError, p.def.Kind)
	res.ProviderID = p.def.ID
	res.GeneratedAt = p.clock.Now()
	res.Error = err.Error()
	return res
}
