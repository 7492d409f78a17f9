package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/jonboulle/clockwork"
)

// Идентификаторы метрик; они же ключи в сводном ответе
const (
	MetricOrderStatus       = "order_status"
	MetricDelivery          = "delivery"
	MetricAdministration    = "administration"
	MetricUserDelivery      = "user_delivery"
	MetricDeliveredProducts = "delivered_products"
	MetricOrderTrend        = "order_trend"

	// MetricUserDistribution — общий ключ распределения для старых потребителей
	MetricUserDistribution = "user_distribution"
)

// Подписи графика доставки
const (
	LabelDelivered    = "delivered"
	LabelNotDelivered = "not delivered"
)

// SourceOptions — параметры запросов метрик
type SourceOptions struct {
	AdministrationLimit int
	ProductsLimit       int
	TrendDays           int
	DefaultDepartments  []string
	Filter              *AdministrationFilter
	// Location задаёт календарь тренда; nil означает UTC
	Location *time.Location
}

// Sources содержит чистые функции чтения метрик поверх StatsRepository
// каждая функция либо возвращает полный результат, либо DataSourceError
type Sources struct {
	repo  StatsRepository
	clock clockwork.Clock
	opts  SourceOptions
}

// NewSources создает набор источников метрик
func NewSources(repo StatsRepository, clock clockwork.Clock, opts SourceOptions) *Sources {
	if opts.TrendDays <= 0 {
		opts.TrendDays = 7
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Sources{repo: repo, clock: clock, opts: opts}
}

// OrderStatusCounts — число заказов по статусу в фиксированном порядке категорий
// все четыре категории присутствуют даже при нулевых значениях
func (s *Sources) OrderStatusCounts(ctx context.Context) (model.MetricResult, error) {
	counts, err := s.repo.CountOrdersByStatus(ctx)
	if err != nil {
		return model.MetricResult{}, sourceErr(MetricOrderStatus, err)
	}

	labels := make([]string, len(model.OrderStatuses))
	values := make([]int64, len(model.OrderStatuses))
	for i, st := range model.OrderStatuses {
		labels[i] = string(st)
		values[i] = counts[st]
	}
	return model.SingleSeries(labels, values, model.KindGeneric), nil
}

// DeliveryCounts — доставленные и недоставленные заказы, в сумме равные общему числу
func (s *Sources) DeliveryCounts(ctx context.Context) (model.MetricResult, error) {
	total, delivered, err := s.repo.CountDelivered(ctx)
	if err != nil {
		return model.MetricResult{}, sourceErr(MetricDelivery, err)
	}

	return model.SingleSeries(
		[]string{LabelDelivered, LabelNotDelivered},
		[]int64{delivered, total - delivered},
		model.KindGeneric,
	), nil
}

// AdministrationDistribution — доставленные заказы по подразделениям заказчиков
// при отсутствии подходящих подразделений возвращается список по умолчанию с нулями
func (s *Sources) AdministrationDistribution(ctx context.Context) (model.MetricResult, error) {
	rows, err := s.repo.DeliveredByAdministration(ctx)
	if err != nil {
		return model.MetricResult{}, sourceErr(MetricAdministration, err)
	}

	labels := make([]string, 0, len(rows))
	values := make([]int64, 0, len(rows))
	for _, row := range sortedDesc(rows) {
		if !s.opts.Filter.Allowed(row.Label) {
			continue
		}
		labels = append(labels, row.Label)
		values = append(values, row.Count)
		if s.opts.AdministrationLimit > 0 && len(labels) == s.opts.AdministrationLimit {
			break
		}
	}

	if len(labels) == 0 {
		return s.defaultDepartments(), nil
	}
	return model.SingleSeries(labels, values, model.KindAdministration), nil
}

func (s *Sources) defaultDepartments() model.MetricResult {
	if len(s.opts.DefaultDepartments) == 0 {
		res := model.Placeholder(model.PlaceholderNoDepartments, model.KindAdministration)
		res.IsSynthetic = true
		return res
	}
	labels := append([]string(nil), s.opts.DefaultDepartments...)
	res := model.SingleSeries(labels, make([]int64, len(labels)), model.KindAdministration)
	res.IsSynthetic = true
	return res
}

// UserDeliveryDistribution — доставленные заказы по пользователю
// подпись "имя (табельный номер)", построчная детализация уходит в All
func (s *Sources) UserDeliveryDistribution(ctx context.Context) (model.MetricResult, error) {
	rows, err := s.repo.DeliveredByUser(ctx)
	if err != nil {
		return model.MetricResult{}, sourceErr(MetricUserDelivery, err)
	}

	if len(rows) == 0 {
		res := model.Placeholder(model.PlaceholderNoUsers, model.KindUser)
		res.IsEmpty = true
		return res, nil
	}

	sortUsersDesc(rows)

	labels := make([]string, len(rows))
	values := make([]int64, len(rows))
	details := make([]model.Detail, len(rows))
	for i, u := range rows {
		labels[i] = u.Label()
		values[i] = u.Count
		details[i] = model.Detail{
			ID:    u.UserID,
			Label: u.Name,
			Value: u.Count,
			Meta: map[string]string{
				"matricule":      u.Matricule,
				"administration": u.Administration,
			},
		}
	}

	res := model.SingleSeries(labels, values, model.KindUser)
	res.All = details
	return res, nil
}

// DeliveredProductsDistribution — доставленное количество по товару, топ по убыванию
func (s *Sources) DeliveredProductsDistribution(ctx context.Context) (model.MetricResult, error) {
	rows, err := s.repo.DeliveredProductQuantities(ctx, s.opts.ProductsLimit)
	if err != nil {
		return model.MetricResult{}, sourceErr(MetricDeliveredProducts, err)
	}

	rows = sortedDesc(rows)
	if s.opts.ProductsLimit > 0 && len(rows) > s.opts.ProductsLimit {
		rows = rows[:s.opts.ProductsLimit]
	}

	if len(rows) == 0 {
		res := model.Placeholder(model.PlaceholderNoData, model.KindGeneric)
		res.IsEmpty = true
		return res, nil
	}

	labels := make([]string, len(rows))
	values := make([]int64, len(rows))
	for i, row := range rows {
		labels[i] = row.Label
		values[i] = row.Count
	}
	return model.SingleSeries(labels, values, model.KindGeneric), nil
}

// OrderTrend — число созданных заказов по дням за последние N дней включая сегодня
// от старых к новым, дни без заказов дают ноль
func (s *Sources) OrderTrend(ctx context.Context) (model.MetricResult, error) {
	now := s.clock.Now().In(s.opts.Location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(s.opts.TrendDays - 1))

	rows, err := s.repo.OrdersCreatedPerDay(ctx, start, s.opts.Location.String())
	if err != nil {
		return model.MetricResult{}, sourceErr(MetricOrderTrend, err)
	}

	byDay := make(map[string]int64, len(rows))
	for _, row := range rows {
		byDay[row.Day.Format(time.DateOnly)] += row.Count
	}

	labels := make([]string, s.opts.TrendDays)
	values := make([]int64, s.opts.TrendDays)
	for i := range s.opts.TrendDays {
		day := start.AddDate(0, 0, i)
		labels[i] = day.Format("02/01")
		values[i] = byDay[day.Format(time.DateOnly)]
	}
	return model.SingleSeries(labels, values, model.KindGeneric), nil
}

// sortedDesc возвращает копию строк, отсортированную по убыванию количества
// порядок строк с равным количеством сохраняется
func sortedDesc(rows []model.LabelCount) []model.LabelCount {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b model.LabelCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}

func sortUsersDesc(rows []model.UserDeliveryCount) {
	slices.SortStableFunc(rows, func(a, b model.UserDeliveryCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
}
