package model

import (
	"errors"
	"fmt"
	"time"
)

// DataKind помечает смысл категориального распределения,
// чтобы потребители различали данные по подразделениям и по пользователям
type DataKind string

const (
	KindAdministration DataKind = "administration"
	KindUser           DataKind = "user"
	KindGeneric        DataKind = "generic"
)

// Подписи-заглушки: графики ожидают минимум одну точку
const (
	PlaceholderNoData        = "no data"
	PlaceholderNoUsers       = "no users"
	PlaceholderNoDepartments = "no departments"
	PlaceholderError         = "error"
)

// MetricResult — единый формат ответа любого провайдера графика
// labels и каждая серия series выровнены по индексу и никогда не пусты
type MetricResult struct {
	Labels      []string  `json:"labels"`
	Series      [][]int64 `json:"series"`
	DataKind    DataKind  `json:"dataKind"`
	IsFromCache bool      `json:"isFromCache"`
	ProviderID  string    `json:"providerId,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
	IsEmpty     bool      `json:"isEmpty,omitempty"`
	IsSynthetic bool      `json:"isSynthetic,omitempty"`
	All         []Detail  `json:"all,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Detail — построчная детализация метрики для постраничного вывода на клиенте
type Detail struct {
	ID    int64             `json:"id,omitempty"`
	Label string            `json:"label"`
	Value int64             `json:"value"`
	Meta  map[string]string `json:"meta,omitempty"`
}

var (
	ErrEmptyLabels      = errors.New("metric has no labels")
	ErrEmptySeries      = errors.New("metric has no series")
	ErrSeriesMisaligned = errors.New("series length differs from labels length")
)

// Validate проверяет инвариант формы: есть хотя бы одна подпись и одна серия,
// и длина каждой серии совпадает с числом подписей
func (m MetricResult) Validate() error {
	if len(m.Labels) == 0 {
		return ErrEmptyLabels
	}
	if len(m.Series) == 0 {
		return ErrEmptySeries
	}
	for i, s := range m.Series {
		if len(s) != len(m.Labels) {
			return fmt.Errorf("series %d: %w (%d != %d)", i, ErrSeriesMisaligned, len(s), len(m.Labels))
		}
	}
	return nil
}

// Clone возвращает глубокую копию, чтобы нормализация не портила значения из кэша
func (m MetricResult) Clone() MetricResult {
	out := m
	out.Labels = append([]string(nil), m.Labels...)
	out.Series = make([][]int64, len(m.Series))
	for i, s := range m.Series {
		out.Series[i] = append([]int64(nil), s...)
	}
	if m.All != nil {
		out.All = make([]Detail, len(m.All))
		for i, d := range m.All {
			out.All[i] = d
			if d.Meta != nil {
				meta := make(map[string]string, len(d.Meta))
				for k, v := range d.Meta {
					meta[k] = v
				}
				out.All[i].Meta = meta
			}
		}
	}
	return out
}

// SingleSeries собирает результат из одной серии значений
func SingleSeries(labels []string, values []int64, kind DataKind) MetricResult {
	return MetricResult{
		Labels:   labels,
		Series:   [][]int64{values},
		DataKind: kind,
	}
}

// Placeholder возвращает результат с одной подписью-заглушкой и нулём
func Placeholder(label string, kind DataKind) MetricResult {
	return SingleSeries([]string{label}, []int64{0}, kind)
}

// AggregateResult — сводный ответ дашборда по всем провайдерам
type AggregateResult struct {
	Metrics       map[string]MetricResult `json:"metrics"`
	GeneratedAt   time.Time               `json:"generatedAt"`
	CacheBypassed bool                    `json:"cacheBypassed"`
}
