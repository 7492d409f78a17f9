package service

import (
	"errors"
	"fmt"
)

// ErrUnknownMetric возвращается, если запрошенная метрика не зарегистрирована
var ErrUnknownMetric = errors.New("unknown metric")

// DataSourceError — сбой запроса метрики (соединение, битые данные, таймаут)
// перехватывается провайдером и превращается в результат-заглушку
type DataSourceError struct {
	Metric string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %v", e.Metric, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// AggregationError — провайдер не смог вернуть даже заглушку
// сводный ответ в этом случае целиком считается неуспешным
type AggregationError struct {
	ProviderID string
	Err        error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation failed at provider %s: %v", e.ProviderID, e.Err)
}

func (e *AggregationError) Unwrap() error {
	return e.Err
}

func sourceErr(metric string, err error) error {
	return &DataSourceError{Metric: metric, Err: err}
}
