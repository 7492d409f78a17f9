package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/asquebay/order-stats-service/internal/lib/logger"
	"github.com/asquebay/order-stats-service/internal/model"
	"github.com/asquebay/order-stats-service/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStats struct {
	aggregate   model.AggregateResult
	metric      model.MetricResult
	keys        []string
	err         error
	gotBypass   bool
	gotMetric   string
	invalidated bool
}

func (f *fakeStats) GetAllStats(_ context.Context, bypassCache bool) (model.AggregateResult, error) {
	f.gotBypass = bypassCache
	if f.err != nil {
		return model.AggregateResult{}, f.err
	}
	res := f.aggregate
	res.CacheBypassed = bypassCache
	return res, nil
}

func (f *fakeStats) GetMetric(_ context.Context, name string, bypassCache bool) (model.MetricResult, error) {
	f.gotMetric = name
	f.gotBypass = bypassCache
	if f.err != nil {
		return model.MetricResult{}, f.err
	}
	return f.metric, nil
}

func (f *fakeStats) InvalidateAll(context.Context) ([]string, error) {
	f.invalidated = true
	return f.keys, f.err
}

func newTestHandler(svc StatsGetter) *Handler {
	return NewHandler(svc, logger.Discard())
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGetAllStats(t *testing.T) {
	generated := time.Date(2026, 10, 16, 10, 30, 0, 0, time.UTC)
	svc := &fakeStats{aggregate: model.AggregateResult{
		Metrics: map[string]model.MetricResult{
			"delivery": model.SingleSeries([]string{"delivered", "not delivered"}, []int64{3, 4}, model.KindGeneric),
		},
		GeneratedAt: generated,
	}}

	rec := serve(t, newTestHandler(svc), http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.False(t, svc.gotBypass)

	var res model.AggregateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, [][]int64{{3, 4}}, res.Metrics["delivery"].Series)
	assert.False(t, res.CacheBypassed)
}

func TestGetAllStats_RefreshParam(t *testing.T) {
	tests := []struct {
		query      string
		wantCode   int
		wantBypass bool
	}{
		{query: "?refresh=1", wantCode: http.StatusOK, wantBypass: true},
		{query: "?refresh=true", wantCode: http.StatusOK, wantBypass: true},
		{query: "?refresh=0", wantCode: http.StatusOK, wantBypass: false},
		{query: "?refresh=maybe", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			svc := &fakeStats{}
			rec := serve(t, newTestHandler(svc), http.MethodGet, "/stats"+tt.query)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBypass, svc.gotBypass)
		})
	}
}

func TestGetAllStats_AggregationError(t *testing.T) {
	svc := &fakeStats{err: fmt.Errorf("service.StatsService.GetAllStats: %w",
		&service.AggregationError{ProviderID: "order_trend", Err: context.Canceled})}

	rec := serve(t, newTestHandler(svc), http.MethodGet, "/stats")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "order_trend", body["provider"])
	assert.NotEmpty(t, body["error"])
}

func TestGetMetric(t *testing.T) {
	svc := &fakeStats{metric: model.Placeholder(model.PlaceholderNoData, model.KindGeneric)}

	rec := serve(t, newTestHandler(svc), http.MethodGet, "/stats/delivered_products?refresh=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "delivered_products", svc.gotMetric)
	assert.True(t, svc.gotBypass)

	body := decodeBody(t, rec)
	assert.Equal(t, []any{model.PlaceholderNoData}, body["labels"])
}

func TestGetMetric_Unknown(t *testing.T) {
	svc := &fakeStats{err: fmt.Errorf("op: %w: revenue", service.ErrUnknownMetric)}

	rec := serve(t, newTestHandler(svc), http.MethodGet, "/stats/revenue")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMetric_InternalError(t *testing.T) {
	svc := &fakeStats{err: errors.New("boom")}

	rec := serve(t, newTestHandler(svc), http.MethodGet, "/stats/delivery")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeBody(t, rec)["error"])
}

func TestInvalidate(t *testing.T) {
	svc := &fakeStats{keys: []string{"order_status:12", "administration"}}

	rec := serve(t, newTestHandler(svc), http.MethodPost, "/stats/invalidate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.invalidated)
	assert.Equal(t, []any{"order_status:12", "administration"}, decodeBody(t, rec)["invalidated"])
}

func TestInvalidate_Partial(t *testing.T) {
	svc := &fakeStats{err: errors.New("forget failed")}

	rec := serve(t, newTestHandler(svc), http.MethodPost, "/stats/invalidate")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, []any{}, decodeBody(t, rec)["invalidated"])
}

func TestInvalidate_WrongMethod(t *testing.T) {
	rec := serve(t, newTestHandler(&fakeStats{}), http.MethodDelete, "/stats/invalidate")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := serve(t, newTestHandler(&fakeStats{}), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
