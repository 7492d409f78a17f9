package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/asquebay/order-stats-service/internal/model"
	"github.com/asquebay/order-stats-service/internal/service"
)

// StatsGetter определяет интерфейс сервиса статистики дашборда
// хэндлер не зависит от конкретной реализации сервиса
type StatsGetter interface {
	GetAllStats(ctx context.Context, bypassCache bool) (model.AggregateResult, error)
	GetMetric(ctx context.Context, name string, bypassCache bool) (model.MetricResult, error)
	InvalidateAll(ctx context.Context) ([]string, error)
}

// Handler обрабатывает HTTP-запросы
type Handler struct {
	service StatsGetter
	log     *slog.Logger
	mux     *http.ServeMux
}

// NewHandler создает новый экземпляр Handler
func NewHandler(service StatsGetter, log *slog.Logger) *Handler {
	h := &Handler{
		service: service,
		log:     log,
		mux:     http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP делает Handler совместимым с http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes регистрирует все эндпоинты
func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /stats", h.getAllStats)
	h.mux.HandleFunc("GET /stats/{metric}", h.getMetric)
	h.mux.HandleFunc("POST /stats/invalidate", h.invalidate)
	h.mux.HandleFunc("GET /healthz", h.healthz)
}

func (h *Handler) getAllStats(w http.ResponseWriter, r *http.Request) {
	bypass, ok := h.refreshParam(w, r)
	if !ok {
		return
	}

	res, err := h.service.GetAllStats(r.Context(), bypass)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) getMetric(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("metric")
	if name == "" {
		h.respondError(w, http.StatusBadRequest, "metric is required")
		return
	}

	bypass, ok := h.refreshParam(w, r)
	if !ok {
		return
	}

	res, err := h.service.GetMetric(r.Context(), name, bypass)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, res)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.InvalidateAll(r.Context())
	if err != nil {
		h.log.Error("cache invalidation failed", slog.String("error", err.Error()))
		h.respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":       "cache invalidation incomplete",
			"invalidated": nonNil(keys),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"invalidated": nonNil(keys)})
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// refreshParam разбирает ?refresh=; пустое значение означает false
func (h *Handler) refreshParam(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("refresh")
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "refresh must be a boolean")
		return false, false
	}
	return v, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrUnknownMetric) {
		h.respondError(w, http.StatusNotFound, "unknown metric")
		return
	}

	var aggErr *service.AggregationError
	if errors.As(err, &aggErr) {
		h.log.Error("stats aggregation failed",
			slog.String("provider", aggErr.ProviderID),
			slog.String("error", err.Error()),
		)
		h.respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":    "stats aggregation failed",
			"provider": aggErr.ProviderID,
		})
		return
	}

	h.log.Error("internal server error", slog.String("error", err.Error()))
	h.respondError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal JSON response", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(response)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
