// Package router configures the analyst's HTTP API.
//
// Routes configured:
//   - GET  /analytics/full?country=&city=&skill= - full report for a stored region-skill series
//   - DELETE /analytics/full?country=&city=&skill= - drop the cached report
//   - GET  /analytics/status                     - module readiness
//   - POST /analytics/half-life                  - half-life estimate for an ad-hoc demand series
//   - POST /forecast                             - recent-window linear forecast
//   - POST /pivots                               - safe/moderate/aggressive pivot recommendation
//   - GET  /pivots/catalog                       - active pivot catalog
//   - POST /simulations                          - shock scenario
//   - POST /gap                                  - skill gap against a region's top skills
//   - GET  /healthz                              - cache and source health
//   - GET  /metrics                              - Prometheus metrics
//
// Domain failures map to 404 (not found) or 422 (invalid or insufficient
// input); malformed JSON is a 400.
package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/skillhalflife/cmd/analyst/service"
	"github.com/HatiCode/skillhalflife/pkg/analytics"
	"github.com/HatiCode/skillhalflife/pkg/httpx"
	"github.com/HatiCode/skillhalflife/pkg/scenario"
	"github.com/HatiCode/skillhalflife/pkg/validation"
)

const maxBodyBytes = 1 << 20

// CacheHeader reports whether /analytics/full was served from the cache.
const CacheHeader = "X-Cache"

type keyQuery struct {
	Country string `validate:"required,min=2,max=100"`
	City    string `validate:"required,min=1,max=120"`
	Skill   string `validate:"required,min=1,max=160"`
}

type halfLifeRequest struct {
	DemandData []float64 `json:"demand_data" validate:"required"`
}

type forecastRequest struct {
	Values       []float64 `json:"values" validate:"required"`
	HorizonYears int       `json:"horizon_years" validate:"gte=0,lte=50"`
}

type pivotRequest struct {
	CurrentSkill string `json:"current_skill" validate:"required,max=160"`
}

type simulationRequest struct {
	DemandData      []float64 `json:"demand_data" validate:"required"`
	SalaryData      []float64 `json:"salary_data" validate:"required"`
	CompetitionData []float64 `json:"competition_data" validate:"required"`
	scenario.Shocks
}

type gapRequest struct {
	UserSkills   []string `json:"user_skills" validate:"required,dive,max=160"`
	RegionSkills []string `json:"region_skills" validate:"required,dive,max=160"`
}

type handlers struct {
	svc      *service.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// SetupRoutes configures HTTP endpoints for the analyst. gatherer backs
// /metrics.
func SetupRoutes(svc *service.Service, gatherer prometheus.Gatherer, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{svc: svc, validate: validator.New(validator.WithRequiredStructEnabled()), logger: logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /analytics/full", h.fullAnalytics)
	mux.HandleFunc("DELETE /analytics/full", h.invalidate)
	mux.HandleFunc("GET /analytics/status", func(w http.ResponseWriter, r *http.Request) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"module": "analytics", "status": "ready"})
	})
	mux.HandleFunc("POST /analytics/half-life", h.halfLife)
	mux.HandleFunc("POST /forecast", h.forecast)
	mux.HandleFunc("POST /pivots", h.pivots)
	mux.HandleFunc("GET /pivots/catalog", func(w http.ResponseWriter, r *http.Request) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"profiles": svc.Catalog()})
	})
	mux.HandleFunc("POST /simulations", h.simulate)
	mux.HandleFunc("POST /gap", h.gap)

	mux.Handle("GET /healthz", httpx.HealthHandlerWithCheck(svc.Ping))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

// keyFromQuery reads and validates the region-skill key. It writes the 422
// itself and returns false on failure.
func (h *handlers) keyFromQuery(w http.ResponseWriter, r *http.Request) (analytics.Key, bool) {
	q := r.URL.Query()
	params := keyQuery{
		Country: strings.TrimSpace(q.Get("country")),
		City:    strings.TrimSpace(q.Get("city")),
		Skill:   strings.TrimSpace(q.Get("skill")),
	}
	if err := h.validate.Struct(params); err != nil {
		httpx.WriteErrorMessage(w, r, http.StatusUnprocessableEntity, describe(err))
		return analytics.Key{}, false
	}
	return analytics.Key{Country: params.Country, City: params.City, Skill: params.Skill}, true
}

func (h *handlers) fullAnalytics(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyFromQuery(w, r)
	if !ok {
		return
	}

	report, cached, err := h.svc.Report(r.Context(), key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if cached {
		w.Header().Set(CacheHeader, "hit")
	} else {
		w.Header().Set(CacheHeader, "miss")
	}
	_ = httpx.WriteJSON(w, http.StatusOK, report)
}

func (h *handlers) invalidate(w http.ResponseWriter, r *http.Request) {
	key, ok := h.keyFromQuery(w, r)
	if !ok {
		return
	}
	if err := h.svc.Invalidate(r.Context(), key); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) halfLife(w http.ResponseWriter, r *http.Request) {
	var req halfLifeRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.HalfLife(req.DemandData)
	h.respond(w, r, result, err)
}

func (h *handlers) forecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.Forecast(req.Values, req.HorizonYears)
	h.respond(w, r, result, err)
}

func (h *handlers) pivots(w http.ResponseWriter, r *http.Request) {
	var req pivotRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.Pivots(req.CurrentSkill)
	h.respond(w, r, result, err)
}

func (h *handlers) simulate(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if !h.decode(w, r, &req) {
		return
	}
	result, err := h.svc.Simulate(req.DemandData, req.SalaryData, req.CompetitionData, req.Shocks)
	h.respond(w, r, result, err)
}

func (h *handlers) gap(w http.ResponseWriter, r *http.Request) {
	var req gapRequest
	if !h.decode(w, r, &req) {
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, h.svc.Gap(req.UserSkills, req.RegionSkills))
}

// decode reads a JSON body into v and validates it, writing the error
// response itself when it returns false.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		httpx.WriteErrorMessage(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		httpx.WriteErrorMessage(w, r, http.StatusUnprocessableEntity, describe(err))
		return false
	}
	return true
}

func (h *handlers) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, v)
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, ok := validation.KindOf(err)
	if !ok {
		h.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", httpx.RequestID(r.Context()),
			"error", err,
		)
		httpx.WriteErrorMessage(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	httpx.WriteError(w, r, StatusFor(kind), err)
}

// StatusFor maps a validation kind to its HTTP status.
func StatusFor(kind validation.Kind) int {
	switch kind {
	case validation.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

// describe turns validator errors into one readable line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
