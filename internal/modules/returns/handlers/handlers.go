// Package handlers exposes the period query engine over HTTP.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/api"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/modules/returns"
	"github.com/jaehoon-ko/wonfolio/internal/utils"
)

// Handlers provides HTTP handlers for return queries.
type Handlers struct {
	service *returns.Service
	log     zerolog.Logger
}

// NewHandlers creates a new returns handlers instance.
func NewHandlers(service *returns.Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "returns").Logger(),
	}
}

// RegisterRoutes registers the return query routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/returns", func(r chi.Router) {
		r.Get("/period", h.HandlePeriodReturns)
	})
	r.Get("/summaries", h.HandleDailySummaries)
}

// HandlePeriodReturns handles GET /returns/period.
// Query params: period (default 1M), start/end for custom ranges, group_by
// (instrument|brokerage), benchmarks (kospi|sp500|nasdaq|both|all|none).
func (h *Handlers) HandlePeriodReturns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period := q.Get("period")
	if period == "" {
		period = returns.Period1M
	}

	report, err := h.service.PeriodReturns(returns.PeriodQuery{
		Spec: returns.PeriodSpec{
			Period: period,
			Start:  q.Get("start"),
			End:    q.Get("end"),
		},
		GroupBy:    q.Get("group_by"),
		Benchmarks: q.Get("benchmarks"),
	})
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, report)
}

// HandleDailySummaries handles GET /summaries?start=...&end=...
// A missing end defaults to today; a missing start defaults to 30 days
// before end.
func (h *Handlers) HandleDailySummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	end := q.Get("end")
	if end == "" {
		end = utils.Today()
	}
	endDay, err := utils.ParseDate(end)
	if err != nil {
		api.WriteError(w, h.log, &domain.ValidationError{Field: "end", Reason: "invalid date: " + end})
		return
	}
	start := q.Get("start")
	if start == "" {
		start = utils.FormatDate(endDay.AddDate(0, 0, -30))
	}

	rows, err := h.service.DailySummaries(start, end)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}

	api.WriteJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"start":     start,
		"end":       end,
		"summaries": rows,
	})
}
