package snapshots

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/api"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
	"github.com/jaehoon-ko/wonfolio/internal/utils"
)

// Handlers provides HTTP handlers for reading daily snapshots.
type Handlers struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandlers creates snapshot handlers.
func NewHandlers(repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "snapshots").Logger(),
	}
}

// RegisterRoutes registers snapshot routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/snapshots", h.HandleByDate)
}

// HandleByDate returns the per-instrument snapshots for one date,
// defaulting to today.
func (h *Handlers) HandleByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = utils.Today()
	}
	if _, err := utils.ParseDate(date); err != nil {
		api.WriteError(w, h.log, &domain.ValidationError{Field: "date", Reason: "invalid date: " + date})
		return
	}

	rows, err := h.repo.GetByDate(date)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, rows)
}
