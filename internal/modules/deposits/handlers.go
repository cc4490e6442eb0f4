package deposits

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/api"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
)

// Handlers provides HTTP handlers for the deposit ledger.
type Handlers struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandlers creates a new deposits handlers instance.
func NewHandlers(repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "deposits").Logger(),
	}
}

// RegisterRoutes registers the deposit ledger routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/deposits", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleAdd)
	})
}

// HandleList handles GET /deposits.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.List()
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, entries)
}

type addDepositRequest struct {
	Date      string  `json:"date"`
	AmountKRW float64 `json:"amount_krw"`
	Note      string  `json:"note"`
}

// HandleAdd handles POST /deposits. Negative amounts record withdrawals.
func (h *Handlers) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addDepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, h.log, &domain.ValidationError{Field: "body", Reason: "invalid JSON"})
		return
	}

	entry, err := h.repo.Add(req.Date, req.AmountKRW, req.Note)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusCreated, entry)
}
