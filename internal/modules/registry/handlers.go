package registry

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/api"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
)

// Handlers provides HTTP handlers for the instrument registry.
type Handlers struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandlers creates registry handlers.
func NewHandlers(repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "registry").Logger(),
	}
}

// RegisterRoutes registers registry routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/instruments", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/brokerages", h.HandleBrokerages)
		r.Get("/{id}", h.HandleGet)
	})
}

// HandleList returns every registered instrument.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	instruments, err := h.repo.GetAll()
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, instruments)
}

// HandleGet returns one instrument by id.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteError(w, h.log, &domain.ValidationError{Field: "id", Reason: "must be an integer"})
		return
	}

	instrument, err := h.repo.GetByID(id)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, instrument)
}

// HandleBrokerages returns the distinct brokerages seen across instruments.
func (h *Handlers) HandleBrokerages(w http.ResponseWriter, r *http.Request) {
	brokerages, err := h.repo.Brokerages()
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, brokerages)
}
