package manual

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/api"
	"github.com/jaehoon-ko/wonfolio/internal/domain"
)

// Handlers provides HTTP handlers for manual assets.
type Handlers struct {
	repo *Repository
	log  zerolog.Logger
}

// NewHandlers creates a new manual asset handlers instance.
func NewHandlers(repo *Repository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "manual_assets").Logger(),
	}
}

// RegisterRoutes registers the manual asset routes.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/manual-assets", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

// HandleList handles GET /manual-assets.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	assets, err := h.repo.GetAll()
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, assets)
}

// HandleCreate handles POST /manual-assets.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.decodeAsset(w, r)
	if !ok {
		return
	}

	created, err := h.repo.Create(asset)
	if err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusCreated, created)
}

// HandleUpdate handles PUT /manual-assets/{id}.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteError(w, h.log, &domain.ValidationError{Field: "id", Reason: "must be an integer"})
		return
	}

	asset, ok := h.decodeAsset(w, r)
	if !ok {
		return
	}
	asset.ID = id

	if err := h.repo.Update(asset); err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, asset)
}

// HandleDelete handles DELETE /manual-assets/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteError(w, h.log, &domain.ValidationError{Field: "id", Reason: "must be an integer"})
		return
	}

	if err := h.repo.Delete(id); err != nil {
		api.WriteError(w, h.log, err)
		return
	}
	api.WriteJSON(w, h.log, http.StatusOK, map[string]int64{"deleted": id})
}

func (h *Handlers) decodeAsset(w http.ResponseWriter, r *http.Request) (domain.ManualAsset, bool) {
	var asset domain.ManualAsset
	if err := json.NewDecoder(r.Body).Decode(&asset); err != nil {
		api.WriteError(w, h.log, &domain.ValidationError{Field: "body", Reason: "invalid JSON"})
		return asset, false
	}
	return asset, true
}
