// internal/collection/handler.go
package collection

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pocabinder/internal/auth"
	"pocabinder/internal/catalog"
	"pocabinder/internal/httpx"
	"pocabinder/internal/validation"
)

type Handler struct {
	service   Service
	validator *validation.Validator
	log       *zap.Logger
}

func NewHandler(service Service, v *validation.Validator, log *zap.Logger) *Handler {
	return &Handler{service: service, validator: v, log: log}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/photocards", h.handleList)
	r.Post("/api/photocards", h.handleCreate)
	r.Get("/api/photocards/{id}", h.handleGet)
	r.Patch("/api/photocards/{id}", h.handleUpdate)
	r.Delete("/api/photocards/{id}", h.handleDelete)
	r.Post("/api/catalog/add-to-collection", h.handleAddFromCatalog)
	r.Get("/api/stats", h.handleStats)
}

type createRequest struct {
	GroupName    string  `json:"groupName" validate:"notblank,max=200"`
	AlbumName    string  `json:"albumName" validate:"notblank,max=200"`
	MemberName   string  `json:"memberName" validate:"notblank,max=200"`
	Version      *string `json:"version" validate:"omitempty,max=200"`
	ImageURL     string  `json:"imageUrl"`
	Rarity       string  `json:"rarity" validate:"omitempty,oneof=common limited pob special"`
	AddToCatalog bool    `json:"addToCatalog"`
}

type updateRequest struct {
	GroupName    *string                  `json:"groupName" validate:"omitempty,max=200"`
	AlbumName    *string                  `json:"albumName" validate:"omitempty,max=200"`
	MemberName   *string                  `json:"memberName" validate:"omitempty,max=200"`
	Version      catalog.Optional[string] `json:"version"`
	ImageURL     *string                  `json:"imageUrl"`
	Rarity       *string                  `json:"rarity" validate:"omitempty,oneof=common limited pob special"`
	AddToCatalog bool                     `json:"addToCatalog"`
}

type addFromCatalogRequest struct {
	CatalogID uuid.UUID `json:"catalogId" validate:"required"`
}

type submittedResponse struct {
	Message   string    `json:"message"`
	CatalogID uuid.UUID `json:"catalogId"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cards, err := h.service.List(r.Context(), auth.UserID(r.Context()), Filter{
		GroupSlug:  q.Get("group"),
		AlbumSlug:  q.Get("album"),
		MemberSlug: q.Get("member"),
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cards)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	userID := auth.UserID(r.Context())
	in := NewPhotocard{
		GroupName:  req.GroupName,
		AlbumName:  req.AlbumName,
		MemberName: req.MemberName,
		Version:    catalog.BlankAsNull(req.Version),
		ImageURL:   req.ImageURL,
		Rarity:     catalog.Rarity(req.Rarity),
	}

	if req.AddToCatalog {
		entry, err := h.service.SubmitToCatalog(r.Context(), userID, in)
		if err != nil {
			httpx.WriteError(w, r, h.log, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, submittedResponse{
			Message:   "Photocard added to the shared catalog. Add it to your collection from the catalog.",
			CatalogID: entry.ID,
		})
		return
	}

	card, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, card)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	card, err := h.service.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	var req updateRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	changes := Changes{
		Changes: catalog.Changes{
			GroupName:  req.GroupName,
			AlbumName:  req.AlbumName,
			MemberName: req.MemberName,
			ImageURL:   req.ImageURL,
		},
		AddToCatalog: req.AddToCatalog,
	}
	if req.Version.Set {
		changes.Version = catalog.Optional[string]{Set: true, Value: catalog.BlankAsNull(req.Version.Value)}
	}
	if req.Rarity != nil {
		rarity := catalog.Rarity(*req.Rarity)
		changes.Rarity = &rarity
	}

	card, err := h.service.Update(r.Context(), auth.UserID(r.Context()), id, changes)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleAddFromCatalog(w http.ResponseWriter, r *http.Request) {
	var req addFromCatalogRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	card, err := h.service.AddFromCatalog(r.Context(), auth.UserID(r.Context()), req.CatalogID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, card)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}
