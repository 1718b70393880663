// internal/wishlist/handler.go
package wishlist

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pocabinder/internal/auth"
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
	r.Get("/api/wishlist", h.handleList)
	r.Post("/api/wishlist", h.handleCreate)
	r.Patch("/api/wishlist/{id}", h.handleUpdate)
	r.Delete("/api/wishlist/{id}", h.handleDelete)
}

type createRequest struct {
	CatalogID    *uuid.UUID `json:"catalogId"`
	GroupName    string     `json:"groupName" validate:"required_without=CatalogID,omitempty,notblank,max=200"`
	AlbumName    string     `json:"albumName" validate:"omitempty,max=200"`
	MemberName   string     `json:"memberName" validate:"required_without=CatalogID,omitempty,notblank,max=200"`
	ImageURL     string     `json:"imageUrl"`
	Notes        string     `json:"notes" validate:"max=2000"`
	Priority     int        `json:"priority" validate:"gte=0,lte=10"`
	AddToCatalog bool       `json:"addToCatalog"`
}

type updateRequest struct {
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
	Priority *int    `json:"priority" validate:"omitempty,gte=0,lte=10"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	item, err := h.service.Create(r.Context(), auth.UserID(r.Context()), NewItem{
		CatalogID:    req.CatalogID,
		GroupName:    req.GroupName,
		AlbumName:    req.AlbumName,
		MemberName:   req.MemberName,
		ImageURL:     req.ImageURL,
		Notes:        req.Notes,
		Priority:     req.Priority,
		AddToCatalog: req.AddToCatalog,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
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
	item, err := h.service.Update(r.Context(), auth.UserID(r.Context()), id, Changes{
		Notes:    req.Notes,
		Priority: req.Priority,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
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
