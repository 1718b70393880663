// internal/binder/handler.go
package binder

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
	r.Get("/api/binders", h.handleList)
	r.Post("/api/binders", h.handleCreate)
	r.Patch("/api/binders/pages/{id}", h.handleUpdatePage)
	r.Get("/api/binders/pages/{id}/decorations", h.handleListDecorations)
	r.Post("/api/binders/pages/{id}/decorations", h.handleCreateDecoration)
	r.Patch("/api/binders/pages/decorations/{id}", h.handleUpdateDecoration)
	r.Delete("/api/binders/pages/decorations/{id}", h.handleDeleteDecoration)
	r.Get("/api/binders/{id}", h.handleGet)
	r.Patch("/api/binders/{id}", h.handleUpdate)
	r.Delete("/api/binders/{id}", h.handleDelete)
	r.Post("/api/binders/{id}/pages", h.handleAddPage)
	r.Patch("/api/slots", h.handleAssignSlot)
}

type createRequest struct {
	Name string `json:"name" validate:"max=200"`
}

type updateRequest struct {
	Name           *string `json:"name" validate:"omitempty,max=200"`
	IsPublic       *bool   `json:"isPublic"`
	Theme          *string `json:"theme" validate:"omitempty,max=100"`
	PrimaryColor   *string `json:"primaryColor"`
	SecondaryColor *string `json:"secondaryColor"`
	AccentColor    *string `json:"accentColor"`
}

type pageRequest struct {
	PageType        *string `json:"pageType" validate:"omitempty,oneof=cover pockets normal"`
	BackgroundType  *string `json:"backgroundType" validate:"omitempty,oneof=color image"`
	BackgroundValue *string `json:"backgroundValue"`
}

type slotRequest struct {
	SlotID      uuid.UUID  `json:"slotId" validate:"required"`
	PhotocardID *uuid.UUID `json:"photocardId"`
}

type decorationRequest struct {
	Type       string   `json:"type" validate:"required,oneof=sticker text image"`
	Content    string   `json:"content" validate:"notblank"`
	PositionX  float64  `json:"positionX"`
	PositionY  float64  `json:"positionY"`
	Width      *float64 `json:"width" validate:"omitempty,gt=0"`
	Height     *float64 `json:"height" validate:"omitempty,gt=0"`
	Rotation   float64  `json:"rotation"`
	ZIndex     int      `json:"zIndex"`
	Shape      *string  `json:"shape"`
	FontSize   *float64 `json:"fontSize" validate:"omitempty,gt=0"`
	FontColor  *string  `json:"fontColor" validate:"omitempty,hexcolor3or6"`
	FontFamily *string  `json:"fontFamily"`
}

type decorationUpdateRequest struct {
	Content    *string  `json:"content" validate:"omitempty,notblank"`
	PositionX  *float64 `json:"positionX"`
	PositionY  *float64 `json:"positionY"`
	Width      *float64 `json:"width" validate:"omitempty,gt=0"`
	Height     *float64 `json:"height" validate:"omitempty,gt=0"`
	Rotation   *float64 `json:"rotation"`
	ZIndex     *int     `json:"zIndex"`
	Shape      *string  `json:"shape"`
	FontSize   *float64 `json:"fontSize" validate:"omitempty,gt=0"`
	FontColor  *string  `json:"fontColor" validate:"omitempty,hexcolor3or6"`
	FontFamily *string  `json:"fontFamily"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	binders, err := h.service.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, binders)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
			httpx.WriteError(w, r, h.log, err)
			return
		}
	}
	b, err := h.service.Create(r.Context(), auth.UserID(r.Context()), req.Name)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	b, err := h.service.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
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
	b, err := h.service.Update(r.Context(), auth.UserID(r.Context()), id, Changes{
		Name:           req.Name,
		IsPublic:       req.IsPublic,
		Theme:          req.Theme,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
		AccentColor:    req.AccentColor,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
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

func (h *Handler) handleAddPage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	page, err := h.service.AddPage(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, page)
}

func (h *Handler) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var req pageRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	changes := PageChanges{BackgroundType: req.BackgroundType, BackgroundValue: req.BackgroundValue}
	if req.PageType != nil {
		pt := PageType(*req.PageType)
		changes.PageType = &pt
	}
	page, err := h.service.UpdatePage(r.Context(), auth.UserID(r.Context()), id, changes)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleAssignSlot(w http.ResponseWriter, r *http.Request) {
	var req slotRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	slot, err := h.service.AssignSlot(r.Context(), auth.UserID(r.Context()), req.SlotID, req.PhotocardID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, slot)
}

func (h *Handler) handleListDecorations(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	decorations, err := h.service.ListDecorations(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, decorations)
}

func (h *Handler) handleCreateDecoration(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var req decorationRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	d, err := h.service.CreateDecoration(r.Context(), auth.UserID(r.Context()), id, NewDecoration{
		Type:       req.Type,
		Content:    req.Content,
		PositionX:  req.PositionX,
		PositionY:  req.PositionY,
		Width:      req.Width,
		Height:     req.Height,
		Rotation:   req.Rotation,
		ZIndex:     req.ZIndex,
		Shape:      req.Shape,
		FontSize:   req.FontSize,
		FontColor:  req.FontColor,
		FontFamily: req.FontFamily,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleUpdateDecoration(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var req decorationUpdateRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	d, err := h.service.UpdateDecoration(r.Context(), auth.UserID(r.Context()), id, DecorationChanges{
		Content:    req.Content,
		PositionX:  req.PositionX,
		PositionY:  req.PositionY,
		Width:      req.Width,
		Height:     req.Height,
		Rotation:   req.Rotation,
		ZIndex:     req.ZIndex,
		Shape:      req.Shape,
		FontSize:   req.FontSize,
		FontColor:  req.FontColor,
		FontFamily: req.FontFamily,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDeleteDecoration(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.DeleteDecoration(r.Context(), auth.UserID(r.Context()), id); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
