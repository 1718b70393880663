// internal/taxonomy/handler.go
package taxonomy

import (
	"net/http"

	"github.com/go-chi/chi/v5"
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
	r.Get("/api/groups", h.handleListGroups)
	r.Post("/api/groups", h.handleCreateGroup)
	r.Get("/api/groups/{id}", h.handleGetGroup)
	r.Post("/api/groups/{id}/members", h.handleAddMember)
}

type nameRequest struct {
	Name     string `json:"name" validate:"notblank,max=200"`
	ImageURL string `json:"imageUrl"`
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, groups)
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	group, err := h.service.GetGroup(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, group)
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	group, created, err := h.service.CreateGroup(r.Context(), auth.UserID(r.Context()), req.Name, req.ImageURL)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, statusFor(created), group)
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var req nameRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	member, created, err := h.service.AddMember(r.Context(), groupID, req.Name, req.ImageURL)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, statusFor(created), member)
}

func statusFor(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
