// internal/catalog/handler.go
package catalog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pocabinder/internal/apperr"
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

// Routes registers the catalog endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/catalog", h.handleList)
	r.Post("/api/catalog", h.handleCreate)
	r.Get("/api/catalog/activity", h.handleActivity)
	r.Get("/api/catalog/{id}", h.handleGet)
	r.Patch("/api/catalog/{id}", h.handleUpdate)
	r.Delete("/api/catalog/{id}", h.handleDelete)
	r.Get("/api/catalog/{id}/history", h.handleHistory)
}

type createRequest struct {
	GroupName  string  `json:"groupName" validate:"notblank,max=200"`
	AlbumName  string  `json:"albumName" validate:"notblank,max=200"`
	MemberName string  `json:"memberName" validate:"notblank,max=200"`
	Version    *string `json:"version" validate:"omitempty,max=200"`
	ImageURL   string  `json:"imageUrl"`
	Rarity     string  `json:"rarity" validate:"omitempty,oneof=common limited pob special"`
}

type updateRequest struct {
	GroupName  *string          `json:"groupName" validate:"omitempty,max=200"`
	AlbumName  *string          `json:"albumName" validate:"omitempty,max=200"`
	MemberName *string          `json:"memberName" validate:"omitempty,max=200"`
	Version    Optional[string] `json:"version"`
	ImageURL   *string          `json:"imageUrl"`
	Rarity     *string          `json:"rarity" validate:"omitempty,oneof=common limited pob special"`
}

// BlankAsNull treats an empty version string as no version, the way the
// entry forms submit it.
func BlankAsNull(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		GroupSlug:  q.Get("group"),
		AlbumSlug:  q.Get("album"),
		MemberSlug: q.Get("member"),
		Search:     q.Get("search"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			httpx.WriteError(w, r, h.log, apperr.ValidationWithDetails("validation failed", map[string]string{"limit": "must be a positive integer"}))
			return
		}
		f.Limit = limit
	}

	entries, err := h.service.List(r.Context(), f)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	entry, created, err := h.service.ResolveOrCreate(r.Context(), NewEntry{
		GroupName:  req.GroupName,
		AlbumName:  req.AlbumName,
		MemberName: req.MemberName,
		Version:    BlankAsNull(req.Version),
		ImageURL:   req.ImageURL,
		Rarity:     Rarity(req.Rarity),
		CreatorID:  auth.UserID(r.Context()),
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, entry)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.NotFound("catalog entry not found"))
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.NotFound("catalog entry not found"))
		return
	}

	var req updateRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}

	changes := Changes{
		GroupName:  req.GroupName,
		AlbumName:  req.AlbumName,
		MemberName: req.MemberName,
		ImageURL:   req.ImageURL,
	}
	if req.Version.Set {
		changes.Version = Optional[string]{Set: true, Value: BlankAsNull(req.Version.Value)}
	}
	if req.Rarity != nil {
		rarity := Rarity(*req.Rarity)
		changes.Rarity = &rarity
	}

	entry, err := h.service.UpdateEntry(r.Context(), id, changes, auth.UserID(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.NotFound("catalog entry not found"))
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id, auth.UserID(r.Context())); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, apperr.NotFound("catalog entry not found"))
		return
	}
	events, err := h.service.History(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		after int64
		limit int
		err   error
	)
	if raw := q.Get("after"); raw != "" {
		if after, err = strconv.ParseInt(raw, 10, 64); err != nil || after < 0 {
			httpx.WriteError(w, r, h.log, apperr.ValidationWithDetails("validation failed", map[string]string{"after": "must be a non-negative integer"}))
			return
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 1 {
			httpx.WriteError(w, r, h.log, apperr.ValidationWithDetails("validation failed", map[string]string{"limit": "must be a positive integer"}))
			return
		}
	}

	events, err := h.service.Activity(r.Context(), after, limit)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, events)
}
