// internal/album/handler.go
package album

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pocabinder/internal/apperr"
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
	r.Get("/api/albums", h.handleList)
	r.Post("/api/albums", h.handleCreate)
	r.Get("/api/albums/collection", h.handleListCollection)
	r.Post("/api/albums/collection", h.handleAddToCollection)
	r.Patch("/api/albums/collection/{id}", h.handleUpdateCollectionItem)
	r.Delete("/api/albums/collection/{id}", h.handleRemoveFromCollection)
	r.Patch("/api/albums/versions/{id}", h.handleUpdateVersion)
	r.Delete("/api/albums/versions/{id}", h.handleDeleteVersion)
	r.Get("/api/albums/{id}", h.handleGet)
	r.Patch("/api/albums/{id}", h.handleUpdate)
	r.Delete("/api/albums/{id}", h.handleDelete)
	r.Get("/api/albums/{id}/versions", h.handleListVersions)
	r.Post("/api/albums/{id}/versions", h.handleCreateVersion)
}

type createAlbumRequest struct {
	GroupID     uuid.UUID `json:"groupId" validate:"required"`
	Name        string    `json:"name" validate:"notblank,max=200"`
	ImageURL    string    `json:"imageUrl"`
	ReleaseDate string    `json:"releaseDate"`
}

type updateAlbumRequest struct {
	Name        *string                  `json:"name" validate:"omitempty,max=200"`
	ImageURL    *string                  `json:"imageUrl"`
	ReleaseDate catalog.Optional[string] `json:"releaseDate"`
}

type versionRequest struct {
	Name     string `json:"name" validate:"notblank,max=200"`
	ImageURL string `json:"imageUrl"`
	Color    string `json:"color" validate:"omitempty,hexcolor3or6"`
}

type updateVersionRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	ImageURL *string `json:"imageUrl"`
	Color    *string `json:"color"`
}

type addToCollectionRequest struct {
	AlbumID   uuid.UUID  `json:"albumId" validate:"required"`
	VersionID *uuid.UUID `json:"versionId"`
	Notes     string     `json:"notes" validate:"max=2000"`
}

type updateCollectionRequest struct {
	VersionID catalog.Optional[uuid.UUID] `json:"versionId"`
	Notes     *string                     `json:"notes" validate:"omitempty,max=2000"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	groupID, err := httpx.QueryUUID(r, "groupId")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	albums, err := h.service.List(r.Context(), groupID)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, albums)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createAlbumRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	released, err := parseReleaseDate(req.ReleaseDate)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	a, created, err := h.service.Create(r.Context(), auth.UserID(r.Context()), NewAlbum{
		GroupID:     req.GroupID,
		Name:        req.Name,
		ImageURL:    req.ImageURL,
		ReleaseDate: released,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, statusFor(created), a)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var req updateAlbumRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	changes := Changes{Name: req.Name, ImageURL: req.ImageURL}
	if req.ReleaseDate.Set {
		changes.ReleaseDate = catalog.Null[time.Time]()
		if req.ReleaseDate.Value != nil {
			released, err := parseReleaseDate(*req.ReleaseDate.Value)
			if err != nil {
				httpx.WriteError(w, r, h.log, err)
				return
			}
			changes.ReleaseDate.Value = released
		}
	}
	a, err := h.service.Update(r.Context(), id, changes)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	versions, err := h.service.ListVersions(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, versions)
}

func (h *Handler) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var req versionRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	v, created, err := h.service.CreateVersion(r.Context(), id, NewVersion{Name: req.Name, ImageURL: req.ImageURL, Color: req.Color})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, statusFor(created), v)
}

func (h *Handler) handleUpdateVersion(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var req updateVersionRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	v, err := h.service.UpdateVersion(r.Context(), id, VersionChanges{Name: req.Name, ImageURL: req.ImageURL, Color: req.Color})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.DeleteVersion(r.Context(), id); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleListCollection(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListCollection(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) handleAddToCollection(w http.ResponseWriter, r *http.Request) {
	var req addToCollectionRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	item, err := h.service.AddToCollection(r.Context(), auth.UserID(r.Context()), req.AlbumID, req.VersionID, req.Notes)
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdateCollectionItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	var req updateCollectionRequest
	if err := httpx.ReadJSON(r, &req, h.validator); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	item, err := h.service.UpdateCollectionItem(r.Context(), auth.UserID(r.Context()), id, CollectionChanges{
		VersionID: req.VersionID,
		Notes:     req.Notes,
	})
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleRemoveFromCollection(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	if err := h.service.RemoveFromCollection(r.Context(), auth.UserID(r.Context()), id); err != nil {
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// parseReleaseDate accepts YYYY-MM-DD or RFC 3339. Blank means no date.
func parseReleaseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.ValidationWithDetails("validation failed", map[string]string{
		"releaseDate": "must be a date like 2024-05-01",
	})
}

func statusFor(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
