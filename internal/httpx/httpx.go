// Package httpx holds the JSON request and response helpers shared by every handler.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pocabinder/internal/apperr"
	"pocabinder/internal/validation"
)

// Image fields may carry data URLs of uploads up to 5 MiB.
const maxBodyBytes = 8 << 20

type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    apperr.Code `json:"code"`
	Details any         `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps err onto a status code and error body. Errors that are not
// apperr errors are logged and reported as a bare 500.
func WriteError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code == apperr.CodeInternal {
		if log != nil {
			log.Error("request failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
		}
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  apperr.CodeInternal,
		})
		return
	}

	WriteJSON(w, appErr.HTTPStatus(), ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

// ReadJSON decodes the request body into dst and, when v is non-nil,
// validates it.
func ReadJSON(r *http.Request, dst any, v *validation.Validator) error {
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid JSON body").WithCause(err)
	}
	if dec.More() {
		return apperr.Validation("unexpected trailing JSON")
	}

	if v != nil {
		return v.Validate(dst)
	}
	return nil
}

// URLParamUUID parses the named chi route parameter as a UUID. A malformed id
// cannot match any record, so it is reported as not found.
func URLParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.NotFoundf("%s not found", name)
	}
	return id, nil
}

// QueryUUID parses an optional UUID query parameter; nil when absent.
func QueryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.ValidationWithDetails("validation failed", map[string]string{name: "must be a valid UUID"})
	}
	return &id, nil
}
