// Package upload turns an uploaded image into a data URL that can be stored
// directly in image fields.
package upload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pocabinder/internal/apperr"
	"pocabinder/internal/httpx"
)

const (
	DefaultMaxBytes  = 5 << 20
	DefaultPerMinute = 30

	formField = "file"
	// Room for multipart headers around the file part.
	formOverhead = 64 << 10
)

type Config struct {
	MaxBytes  int64
	PerMinute int
}

type Response struct {
	URL string `json:"url"`
}

type Handler struct {
	maxBytes int64
	limiter  *rate.Limiter
	log      *zap.Logger
}

func NewHandler(cfg Config, log *zap.Logger) *Handler {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultPerMinute
	}
	return &Handler{
		maxBytes: cfg.MaxBytes,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.PerMinute),
		log:      log.Named("upload"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/api/upload", h.handleUpload)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		httpx.WriteError(w, r, h.log, apperr.RateLimited("too many uploads, try again shortly"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	file, _, err := r.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			httpx.WriteError(w, r, h.log, h.tooLarge())
		case errors.Is(err, http.ErrMissingFile):
			httpx.WriteError(w, r, h.log, apperr.ValidationWithDetails("validation failed", map[string]string{formField: "is required"}))
		default:
			httpx.WriteError(w, r, h.log, apperr.Validation("invalid multipart form").WithCause(err))
		}
		return
	}
	defer file.Close()

	url, err := DataURL(file, h.maxBytes)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			err = h.tooLarge()
		}
		httpx.WriteError(w, r, h.log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, Response{URL: url})
}

func (h *Handler) tooLarge() error {
	return apperr.ValidationWithDetails("validation failed", map[string]string{
		formField: fmt.Sprintf("must not exceed %d MB", h.maxBytes>>20),
	})
}

var errTooLarge = errors.New("upload too large")

// DataURL reads at most maxBytes from r and encodes it as
// data:<mime>;base64,<payload>. The type is sniffed from the content; anything
// that is not an image is rejected.
func DataURL(r io.Reader, maxBytes int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", errTooLarge
	}

	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", apperr.Validation("validation failed").WithDetails(map[string]string{
			formField:  "must be an image",
			"detected": mime.String(),
		})
	}

	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mime.String()) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mime.String())
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String(), nil
}
