// internal/server/server.go
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"pocabinder/internal/album"
	"pocabinder/internal/apperr"
	"pocabinder/internal/auth"
	"pocabinder/internal/binder"
	"pocabinder/internal/catalog"
	"pocabinder/internal/collection"
	"pocabinder/internal/config"
	"pocabinder/internal/eventstore"
	"pocabinder/internal/httpx"
	"pocabinder/internal/logger"
	"pocabinder/internal/taxonomy"
	"pocabinder/internal/upload"
	"pocabinder/internal/validation"
	"pocabinder/internal/wishlist"
)

// routes is implemented by every domain handler.
type routes interface {
	Routes(r chi.Router)
}

// New builds the services on db and returns the API router.
func New(db *sqlx.DB, cfg config.Config, log *zap.Logger) http.Handler {
	v := validation.New()
	jwt := auth.JWT{Secret: []byte(cfg.Auth.JWTSecret), Issuer: cfg.Auth.Issuer}

	catalogService := catalog.NewService(db, eventstore.New(), log)
	collectionService := collection.NewService(db, catalogService, log)
	wishlistService := wishlist.NewService(db, catalogService, log)
	taxonomyService := taxonomy.NewService(db, log)
	albumService := album.NewService(db, taxonomyService, log)
	binderService := binder.NewService(db, collectionService, log)

	handlers := []routes{
		catalog.NewHandler(catalogService, v, log),
		collection.NewHandler(collectionService, v, log),
		wishlist.NewHandler(wishlistService, v, log),
		taxonomy.NewHandler(taxonomyService, v, log),
		album.NewHandler(albumService, v, log),
		binder.NewHandler(binderService, v, log),
		upload.NewHandler(upload.Config{MaxBytes: cfg.Upload.MaxBytes, PerMinute: cfg.Upload.PerMinute}, log),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Requests(log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := &healthHandler{db: db, log: log}
	r.Get("/healthz", health.live)
	r.Get("/api/db", health.database)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(jwt))
		for _, h := range handlers {
			h.Routes(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusNotFound, httpx.ErrorResponse{Error: "route not found", Code: apperr.CodeNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusMethodNotAllowed, httpx.ErrorResponse{Error: "method not allowed", Code: "METHOD_NOT_ALLOWED"})
	})

	return r
}

type healthHandler struct {
	db  *sqlx.DB
	log *zap.Logger
}

func (h *healthHandler) live(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type dbStatus struct {
	OK             bool   `json:"ok"`
	Message        string `json:"message,omitempty"`
	PhotocardCount *int   `json:"photocardCount,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (h *healthHandler) database(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var count int
	err := h.db.PingContext(ctx)
	if err == nil {
		err = h.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM photocards`)
	}
	if err != nil {
		h.log.Warn("database check failed", zap.Error(err))
		httpx.WriteJSON(w, http.StatusServiceUnavailable, dbStatus{Error: err.Error()})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dbStatus{OK: true, Message: "database reachable", PhotocardCount: &count})
}
