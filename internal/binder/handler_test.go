package binder

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pocabinder/internal/auth"
	"pocabinder/internal/validation"
)

func TestHandler_BinderRoutes(t *testing.T) {
	f := setup(t)
	jwt := auth.JWT{Secret: []byte("binder-handler-test")}
	r := chi.NewRouter()
	r.Use(auth.Middleware(jwt))
	NewHandler(f.binders, validation.New(), zap.NewNop()).Routes(r)

	do := func(user, method, path, body string) *httptest.ResponseRecorder {
		tok, err := jwt.Sign(user, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do("user-a", http.MethodPost, "/api/binders", ``)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var b Binder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, DefaultName, b.Name)
	require.Len(t, b.Pages, 3)

	w = do("user-a", http.MethodPatch, "/api/binders/"+b.ID.String(), `{"primaryColor":"#12345"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do("user-a", http.MethodPatch, "/api/binders/"+b.ID.String(), `{"accentColor":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do("user-a", http.MethodPatch, "/api/binders/"+b.ID.String(), `{"primaryColor":"#123456","name":"Main"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"backgroundValue":"#123456"`)

	w = do("user-a", http.MethodPost, "/api/binders/"+b.ID.String()+"/pages", ``)
	require.Equal(t, http.StatusCreated, w.Code)
	var page Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))

	w = do("user-a", http.MethodPatch, "/api/binders/pages/"+page.ID.String(), `{"pageType":"cover"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do("user-a", http.MethodPost, "/api/binders/pages/"+page.ID.String()+"/decorations", `{"type":"sticker","content":"star","positionX":250}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var d Decoration
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 100.0, d.PositionX)

	w = do("user-a", http.MethodPost, "/api/binders/pages/"+page.ID.String()+"/decorations", `{"type":"confetti","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do("user-a", http.MethodGet, "/api/binders/pages/"+page.ID.String()+"/decorations", ``)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), d.ID.String())

	w = do("user-b", http.MethodPatch, "/api/binders/pages/decorations/"+d.ID.String(), `{"rotation":15}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do("user-a", http.MethodDelete, "/api/binders/pages/decorations/"+d.ID.String(), ``)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do("user-a", http.MethodPatch, "/api/slots", `{"slotId":"`+page.Slots[0].ID.String()+`","photocardId":null}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do("user-b", http.MethodPatch, "/api/slots", `{"slotId":"`+page.Slots[0].ID.String()+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do("user-a", http.MethodGet, "/api/binders", ``)
	require.Equal(t, http.StatusOK, w.Code)
	var list []Binder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Len(t, list[0].Pages, 4)

	w = do("user-a", http.MethodDelete, "/api/binders/"+b.ID.String(), ``)
	assert.Equal(t, http.StatusOK, w.Code)
}
