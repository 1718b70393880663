package collection

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

var testJWT = auth.JWT{Secret: []byte("collection-handler-test")}

func serve(t *testing.T, router http.Handler, user, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := testJWT.Sign(user, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Flow(t *testing.T) {
	f := setup(t)
	r := chi.NewRouter()
	r.Use(auth.Middleware(testJWT))
	NewHandler(f.collection, validation.New(), zap.NewNop()).Routes(r)

	// Submitting to the catalog does not create a personal card.
	w := serve(t, r, "user-a", http.MethodPost, "/api/photocards",
		`{"groupName":"bts","albumName":"proof","memberName":"jin","version":"","addToCatalog":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var submitted submittedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))

	w = serve(t, r, "user-b", http.MethodPost, "/api/catalog/add-to-collection",
		`{"catalogId":"`+submitted.CatalogID.String()+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var card Photocard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &card))
	assert.Nil(t, card.Version)

	w = serve(t, r, "user-b", http.MethodPost, "/api/catalog/add-to-collection",
		`{"catalogId":"`+submitted.CatalogID.String()+`"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = serve(t, r, "user-b", http.MethodPatch, "/api/photocards/"+card.ID.String(), `{"imageUrl":"/x.png"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(t, r, "user-b", http.MethodPost, "/api/photocards",
		`{"groupName":"ive","albumName":"eleven","memberName":"gaeul"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(t, r, "user-b", http.MethodGet, "/api/stats", ``)
	require.Equal(t, http.StatusOK, w.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalPhotocards)
	assert.Len(t, stats.ByGroup, 2)

	w = serve(t, r, "user-a", http.MethodGet, "/api/photocards", ``)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(t, r, "user-a", http.MethodDelete, "/api/photocards/"+card.ID.String(), ``)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, r, "user-b", http.MethodDelete, "/api/photocards/"+card.ID.String(), ``)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, r, "user-b", http.MethodPost, "/api/catalog/add-to-collection", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
