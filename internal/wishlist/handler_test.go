package wishlist

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

var testJWT = auth.JWT{Secret: []byte("wishlist-handler-test")}

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
	NewHandler(f.wishlist, validation.New(), zap.NewNop()).Routes(r)

	w := serve(t, r, "user-a", http.MethodPost, "/api/wishlist", `{"groupName":"twice"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"memberName":"is required"`)

	w = serve(t, r, "user-a", http.MethodPost, "/api/wishlist", `{"groupName":"twice","memberName":"nayeon","priority":3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var item Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, 3, item.Priority)

	w = serve(t, r, "user-a", http.MethodPost, "/api/wishlist", `{"catalogId":"`+item.ID.String()+`"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, r, "user-a", http.MethodPatch, "/api/wishlist/"+item.ID.String(), `{"priority":11}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, r, "user-a", http.MethodPatch, "/api/wishlist/"+item.ID.String(), `{"notes":"trade only"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"notes":"trade only"`)

	w = serve(t, r, "user-b", http.MethodGet, "/api/wishlist", ``)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serve(t, r, "user-a", http.MethodDelete, "/api/wishlist/"+item.ID.String(), ``)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = serve(t, r, "user-a", http.MethodDelete, "/api/wishlist/not-a-uuid", ``)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
