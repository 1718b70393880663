package taxonomy

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

func TestHandler_GroupsAndMembers(t *testing.T) {
	jwt := auth.JWT{Secret: []byte("taxonomy-handler-test")}
	r := chi.NewRouter()
	r.Use(auth.Middleware(jwt))
	NewHandler(newTestService(t), validation.New(), zap.NewNop()).Routes(r)

	tok, err := jwt.Sign("user-a", time.Hour)
	require.NoError(t, err)
	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/api/groups", `{"name":"aespa"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var g Group
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &g))

	w = do(http.MethodPost, "/api/groups", `{"name":"AESPA"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(http.MethodPost, "/api/groups", `{"name":"  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(http.MethodPost, "/api/groups/"+g.ID.String()+"/members", `{"name":"winter"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(http.MethodGet, "/api/groups/"+g.ID.String(), ``)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Winter"`)

	w = do(http.MethodGet, "/api/groups", ``)
	require.Equal(t, http.StatusOK, w.Code)
	var groups []Group
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, 1)

	w = do(http.MethodPost, "/api/groups/00000000-0000-0000-0000-000000000000/members", `{"name":"ningning"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
