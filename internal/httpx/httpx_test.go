package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pocabinder/internal/apperr"
	"pocabinder/internal/validation"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestWriteError_MapsCodes(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   apperr.Code
	}{
		{apperr.NotFound("catalog entry not found"), http.StatusNotFound, apperr.CodeNotFound},
		{apperr.Forbidden("only the creator can edit"), http.StatusForbidden, apperr.CodeForbidden},
		{apperr.Validation("groupName is required"), http.StatusBadRequest, apperr.CodeValidation},
		{apperr.Conflict("already in collection"), http.StatusConflict, apperr.CodeConflict},
		{apperr.Unauthorized("missing bearer token"), http.StatusUnauthorized, apperr.CodeUnauthorized},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		WriteError(w, r, nil, tt.err)

		assert.Equal(t, tt.status, w.Code)
		body := decodeError(t, w)
		assert.Equal(t, tt.code, body.Code)
		assert.Equal(t, tt.err.(*apperr.Error).Message, body.Error)
	}
}

func TestWriteError_HidesAndLogsUnknownErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPatch, "/api/catalog/x", nil)

	WriteError(w, r, zap.New(core), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "internal server error", body.Error)
	assert.NotContains(t, w.Body.String(), "connection refused")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "/api/catalog/x", logs.All()[0].ContextMap()["path"])
}

type createRequest struct {
	GroupName string `json:"groupName" validate:"notblank"`
}

func TestReadJSON(t *testing.T) {
	v := validation.New()

	var ok createRequest
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"groupName":"bts"}`))
	require.NoError(t, ReadJSON(r, &ok, v))
	assert.Equal(t, "bts", ok.GroupName)

	var empty createRequest
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.ErrorIs(t, ReadJSON(r, &empty, v), apperr.ErrValidation)

	var malformed createRequest
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"groupName":`))
	assert.ErrorIs(t, ReadJSON(r, &malformed, v), apperr.ErrValidation)

	var invalid createRequest
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"groupName":"  "}`))
	err := ReadJSON(r, &invalid, v)
	require.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, map[string]string{"groupName": "is required"}, err.(*apperr.Error).Details)
}

func TestURLParamUUID(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := URLParamUUID(r, "id")
		if err != nil {
			WriteError(w, r, nil, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"id": id.String()})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/7c9e6679-7425-40de-944b-e07fc1f90ae7", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "7c9e6679-7425-40de-944b-e07fc1f90ae7")
}
