package upload

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pocabinder/internal/apperr"
)

// Smallest valid PNG: signature plus an IHDR chunk header.
var pngHeader = []byte{
	0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00,
	0x1f, 0x15, 0xc4, 0x89,
}

func TestDataURL(t *testing.T) {
	url, err := DataURL(bytes.NewReader(pngHeader), 1<<20)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"), url)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, raw)

	_, err = DataURL(strings.NewReader("just some text"), 1<<20)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = DataURL(bytes.NewReader(pngHeader), 8)
	assert.ErrorIs(t, err, errTooLarge)
}

func multipartBody(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, "card.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandler_Upload(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(Config{MaxBytes: 1 << 10, PerMinute: 3}, zap.NewNop()).Routes(r)

	post := func(field string, content []byte) *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, field, content)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("file", pngHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.URL, "data:image/png;base64,"))

	w = post("image", pngHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"file":"is required"`)

	w = post("file", append(append([]byte{}, pngHeader...), make([]byte, 2<<10)...))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The bucket holds three uploads.
	w = post("file", pngHeader)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
