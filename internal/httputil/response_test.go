package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONError(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		msg    string
	}{
		{"explicit", func(w http.ResponseWriter) { WriteJSONError(w, http.StatusConflict, "taken") }, http.StatusConflict, "taken"},
		{"method", MethodNotAllowed, http.StatusMethodNotAllowed, "Method not allowed"},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "Invalid 'limit' parameter") }, http.StatusBadRequest, "Invalid 'limit' parameter"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "Run not found") }, http.StatusNotFound, "Run not found"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "boom") }, http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var resp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.msg, resp["error"])
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]float64{"duration_s": 29})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]float64
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 29.0, resp["duration_s"])
}

func TestWriteBody(t *testing.T) {
	t.Run("with filename", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteBody(rec, "image/png", "run-1-track.png", []byte("\x89PNG"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, "4", rec.Header().Get("Content-Length"))
		assert.Equal(t, `inline; filename="run-1-track.png"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "\x89PNG", rec.Body.String())
	})

	t.Run("without filename", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteBody(rec, "text/html; charset=utf-8", "", []byte("<html></html>"))

		assert.Empty(t, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "<html></html>", rec.Body.String())
	})
}
