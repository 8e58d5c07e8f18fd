package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{"status":"success","recipe":{"recipeName":"Fried Rice"}}`

func jsonHandler(contentType string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = io.WriteString(w, payload)
	})
}

func TestNegotiateEncoding(t *testing.T) {
	tests := []struct {
		accept string
		want   string
	}{
		{"", ""},
		{"identity", ""},
		{"gzip", "gzip"},
		{"gzip, deflate, br", "br"},
		{"br;q=0, gzip", "gzip"},
		{"br;q=0.0, gzip;q=0", ""},
		{"GZIP;q=0.5", "gzip"},
	}

	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			assert.Equal(t, tt.want, negotiateEncoding(tt.accept))
		})
	}
}

func TestCompress_Brotli(t *testing.T) {
	handler := Compress(DefaultCompressionConfig())(jsonHandler("application/json"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "Accept-Encoding", rec.Header().Get("Vary"))
	body, err := io.ReadAll(brotli.NewReader(rec.Body))
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestCompress_Gzip(t *testing.T) {
	handler := Compress(DefaultCompressionConfig())(jsonHandler("application/json; charset=utf-8"))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	reader, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestCompress_Passthrough(t *testing.T) {
	tests := []struct {
		name        string
		accept      string
		upgrade     string
		contentType string
	}{
		{"NoAcceptEncoding", "", "", "application/json"},
		{"ExcludedMimeType", "gzip", "", "image/png"},
		{"WebsocketUpgrade", "gzip, br", "websocket", "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compress(DefaultCompressionConfig())(jsonHandler(tt.contentType))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Encoding", tt.accept)
			}
			if tt.upgrade != "" {
				req.Header.Set("Upgrade", tt.upgrade)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Empty(t, rec.Header().Get("Content-Encoding"))
			assert.Equal(t, payload, rec.Body.String())
		})
	}
}

func TestCompress_NoContent(t *testing.T) {
	handler := Compress(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Zero(t, rec.Body.Len())
}

func TestCompress_HijackRefusedWhenCompressing(t *testing.T) {
	cw := &compressResponseWriter{ResponseWriter: httptest.NewRecorder(), config: DefaultCompressionConfig(), encoding: "gzip"}
	cw.Header().Set("Content-Type", "application/json")
	_, err := cw.Write([]byte(strings.Repeat("a", 10)))
	require.NoError(t, err)

	_, _, err = cw.Hijack()
	assert.Error(t, err)
	assert.NoError(t, cw.Close())
}
