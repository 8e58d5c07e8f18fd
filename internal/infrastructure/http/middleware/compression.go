package middleware

import (
	"bufio"
	"compress/gzip"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

// CompressionConfig holds compression configuration
type CompressionConfig struct {
	Level             int // gzip level; brotli uses its default quality
	IncludedMimeTypes []string
}

// DefaultCompressionConfig compresses JSON and text responses
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Level: gzip.DefaultCompression,
		IncludedMimeTypes: []string{
			"application/json",
			"application/problem+json",
			"text/plain",
		},
	}
}

// Compress negotiates brotli first and gzip second. Upgrade requests pass
// through untouched so websocket handshakes keep a hijackable writer.
func Compress(config CompressionConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") != "" {
				next.ServeHTTP(w, r)
				return
			}

			encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" {
				next.ServeHTTP(w, r)
				return
			}

			cw := &compressResponseWriter{ResponseWriter: w, config: config, encoding: encoding}
			defer cw.Close()
			next.ServeHTTP(cw, r)
		})
	}
}

func negotiateEncoding(accept string) string {
	var gzipOK bool
	for _, part := range strings.Split(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "br":
			return "br"
		case "gzip":
			gzipOK = true
		}
	}
	if gzipOK {
		return "gzip"
	}
	return ""
}

// compressResponseWriter decides on the first write whether to compress
type compressResponseWriter struct {
	http.ResponseWriter
	config      CompressionConfig
	encoding    string
	writer      io.WriteCloser
	wroteHeader bool
}

func (w *compressResponseWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true

	if statusCode != http.StatusNoContent && statusCode != http.StatusNotModified &&
		w.Header().Get("Content-Encoding") == "" && w.shouldCompress(w.Header().Get("Content-Type")) {
		w.Header().Set("Content-Encoding", w.encoding)
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")

		switch w.encoding {
		case "br":
			w.writer = brotli.NewWriter(w.ResponseWriter)
		default:
			gz, err := gzip.NewWriterLevel(w.ResponseWriter, w.config.Level)
			if err != nil {
				gz = gzip.NewWriter(w.ResponseWriter)
			}
			w.writer = gz
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *compressResponseWriter) Write(data []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.writer != nil {
		return w.writer.Write(data)
	}
	return w.ResponseWriter.Write(data)
}

// Flush pushes buffered compressed bytes to the client
func (w *compressResponseWriter) Flush() {
	if f, ok := w.writer.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack is only reachable for writers that were never compressed
func (w *compressResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := w.ResponseWriter.(http.Hijacker); ok && w.writer == nil {
		return hj.Hijack()
	}
	return nil, nil, errors.New("compressed response writer cannot be hijacked")
}

// Close flushes the compressor trailer
func (w *compressResponseWriter) Close() error {
	if w.writer == nil {
		return nil
	}
	return w.writer.Close()
}

func (w *compressResponseWriter) shouldCompress(contentType string) bool {
	mainType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	for _, included := range w.config.IncludedMimeTypes {
		if strings.EqualFold(mainType, included) {
			return true
		}
	}
	return false
}
