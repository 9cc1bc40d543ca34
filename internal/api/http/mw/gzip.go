package mw

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"gitlab.com/nevasik7/alerting/logger"
)

type GzipMiddleware struct {
	Level  int // gzip.NoCompression ... gzip.BestCompression
	Logger logger.Logger

	pool sync.Pool
}

func NewGzip(level int, log logger.Logger) *GzipMiddleware {
	if level == 0 {
		level = gzip.BestSpeed
	}

	m := &GzipMiddleware{Level: level, Logger: log}
	m.pool.New = func() any {
		w, err := gzip.NewWriterLevel(io.Discard, m.Level)
		if err != nil {
			w = gzip.NewWriter(io.Discard)
		}
		return w
	}
	return m
}

func (m *GzipMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// client not support gzip
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}

		// already encoded upstream
		if enc := w.Header().Get("Content-Encoding"); enc != "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		gzw := m.pool.Get().(*gzip.Writer)
		defer m.pool.Put(gzw)
		gzw.Reset(w)

		grw := &gzipResponseWriter{ResponseWriter: w, Writer: gzw}
		defer func() {
			if !grw.wrote {
				return
			}
			if err := gzw.Close(); err != nil {
				m.Logger.Errorf("Failed to close gzip writer, error=%v", err)
			}
		}()

		next.ServeHTTP(grw, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	io.Writer

	headerDone bool
	wrote      bool
}

func (w *gzipResponseWriter) WriteHeader(code int) {
	if w.headerDone {
		return
	}
	w.headerDone = true

	// 204 and 304 carry no body
	if code != http.StatusNoContent && code != http.StatusNotModified {
		h := w.ResponseWriter.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	// if not send status let it 200 - OK
	if !w.headerDone {
		w.WriteHeader(http.StatusOK)
	}
	if !w.wrote {
		return w.ResponseWriter.Write(b)
	}
	return w.Writer.Write(b)
}

func (w *gzipResponseWriter) Flush() {
	if f, ok := w.Writer.(interface{ Flush() error }); ok && w.wrote {
		_ = f.Flush()
	}

	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
