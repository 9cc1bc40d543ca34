package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// APIError is the stable error body of every non 2xx response
type APIError struct {
	Code    string `json:"error"` // example "bad_request", "not_found"
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// JSON writes body as is; the market endpoints are consumed by aggregators expecting bare documents
func JSON(w http.ResponseWriter, status int, body any, headers map[string]string) error {
	// No body -> 204
	if body == nil && status == http.StatusNoContent {
		for k, v := range headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		return nil
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	for k, v := range headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return enc.Encode(body)
}

func Error(w http.ResponseWriter, r *http.Request, status int, code, message string) error {
	return JSON(w, status, APIError{
		Code:    code,
		Message: message,
		TraceID: middleware.GetReqID(r.Context()),
	}, map[string]string{
		"Cache-Control": "no-store",
	})
}
