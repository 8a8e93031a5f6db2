package response

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// envelope is the {code, message, data} shape every API response carries.
// Code mirrors the HTTP status.
type envelope struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func JSON(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	write(w, status, envelope{Code: status, Message: message, Data: data, RequestID: requestID(r)})
}

func Error(w http.ResponseWriter, r *http.Request, status int, message, detail string) {
	write(w, status, envelope{Code: status, Message: message, Error: detail, RequestID: requestID(r)})
}

func write(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestID(r *http.Request) string {
	id := chimiddleware.GetReqID(r.Context())
	if id == "" {
		id = r.Header.Get("X-Request-Id")
	}
	return id
}
