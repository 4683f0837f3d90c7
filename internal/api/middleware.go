package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/service"

	"go.uber.org/zap"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, code int, errCode, message string, log *zap.Logger) {
	log.Error("API error", zap.String("code", errCode), zap.String("message", message))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	resp := ErrorResponse{
		Error:   errCode,
		Message: message,
	}
	if errCode != "" {
		resp.Code = errCode
	}

	json.NewEncoder(w).Encode(resp)
}

// WriteDomainError maps a service error to an HTTP status and writes it.
func WriteDomainError(w http.ResponseWriter, err error, log *zap.Logger) {
	kind := service.KindOf(err)
	status := http.StatusInternalServerError
	code := "internal_error"

	switch kind {
	case service.KindNotFound:
		status = http.StatusNotFound
		code = string(kind)
	case service.KindValidation:
		status = http.StatusBadRequest
		code = string(kind)
	case service.KindInvalidState, service.KindNoPendingApproval:
		status = http.StatusUnprocessableEntity
		code = string(kind)
	case service.KindNoWorkflowConfigured:
		status = http.StatusUnprocessableEntity
		code = string(kind)
	case service.KindConflict:
		status = http.StatusConflict
		code = string(kind)
	}

	WriteError(w, status, code, err.Error(), log)
}

// RequestLogger logs HTTP requests and responses
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			log.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", duration),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// callerID reads the acting user from the request headers.
func callerID(r *http.Request) string {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		id = "anonymous"
	}
	return id
}
