package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"cpi-server/logging"
	"cpi-server/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const REQUEST_ID_HEADER = "X-Request-Id"

type requestIDKey struct{}

// RequestScope gives every request an id and a deadline. A zero timeout
// leaves the request context without a deadline.
func RequestScope(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(REQUEST_ID_HEADER)
			if id == "" {
				id = uuid.New().String()
			}
			w.Header().Set(REQUEST_ID_HEADER, id)

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestID returns the id assigned by RequestScope, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestLogger(r *http.Request, component string) *zap.Logger {
	return logging.Named(component).With(
		zap.String("request_id", RequestID(r.Context())),
		zap.String("path", r.URL.Path))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeError writes the error body with the status mapped from the error
// taxonomy.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := models.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	if encErr := writeJSON(w, status, models.NewErrorResponse(err)); encErr != nil {
		log.Warn("Error encoding error response", zap.Error(encErr))
	}
}
