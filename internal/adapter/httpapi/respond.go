package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/example/salad-order-service/internal/domain"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("write response")
	}
}

// writeError maps domain errors to status codes. Unmapped errors are logged
// and answered with the generic message.
func writeError(w http.ResponseWriter, err error, internal string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidSignature):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid signature"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	case errors.Is(err, domain.ErrSlotFull), errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrStaleStatus):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, domain.ErrPaymentInit):
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Payment initialization failed", Details: err.Error()})
	default:
		log.WithError(err).Error(internal)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: internal})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger tags each request with an id and logs it once served.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"request_id":  id,
			"method":      r.Method,
			"url":         r.URL.String(),
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
			"status":      rec.status,
			"duration":    time.Since(start).String(),
		}).Info("request")
	})
}
