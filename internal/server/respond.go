package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeAppError maps err to its HTTP status; internal failures never leak their cause.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("path", redactPath(r.URL.Path)),
			zap.Error(err),
		)
		writeJSON(w, status, map[string]any{"error": "internal server error", "code": errors.Code(err)})
		return
	}
	writeJSON(w, status, map[string]any{"error": errors.Message(err), "code": errors.Code(err)})
}
