package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleStatus(status StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if status == nil {
			writeError(w, http.StatusServiceUnavailable, "no cycle completed yet")
			return
		}
		s, ok := status()
		if !ok {
			writeError(w, http.StatusServiceUnavailable, "no cycle completed yet")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}
