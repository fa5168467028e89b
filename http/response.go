package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	pagehandler "github.com/sjaconsulting/static-page-handler"
)

// writeText writes a plain-text response body with the given status.
func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	if _, err := io.WriteString(w, body); err != nil {
		slog.Error("failed to write response body", "error", err)
	}
}

// handleError maps a service error to a response. Storage backend faults
// surface as 500 immediately; nothing is retried and internals are never
// leaked to the caller.
func handleError(w http.ResponseWriter, err error) {
	slog.Error("request error", "error", err)

	if errors.Is(err, pagehandler.ErrNotFound) {
		writeText(w, http.StatusNotFound, "Object Not Found")
		return
	}

	if errors.Is(err, pagehandler.ErrInvalidInput) {
		writeText(w, http.StatusBadRequest, "Bad Request")
		return
	}

	writeText(w, http.StatusInternalServerError, "Internal Server Error")
}
