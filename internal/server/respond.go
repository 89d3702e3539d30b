package server

import (
	"aidigest/internal/persistence"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("Invalid JSON")

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes {"error": message}.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return nil
}

// respondStoreError maps persistence errors onto status codes.
func (s *Server) respondStoreError(w http.ResponseWriter, err error, notFound string) {
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		s.respondError(w, http.StatusNotFound, notFound)
	case errors.Is(err, persistence.ErrInvalid):
		s.respondError(w, http.StatusBadRequest, invalidMessage(err))
	default:
		s.log.Error("Store operation failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// invalidMessage strips the sentinel prefix and capitalizes the rest.
func invalidMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), persistence.ErrInvalid.Error()+": ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
