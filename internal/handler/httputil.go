package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/persist"
	"github.com/pagegrid/pagegrid/internal/slot"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// componentID extracts the publishing identity from the X-Component-ID
// header. Operations without one publish as "api", which never subscribes and
// therefore suppresses nothing.
func componentID(r *http.Request) string {
	if id := r.Header.Get("X-Component-ID"); id != "" {
		return id
	}
	return "api"
}

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Cursor string
}

// parsePagination extracts page_size and cursor from query params.
func parsePagination(r *http.Request) Pagination {
	p := Pagination{Limit: 100}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > 500 {
		p.Limit = 500
	}
	p.Cursor = r.URL.Query().Get("cursor")
	return p
}

// rejectionToHTTP maps dispatch rejections to HTTP responses.
func rejectionToHTTP(w http.ResponseWriter, err error) {
	var v *slot.Violation
	if errors.As(err, &v) {
		switch v.Kind {
		case slot.LimitReached:
			writeError(w, http.StatusConflict, "LIMIT_REACHED", err.Error())
		case slot.TypeNotAllowed:
			writeError(w, http.StatusUnprocessableEntity, "TYPE_NOT_ALLOWED", err.Error())
		default:
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error())
		}
		return
	}
	var bad *op.BadPayloadError
	if errors.As(err, &bad) {
		writeError(w, http.StatusBadRequest, "BAD_PAYLOAD", err.Error())
		return
	}
	var cfg *slot.ConfigParseError
	if errors.As(err, &cfg) {
		writeError(w, http.StatusUnprocessableEntity, "CONFIG_INVALID", err.Error())
		return
	}
	var dup *op.DuplicateIDError
	if errors.As(err, &dup) {
		writeError(w, http.StatusConflict, "DUPLICATE_ID", err.Error())
		return
	}
	var oob *op.OutOfBoundsError
	if errors.As(err, &oob) {
		writeError(w, http.StatusUnprocessableEntity, "OUT_OF_BOUNDS", err.Error())
		return
	}
	if errors.Is(err, persist.ErrEntityNotFound) || errors.Is(err, op.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	log.Printf("internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
