package pagination

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/pisakart/pisakart-backend/pkg/errors"
)

// MaxLimit caps how many documents any listing query can request.
const MaxLimit = 500

// Clamp bounds a caller-supplied limit. Zero means "no limit", preserving the
// historical list-everything contract for callers that never send one.
func Clamp(limit int64) int64 {
	if limit <= 0 {
		return 0
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// FromQuery reads the optional limit query parameter.
func FromQuery(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
	}
	return Clamp(value), nil
}
