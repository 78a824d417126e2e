package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
)

// ParseValidateRange reads an optional integer query parameter and checks it
// against an inclusive [min, max] range. An absent parameter yields def. An
// unparseable or out-of-range value is rejected with a 400 validation error,
// never clamped.
func ParseValidateRange(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, def, min, max int64) (int32, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return int32(def), true
	}
	intValue, err := strconv.ParseInt(value, 10, 32)
	if err != nil || intValue < min || intValue > max {
		RespondValidationError(w, logger, []FieldError{
			{Field: key, Message: fmt.Sprintf("must be an integer between %d and %d, got %q", min, max, value)},
		})
		return 0, false
	}
	return int32(intValue), true
}

// ParseValidateEnum reads an optional string query parameter constrained to a
// fixed set of allowed values. An absent parameter yields def.
func ParseValidateEnum(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key, def string, allowed ...string) (string, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return def, true
	}
	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}
	RespondValidationError(w, logger, []FieldError{
		{Field: key, Message: fmt.Sprintf("must be one of %v, got %q", allowed, value)},
	})
	return "", false
}
