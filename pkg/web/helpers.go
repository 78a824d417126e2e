package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// FieldError describes a single failed validation rule for a request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse is the body returned for 400 validation failures.
type ValidationErrorResponse struct {
	Status string       `json:"status"`
	Errors []FieldError `json:"errors"`
}

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// RespondValidationError writes a 400 response with a structured field-level error list.
func RespondValidationError(w http.ResponseWriter, logger *slog.Logger, errs []FieldError) {
	RespondJSON(w, logger, http.StatusBadRequest, ValidationErrorResponse{
		Status: "error",
		Errors: errs,
	})
}

// ParseID extracts and validates the ID from the request path. Returns the ID and a boolean indicating success.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (uuid.UUID, bool) {
	pathValueID := r.PathValue("id")
	id, err := uuid.Parse(pathValueID)
	if err != nil {
		RespondValidationError(w, logger, []FieldError{
			{Field: "id", Message: fmt.Sprintf("must be a valid UUID, got %q", pathValueID)},
		})
		return uuid.UUID{}, false
	}
	return id, true
}
