package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hogarlabs/despensa/internal/apperror"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps domain errors onto HTTP statuses. A partial cascade
// carries its progress so clients know the retry is safe.
func writeAppError(w http.ResponseWriter, err error) {
	var partial *apperror.PartialCascade
	if errors.As(err, &partial) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":            "category delete incomplete, retry to finish",
			"category_id":      partial.CategoryID,
			"products_deleted": partial.ProductsDeleted,
		})
		return
	}

	var appErr *apperror.AppError
	message := "internal error"
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	switch {
	case errors.Is(err, apperror.ErrNotFound):
		writeError(w, http.StatusNotFound, message)
	case errors.Is(err, apperror.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, message)
	case errors.Is(err, apperror.ErrInvalidCode):
		writeError(w, http.StatusUnprocessableEntity, message)
	case errors.Is(err, apperror.ErrNoActiveSession):
		writeError(w, http.StatusUnauthorized, message)
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
