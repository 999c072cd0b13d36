package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"codepair/internal/model"
	"codepair/pkg/apierror"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.MessageResponse{Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Unexpected server error"

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		message = apiErr.Message
	case errors.Is(err, model.ErrInvalidOrExpiredToken):
		status = http.StatusUnauthorized
		message = "Invalid or expired token"
	case errors.Is(err, model.ErrMissingCredential):
		status = http.StatusBadRequest
		message = "No token"
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	writeMessage(w, status, message)
}
