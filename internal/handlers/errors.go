package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"intan/internal/models"
	"intan/internal/service"
	"intan/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

func respondWithError(w http.ResponseWriter, logger logrus.FieldLogger, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		logger.WithError(err).WithField("status", status).Warn(logMsg)
	}

	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps an error from the progress service onto an HTTP status
func respondWithServiceError(w http.ResponseWriter, logger logrus.FieldLogger, logMsg string, err error) {
	var verr validation.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
		return
	case errors.Is(err, models.ErrUnknownStep):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: "step"})
		return
	case errors.Is(err, service.ErrNoCurrentUser):
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrNotLoggedIn})
		return
	}

	switch service.StatusOf(err) {
	case service.StatusNotFound:
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case service.StatusUnavailable:
		respondWithError(w, logger, http.StatusServiceUnavailable, ErrStorageUnavailable, logMsg, err)
	default:
		respondWithError(w, logger, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}

// decodeJSON reads a size-limited JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
