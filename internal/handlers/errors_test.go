package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"intan/internal/models"
	"intan/internal/service"
	"intan/internal/storage"
	"intan/internal/validation"
)

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	logger, _ := test.NewNullLogger()
	recorder := httptest.NewRecorder()

	respondWithError(recorder, logger, 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}

	var body errorResponse
	if err := json.NewDecoder(recorder.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "Teapot" {
		t.Fatalf("expected error 'Teapot', got %q", body.Error)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	logger, hook := test.NewNullLogger()
	recorder := httptest.NewRecorder()

	respondWithError(recorder, logger, 500, ErrInternalServerError, "", errors.New("boom"))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Message != ErrInternalServerError {
		t.Fatalf("expected log to use the user message, got %q", entry.Message)
	}
	if entry.Level != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", entry.Level)
	}
	if err, _ := entry.Data[logrus.ErrorKey].(error); err == nil || err.Error() != "boom" {
		t.Fatalf("expected log to include error, got %v", entry.Data[logrus.ErrorKey])
	}
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		field  string
	}{
		{name: "validation", err: validation.ValidationError{Field: "age", Message: "bad"}, status: http.StatusBadRequest, field: "age"},
		{name: "unknown step", err: fmt.Errorf("%w: step9", models.ErrUnknownStep), status: http.StatusBadRequest, field: "step"},
		{name: "no user", err: service.ErrNoCurrentUser, status: http.StatusUnauthorized},
		{name: "profile missing", err: service.ErrProfileNotFound, status: http.StatusNotFound},
		{name: "progress missing", err: service.ErrProgressNotFound, status: http.StatusNotFound},
		{name: "unavailable", err: fmt.Errorf("load: %w", storage.ErrUnavailable), status: http.StatusServiceUnavailable},
		{name: "other", err: errors.New("disk on fire"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			recorder := httptest.NewRecorder()

			respondWithServiceError(recorder, logger, "", tt.err)

			if recorder.Code != tt.status {
				t.Errorf("status = %d, want %d", recorder.Code, tt.status)
			}
			var body errorResponse
			json.NewDecoder(recorder.Body).Decode(&body)
			if body.Field != tt.field {
				t.Errorf("field = %q, want %q", body.Field, tt.field)
			}
		})
	}
}
