// Package http holds response and request helpers shared by the handlers.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/storage"
)

// Logger receives handler errors; cmd/server replaces it with the app logger
var Logger logrus.FieldLogger = logrus.StandardLogger()

// WriteJSON encodes v with the given status
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger.WithError(err).Warn("Could not encode response")
	}
}

// ErrorResponse sends a JSON error body
func ErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	entry := Logger.WithField("status", statusCode)
	if statusCode >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Debug(message)
	}
	WriteJSON(w, statusCode, map[string]string{"error": message})
}

// ParseNow reads the reference date from a query value, defaulting to clock()
func ParseNow(s string, clock func() time.Time) (time.Time, error) {
	if s == "" {
		return models.DateOf(clock()), nil
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("now: %w", err)
	}
	return d, nil
}

// ParseDateRange parses start and end query values. Missing values default
// to the given bounds; an inverted range is rejected.
func ParseDateRange(startStr, endStr string, minDate, maxDate time.Time) (start, end time.Time, err error) {
	start, end = minDate, maxDate

	if startStr != "" {
		if start, err = models.ParseDate(startStr); err != nil {
			return start, end, fmt.Errorf("start: %w", err)
		}
	}
	if endStr != "" {
		if end, err = models.ParseDate(endStr); err != nil {
			return start, end, fmt.Errorf("end: %w", err)
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("end %s is before start %s", end.Format(models.DateLayout), start.Format(models.DateLayout))
	}
	return start, end, nil
}

// StatusFor maps a load or analysis error to a response status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidSnapshot):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, storage.ErrWrongPassphrase):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// Failed sends err with the status StatusFor picks
func Failed(w http.ResponseWriter, err error) {
	ErrorResponse(w, err.Error(), StatusFor(err))
}
