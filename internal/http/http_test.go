package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/storage"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorResponse(rec, "bad now", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"bad now"}`, rec.Body.String())
}

func TestParseNow(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 3, 20, 18, 30, 0, 0, time.UTC) }

	got, err := ParseNow("", clock)
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-20"), got)

	got, err = ParseNow("2024-01-31", clock)
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-31"), got)

	_, err = ParseNow("yesterday", clock)
	assert.Error(t, err)
}

func TestParseDateRange(t *testing.T) {
	minDate, maxDate := day("2024-01-01"), day("2024-06-30")

	start, end, err := ParseDateRange("", "", minDate, maxDate)
	require.NoError(t, err)
	assert.Equal(t, minDate, start)
	assert.Equal(t, maxDate, end)

	start, end, err = ParseDateRange("2024-02-01", "2024-02-29", minDate, maxDate)
	require.NoError(t, err)
	assert.Equal(t, day("2024-02-01"), start)
	assert.Equal(t, day("2024-02-29"), end)

	_, _, err = ParseDateRange("2024-03-01", "2024-02-01", minDate, maxDate)
	assert.Error(t, err)

	_, _, err = ParseDateRange("March", "", minDate, maxDate)
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("line 3: %w", models.ErrInvalidSnapshot), http.StatusUnprocessableEntity},
		{fmt.Errorf("ledger.json: %w", storage.ErrLocked), http.StatusLocked},
		{storage.ErrWrongPassphrase, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}

	rec := httptest.NewRecorder()
	Failed(rec, storage.ErrLocked)
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Contains(t, rec.Body.String(), "locked")
}
