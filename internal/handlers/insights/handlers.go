// Package insights serves the analysis results over JSON.
package insights

//go:generate mockgen -source=handlers.go -destination=mock_source_test.go -package=insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	apphttp "budgetinsights/internal/http"
	"budgetinsights/internal/models"
	"budgetinsights/internal/services/analyzer"
	"budgetinsights/internal/services/buckets"
)

// MaxRequestBytes caps the body of POST /api/analyze
const MaxRequestBytes = 10 << 20

// Source supplies the ledger snapshot
type Source interface {
	Load() (*models.Snapshot, error)
	Sources() ([]models.SourceFile, error)
}

var (
	source  Source
	service *analyzer.Service
	clock   = time.Now
)

// Initialize sets up the insights package with required dependencies.
// A nil now uses the wall clock.
func Initialize(src Source, svc *analyzer.Service, now func() time.Time) {
	source = src
	service = svc
	clock = now
	if clock == nil {
		clock = time.Now
	}
}

// RegisterRoutes registers all insights routes
func RegisterRoutes(r chi.Router) {
	r.Get("/insights", handleInsights)
	r.Get("/insights/recurring", handleRecurring)
	r.Get("/insights/runway", handleRunway)
	r.Get("/insights/forecast", handleForecast)
	r.Get("/insights/health", handleHealth)
	r.Get("/insights/alerts", handleAlerts)
	r.Get("/insights/goals", handleGoals)
	r.Get("/insights/buckets", handleBuckets)
	r.Get("/api/sources", handleSources)
	r.Post("/api/analyze", handleAnalyze)
}

// analyze loads the ledger and runs the pipeline as of the ?now= date
func analyze(w http.ResponseWriter, r *http.Request) (*models.AnalyticsResult, bool) {
	now, err := apphttp.ParseNow(r.URL.Query().Get("now"), clock)
	if err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	snap, err := source.Load()
	if err != nil {
		apphttp.Failed(w, err)
		return nil, false
	}

	result, err := service.Analyze(*snap, now)
	if err != nil {
		apphttp.Failed(w, err)
		return nil, false
	}
	return result, true
}

func handleInsights(w http.ResponseWriter, r *http.Request) {
	if result, ok := analyze(w, r); ok {
		apphttp.WriteJSON(w, http.StatusOK, result)
	}
}

func handleRecurring(w http.ResponseWriter, r *http.Request) {
	result, ok := analyze(w, r)
	if !ok {
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"recurring": result.Recurring,
		"upcoming":  result.Upcoming,
	})
}

func handleRunway(w http.ResponseWriter, r *http.Request) {
	result, ok := analyze(w, r)
	if !ok {
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"balance": result.Balance,
		"runway":  result.Runway,
	})
}

func handleForecast(w http.ResponseWriter, r *http.Request) {
	if result, ok := analyze(w, r); ok {
		apphttp.WriteJSON(w, http.StatusOK, result.Forecast)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if result, ok := analyze(w, r); ok {
		apphttp.WriteJSON(w, http.StatusOK, result.Health)
	}
}

// handleAlerts returns the alert feed, optionally narrowed by ?severity=a,b
func handleAlerts(w http.ResponseWriter, r *http.Request) {
	result, ok := analyze(w, r)
	if !ok {
		return
	}

	feed := result.Alerts
	if param := r.URL.Query().Get("severity"); param != "" {
		wanted := make(map[models.AlertSeverity]bool)
		for _, s := range strings.Split(param, ",") {
			wanted[models.AlertSeverity(strings.TrimSpace(strings.ToLower(s)))] = true
		}
		feed = make([]models.Alert, 0, len(result.Alerts))
		for _, a := range result.Alerts {
			if wanted[a.Severity] {
				feed = append(feed, a)
			}
		}
	}
	apphttp.WriteJSON(w, http.StatusOK, feed)
}

func handleGoals(w http.ResponseWriter, r *http.Request) {
	if result, ok := analyze(w, r); ok {
		apphttp.WriteJSON(w, http.StatusOK, result.Goals)
	}
}

// handleBuckets aggregates the ledger into ?unit= buckets between ?start= and
// ?end=, which default to the ledger's first transaction and ?now=. Ranges
// needing more than buckets.MaxBuckets buckets are rejected.
func handleBuckets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	unit := models.BucketUnit(q.Get("unit"))
	switch unit {
	case "":
		unit = models.UnitMonth
	case models.UnitDay, models.UnitWeek, models.UnitMonth, models.UnitYear, models.UnitCustom:
	default:
		apphttp.ErrorResponse(w, "unknown unit "+string(unit), http.StatusBadRequest)
		return
	}

	now, err := apphttp.ParseNow(q.Get("now"), clock)
	if err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := source.Load()
	if err != nil {
		apphttp.Failed(w, err)
		return
	}
	if err := snap.Validate(); err != nil {
		apphttp.Failed(w, err)
		return
	}

	txns := models.NewTransactionSet(snap.Transactions).FilterOnOrBefore(now)
	first := txns.MinDate()
	if first.IsZero() {
		first = now
	}

	start, end, err := apphttp.ParseDateRange(q.Get("start"), q.Get("end"), first, now)
	if err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	if n := buckets.Count(unit, start, end); n > buckets.MaxBuckets {
		apphttp.ErrorResponse(w, fmt.Sprintf("range spans %d %s buckets, the limit is %d", n, unit, buckets.MaxBuckets), http.StatusBadRequest)
		return
	}

	apphttp.WriteJSON(w, http.StatusOK, buckets.Build(txns.Transactions, unit, start, end))
}

func handleSources(w http.ResponseWriter, r *http.Request) {
	files, err := source.Sources()
	if err != nil {
		apphttp.Failed(w, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, files)
}

// analyzeRequest is a snapshot posted inline with an optional reference date
type analyzeRequest struct {
	models.Snapshot
	Now string `json:"now"`
}

// handleAnalyze runs the pipeline over a snapshot in the request body
func handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, models.ErrInvalidSnapshot) {
			apphttp.Failed(w, err)
			return
		}
		apphttp.ErrorResponse(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	now, err := apphttp.ParseNow(req.Now, clock)
	if err != nil {
		apphttp.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := service.Analyze(req.Snapshot, now)
	if err != nil {
		apphttp.Failed(w, err)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, result)
}
