// Package analyzer runs the full insight pipeline over one ledger snapshot.
//
// Every stage is a pure function of the snapshot and the injected reference
// date, so running the pipeline twice on the same input yields identical
// results.
package analyzer

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/alerts"
	"budgetinsights/internal/services/buckets"
	"budgetinsights/internal/services/forecast"
	"budgetinsights/internal/services/goals"
	"budgetinsights/internal/services/health"
	"budgetinsights/internal/services/metrics"
	"budgetinsights/internal/services/recurrence"
	"budgetinsights/internal/services/runway"
)

// Settings tunes the parts of the output that are a matter of presentation
type Settings struct {
	UpcomingDays  int // horizon for the upcoming recurring list
	TopCategories int // per-category forecasts returned
	WeeklyBuckets int // trailing weeks in the weekly series
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		UpcomingDays:  30,
		TopCategories: 5,
		WeeklyBuckets: 12,
	}
}

// Service runs the pipeline with fixed settings
type Service struct {
	settings Settings
	log      *logrus.Entry
}

// New creates an analyzer. A nil log discards output.
func New(settings Settings, log *logrus.Entry) *Service {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	if settings.WeeklyBuckets < health.ConsistencyWeeks+1 {
		settings.WeeklyBuckets = health.ConsistencyWeeks + 1
	}
	return &Service{settings: settings, log: log}
}

// Analyze validates the snapshot with default settings and derives every insight
func Analyze(snap models.Snapshot, now time.Time) (*models.AnalyticsResult, error) {
	return New(DefaultSettings(), nil).Analyze(snap, now)
}

// Analyze validates the snapshot and derives every insight as of now.
// Transactions dated after now are ignored.
func (s *Service) Analyze(snap models.Snapshot, now time.Time) (*models.AnalyticsResult, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	now = models.DateOf(now)
	txns := models.NewTransactionSet(snap.Transactions).FilterOnOrBefore(now).SortByDate().Transactions
	categories := snap.CategoryIndex()

	balance := runway.CurrentBalance(snap.OpeningBalance, txns, now)
	monthly := buckets.TrailingMonths(txns, now, forecast.WindowMonths)
	weekly := buckets.TrailingWeeks(txns, now, s.settings.WeeklyBuckets)

	recurring := recurrence.Detect(txns, categories)
	rw := runway.Calculate(metrics.Last(monthly, 3), balance)

	fc := forecast.Project(forecast.Input{
		Months:        monthly,
		Transactions:  txns,
		Categories:    categories,
		Balance:       balance,
		TopCategories: s.settings.TopCategories,
	})

	score := health.Score(health.Input{
		Months:       monthly,
		Weeks:        weekly,
		Transactions: txns,
		Budgets:      snap.Budgets,
		Runway:       rw,
	})

	progress := goals.Progress(snap.Goals, fc.Savings, now)

	feed := alerts.Generate(alerts.Input{
		Now:          now,
		Months:       monthly,
		Transactions: txns,
		Categories:   categories,
		Budgets:      snap.Budgets,
		Balance:      balance,
		Runway:       rw,
		Recurring:    recurring,
		Goals:        progress,
	})

	result := &models.AnalyticsResult{
		Now:       now,
		Balance:   balance,
		Monthly:   monthly,
		Weekly:    weekly,
		Recurring: recurring,
		Upcoming:  recurrence.Upcoming(recurring, now, s.settings.UpcomingDays),
		Runway:    rw,
		Forecast:  fc,
		Health:    score,
		Goals:     progress,
		Alerts:    feed,
	}

	s.log.WithFields(logrus.Fields{
		"now":          now.Format(models.DateLayout),
		"transactions": len(txns),
		"recurring":    len(recurring),
		"alerts":       len(feed),
		"health":       score.Score,
	}).Debug("Analysis complete")

	return result, nil
}
