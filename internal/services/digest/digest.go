// Package digest periodically runs the analysis over the ledger on disk and
// logs the alerts that need attention.
package digest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"budgetinsights/internal/models"
	"budgetinsights/internal/services/analyzer"
)

// Loader supplies the ledger snapshot
type Loader interface {
	Load() (*models.Snapshot, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func() (*models.Snapshot, error)

// Load calls f
func (f LoaderFunc) Load() (*models.Snapshot, error) { return f() }

// Summary is the outcome of one digest run
type Summary struct {
	Now         time.Time                    `json:"now"`
	HealthScore int                          `json:"health_score"`
	Grade       models.Grade                 `json:"grade"`
	Counts      map[models.AlertSeverity]int `json:"counts"`
	Actionable  []models.Alert               `json:"actionable"`
}

// Digest runs the pipeline on a schedule
type Digest struct {
	loader Loader
	svc    *analyzer.Service
	clock  func() time.Time
	log    *logrus.Entry
	cron   *cron.Cron
}

// New creates a digest. A nil clock uses the wall clock; a nil log discards output.
func New(loader Loader, svc *analyzer.Service, clock func() time.Time, log *logrus.Entry) *Digest {
	if clock == nil {
		clock = time.Now
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	return &Digest{loader: loader, svc: svc, clock: clock, log: log}
}

// Run loads the ledger, analyzes it as of today and logs actionable alerts
func (d *Digest) Run() (*Summary, error) {
	snap, err := d.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	result, err := d.svc.Analyze(*snap, d.clock())
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Now:         result.Now,
		HealthScore: result.Health.Score,
		Grade:       result.Health.Grade,
		Counts:      make(map[models.AlertSeverity]int),
		Actionable:  []models.Alert{},
	}
	for _, a := range result.Alerts {
		summary.Counts[a.Severity]++
		if !a.Actionable {
			continue
		}
		summary.Actionable = append(summary.Actionable, a)

		entry := d.log.WithFields(logrus.Fields{
			"alert":    a.ID,
			"severity": a.Severity,
		})
		switch a.Severity {
		case models.SeverityCritical, models.SeverityWarning:
			entry.Warn(a.Message)
		default:
			entry.Info(a.Message)
		}
	}

	d.log.WithFields(logrus.Fields{
		"now":        result.Now.Format(models.DateLayout),
		"health":     summary.HealthScore,
		"grade":      summary.Grade,
		"actionable": len(summary.Actionable),
	}).Info("Digest complete")

	return summary, nil
}

// Start schedules Run with a standard five-field cron spec
func (d *Digest) Start(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, d.runScheduled); err != nil {
		return fmt.Errorf("digest schedule %q: %w", spec, err)
	}
	d.cron = c
	c.Start()
	d.log.WithField("schedule", spec).Info("Digest scheduled")
	return nil
}

// Stop halts the schedule; the returned context is done when a running digest finishes
func (d *Digest) Stop() context.Context {
	if d.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return d.cron.Stop()
}

func (d *Digest) runScheduled() {
	if _, err := d.Run(); err != nil {
		d.log.WithError(err).Error("Digest failed")
	}
}
