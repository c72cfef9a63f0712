// Package report drives daily report generation: a midnight scheduler plus
// the HTTP surface for manual generation and report reads.
package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/bastion-lab/project-bastion/internal/core/model"
	"github.com/bastion-lab/project-bastion/internal/metrics"
)

// Generator produces the daily report snapshot for one calendar date.
type Generator interface {
	GenerateDailyReport(ctx context.Context, date time.Time) (*model.DailyReport, error)
}

// Scheduler fires once per day at a configured wall-clock time (UTC) and
// generates the report for the day that just ended. Each firing is
// independent; a failed run is retried at the next firing, and regeneration
// is idempotent.
type Scheduler struct {
	generator Generator
	hour      int
	minute    int
	nowFn     func() time.Time
}

// NewScheduler creates a daily scheduler firing at hour:minute UTC.
// The default of 0:00 generates yesterday's report right after midnight.
func NewScheduler(generator Generator, hour, minute int) *Scheduler {
	return &Scheduler{
		generator: generator,
		hour:      hour,
		minute:    minute,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// nextFire returns the next firing instant strictly after now.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	now = now.UTC()
	fire := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, time.UTC)
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// Start runs the scheduler until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("[ReportScheduler] Starting daily report scheduler",
		"fire_hour", s.hour,
		"fire_minute", s.minute,
	)

	for {
		now := s.nowFn()
		fire := s.nextFire(now)
		timer := time.NewTimer(fire.Sub(now))

		select {
		case <-timer.C:
			s.runOnce(ctx, fire)
		case <-ctx.Done():
			timer.Stop()
			slog.Info("[ReportScheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

// runOnce generates the report for the day that ended before the firing
// instant. Firing at 00:00 on the 10th reports on the 9th.
func (s *Scheduler) runOnce(ctx context.Context, fire time.Time) {
	reportDay := fire.AddDate(0, 0, -1)

	genCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	report, err := s.generator.GenerateDailyReport(genCtx, reportDay)
	if err != nil {
		metrics.ReportFailures.Inc()
		slog.Error("[ReportScheduler] Daily report generation failed",
			"report_date", reportDay.Format("2006-01-02"),
			"error", err,
		)
		return
	}

	metrics.ReportsGenerated.Inc()
	slog.Info("[ReportScheduler] Daily report complete",
		"report_date", report.ReportDate.Format("2006-01-02"),
		"total_attempts", report.TotalLoginAttempts,
	)
}
