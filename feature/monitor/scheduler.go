package monitor

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// NextReportAt returns the first instant at hour:00 UTC strictly after now.
func NextReportAt(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start runs the scheduler until ctx is cancelled. Runs happen every
// Interval; the daily report fires once per day at DailyReportHour.
func (s *Service) Start(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	s.update(func(st *Status) { st.SchedulerOn = true })
	defer s.update(func(st *Status) {
		st.SchedulerOn = false
		st.NextRun = nil
		st.NextReport = nil
	})

	s.logger.Info("Starting scheduler",
		zap.Duration("interval", interval),
		zap.Int("daily_report_hour", s.cfg.DailyReportHour),
		zap.Bool("dry_run", s.cfg.DryRun),
	)

	if s.cfg.RunOnStart {
		s.scheduledRun(ctx)
	}

	runTimer := time.NewTimer(interval)
	defer runTimer.Stop()
	s.setNextRun(s.clock.Now().Add(interval))

	// A nil channel never fires, which disables the report case.
	var (
		reportTimer *time.Timer
		reportC     <-chan time.Time
	)
	if s.cfg.ReportEnabled() {
		reportTimer = s.armReport()
		reportC = reportTimer.C
		defer func() { reportTimer.Stop() }()
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-runTimer.C:
			s.scheduledRun(ctx)
			runTimer.Reset(interval)
			s.setNextRun(s.clock.Now().Add(interval))
		case <-reportC:
			s.scheduledReport(ctx)
			reportTimer = s.armReport()
			reportC = reportTimer.C
		}
	}
}

func (s *Service) armReport() *time.Timer {
	now := s.clock.Now()
	next := NextReportAt(now, s.cfg.DailyReportHour)
	s.update(func(st *Status) { st.NextReport = &next })
	return time.NewTimer(next.Sub(now))
}

func (s *Service) setNextRun(at time.Time) {
	s.update(func(st *Status) { st.NextRun = &at })
}

func (s *Service) scheduledRun(ctx context.Context) {
	_, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn("Skipping scheduled run, previous run still active")
	case err != nil:
		s.logger.Error("Scheduled run failed", zap.Error(err))
	}
}

func (s *Service) scheduledReport(ctx context.Context) {
	report, err := s.SendDailyReport(ctx)
	if err != nil {
		s.logger.Error("Daily report failed", zap.Error(err))
		return
	}
	s.logger.Info("Daily report sent", zap.String("date", report.Date), zap.Int("missing", len(report.Missing)))
}
