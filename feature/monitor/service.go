package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"inventory-sync/core/clock"
	"inventory-sync/core/reconcile"

	"go.uber.org/zap"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("reconciliation run already in progress")

// Engine is the part of reconcile.Engine driven by the monitor.
type Engine interface {
	Run(ctx context.Context) (reconcile.Summary, error)
	SendDailyReport(ctx context.Context) (reconcile.DailyReport, error)
	MissingEntities(ctx context.Context) ([]reconcile.MissingEntry, error)
}

// Archiver stores run history. It is optional.
type Archiver interface {
	SaveSummary(ctx context.Context, s reconcile.Summary) (string, error)
	SaveReport(ctx context.Context, r reconcile.DailyReport) (string, error)
	Prune(ctx context.Context) (int, error)
}

// Status is a snapshot of the monitor's state.
type Status struct {
	Running     bool               `json:"running"`
	Runs        int                `json:"runs"`
	LastSummary *reconcile.Summary `json:"last_summary,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
	LastReport  string             `json:"last_report,omitempty"`
	NextRun     *time.Time         `json:"next_run,omitempty"`
	NextReport  *time.Time         `json:"next_report,omitempty"`
	SchedulerOn bool               `json:"scheduler"`
	DryRun      bool               `json:"dry_run"`
}

// Service serializes reconciliation runs and schedules them.
type Service struct {
	engine  Engine
	archive Archiver
	cfg     Config
	clock   clock.Clock
	logger  *zap.Logger

	runMu sync.Mutex

	mu     sync.RWMutex
	status Status
}

// NewService creates a monitor. archive may be nil.
func NewService(engine Engine, archive Archiver, cfg Config, clk clock.Clock, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine:  engine,
		archive: archive,
		cfg:     cfg,
		clock:   clk,
		logger:  logger,
		status:  Status{DryRun: cfg.DryRun},
	}
}

// RunOnce performs one reconciliation pass. Concurrent calls fail with ErrRunInProgress.
func (s *Service) RunOnce(ctx context.Context) (reconcile.Summary, error) {
	if !s.runMu.TryLock() {
		return reconcile.Summary{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	s.update(func(st *Status) { st.Running = true })

	summary, err := s.engine.Run(ctx)

	s.update(func(st *Status) {
		st.Running = false
		st.Runs++
		st.LastSummary = &summary
		st.LastError = ""
		if err != nil {
			st.LastError = err.Error()
		}
	})

	if s.archive != nil && !summary.StartedAt.IsZero() {
		if key, aerr := s.archive.SaveSummary(context.WithoutCancel(ctx), summary); aerr != nil {
			s.logger.Warn("Failed to archive run summary", zap.Error(aerr))
		} else {
			s.logger.Debug("Run summary archived", zap.String("key", key))
		}
	}
	return summary, err
}

// SendDailyReport builds and sends the daily report, then archives it.
func (s *Service) SendDailyReport(ctx context.Context) (reconcile.DailyReport, error) {
	report, err := s.engine.SendDailyReport(ctx)
	if report.Date != "" {
		s.update(func(st *Status) { st.LastReport = report.Date })
	}

	if s.archive != nil && report.Date != "" {
		actx := context.WithoutCancel(ctx)
		if _, aerr := s.archive.SaveReport(actx, report); aerr != nil {
			s.logger.Warn("Failed to archive daily report", zap.Error(aerr))
		}
		if _, perr := s.archive.Prune(actx); perr != nil {
			s.logger.Warn("Failed to prune archive", zap.Error(perr))
		}
	}
	return report, err
}

// Missing lists the entities currently marked missing.
func (s *Service) Missing(ctx context.Context) ([]reconcile.MissingEntry, error) {
	return s.engine.MissingEntities(ctx)
}

// Status returns a copy of the current status.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if st.LastSummary != nil {
		summary := *st.LastSummary
		st.LastSummary = &summary
	}
	return st
}

func (s *Service) update(fn func(st *Status)) {
	s.mu.Lock()
	fn(&s.status)
	s.mu.Unlock()
}
