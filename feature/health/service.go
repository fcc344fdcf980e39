package health

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownCheck is returned by RunOne for an unregistered name.
var ErrUnknownCheck = errors.New("unknown check")

// Result is the outcome of one check.
type Result struct {
	Name     string        `json:"name"`
	Required bool          `json:"required"`
	OK       bool          `json:"ok"`
	Detail   string        `json:"detail,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Report aggregates every check. Healthy is false when a required check failed.
type Report struct {
	Healthy bool     `json:"healthy"`
	Results []Result `json:"results"`
}

// Service runs the registered checks.
type Service struct {
	checks  []Check
	timeout time.Duration
	logger  *zap.Logger
}

// NewService creates a Service. timeout bounds each check.
func NewService(timeout time.Duration, logger *zap.Logger, checks ...Check) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{checks: checks, timeout: timeout, logger: logger}
}

// Names returns the registered check names in order.
func (s *Service) Names() []string {
	names := make([]string, len(s.checks))
	for i, c := range s.checks {
		names[i] = c.Name
	}
	return names
}

// Run executes every check concurrently.
func (s *Service) Run(ctx context.Context) Report {
	results := make([]Result, len(s.checks))

	var g errgroup.Group
	for i, c := range s.checks {
		g.Go(func() error {
			results[i] = s.run(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Healthy: true, Results: results}
	for _, r := range results {
		if r.Required && !r.OK {
			report.Healthy = false
		}
	}
	return report
}

// RunOne executes the named check.
func (s *Service) RunOne(ctx context.Context, name string) (Result, error) {
	for _, c := range s.checks {
		if c.Name == name {
			return s.run(ctx, c), nil
		}
	}
	return Result{}, ErrUnknownCheck
}

func (s *Service) run(ctx context.Context, c Check) Result {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	detail, err := c.Run(ctx)
	r := Result{Name: c.Name, Required: c.Required, OK: err == nil, Detail: detail, Duration: time.Since(start)}
	if err != nil {
		r.Error = err.Error()
		s.logger.Warn("Health check failed", zap.String("check", c.Name), zap.Bool("required", c.Required), zap.Error(err))
	}
	return r
}
