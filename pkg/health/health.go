package health

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 3 * time.Second

// Probe states.
const (
	StatusUp       = "up"
	StatusDown     = "down"
	StatusDegraded = "degraded"
)

// CheckFunc reports whether a dependency is usable. The db, redis and job
// packages expose constructors returning this shape.
type CheckFunc func(ctx context.Context) error

// Checks maps a dependency name to its check.
type Checks map[string]CheckFunc

// Result is the outcome of one check.
type Result struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Report is the body of a readiness probe.
type Report struct {
	Status string   `json:"status"`
	Checks []Result `json:"checks,omitempty"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool { return r.Status == StatusUp }

// Option configures the readiness probe.
type Option func(*prober)

// WithTimeout bounds a whole probe. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger logs failing checks at warn level.
func WithLogger(l *slog.Logger) Option {
	return func(p *prober) {
		if l != nil {
			p.logger = l
		}
	}
}

type prober struct {
	checks  Checks
	timeout time.Duration
	logger  *slog.Logger
}

func newProber(checks Checks, opts ...Option) *prober {
	p := &prober{
		checks:  checks,
		timeout: defaultTimeout,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes checks concurrently and returns the report sorted by name.
func Run(ctx context.Context, checks Checks, opts ...Option) Report {
	return newProber(checks, opts...).run(ctx)
}

func (p *prober) run(ctx context.Context) Report {
	if len(p.checks) == 0 {
		return Report{Status: StatusUp}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make([]Result, 0, len(p.checks))
	)
	for name, check := range p.checks {
		g.Go(func() error {
			res := p.probe(ctx, name, check)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(results, func(a, b Result) int { return strings.Compare(a.Name, b.Name) })

	status := StatusUp
	for _, res := range results {
		if res.Status == StatusDown {
			status = StatusDegraded
			break
		}
	}
	return Report{Status: status, Checks: results}
}

func (p *prober) probe(ctx context.Context, name string, check CheckFunc) Result {
	start := time.Now()
	err := check(ctx)
	res := Result{Name: name, Status: StatusUp, LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = StatusDown
		res.Error = err.Error()
		p.logger.WarnContext(ctx, "health check failed",
			slog.String("check", name),
			slog.Duration("latency", time.Since(start)),
			slog.String("error", err.Error()),
		)
	}
	return res
}
