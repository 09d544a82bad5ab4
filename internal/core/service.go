package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"daphniacore/pkg/domain"
)

// Service is the lineage facade handed to presentation collaborators. It
// holds at most one Snapshot per cache day and rebuilds lazily: the first
// call on a new day performs the bulk read, builds a fresh index, and swaps
// the snapshot pointer atomically. Every query then runs against that
// immutable value, so concurrent readers need no locking.
type Service struct {
	source   domain.Source
	policy   Policy
	logger   Logger
	metrics  MetricsRecorder
	tracer   Tracer
	archiver *SnapshotArchiver
	loc      *time.Location
	nowFn    func() time.Time

	mu      sync.Mutex // serializes rebuilds only
	current atomic.Pointer[cachedSnapshot]
}

type cachedSnapshot struct {
	dayKey string
	snap   *Snapshot
}

// Option configures a Service.
type Option func(*Service)

// WithPolicy overrides the decision policy (DefaultPolicy otherwise).
func WithPolicy(p Policy) Option { return func(s *Service) { s.policy = p } }

// WithLogger attaches a structured logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics attaches a metrics recorder observing every operation.
func WithMetrics(m MetricsRecorder) Option { return func(s *Service) { s.metrics = m } }

// WithTracer attaches a tracer spanning every operation.
func WithTracer(t Tracer) Option { return func(s *Service) { s.tracer = t } }

// WithArchiver attaches a snapshot archiver invoked after each rebuild.
func WithArchiver(a *SnapshotArchiver) Option { return func(s *Service) { s.archiver = a } }

// WithLocation sets the timezone whose calendar day bounds the snapshot
// cache period (UTC otherwise; the deployed colony ran on Asia/Seoul).
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock injects the clock used for day keys, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewService constructs a service over the given data source.
func NewService(source domain.Source, opts ...Option) *Service {
	s := &Service{
		source: source,
		policy: DefaultPolicy(),
		logger: noopLogger{},
		loc:    time.UTC,
		nowFn:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) dayKey() string {
	return s.nowFn().In(s.loc).Format("20060102")
}

// Snapshot returns the snapshot for the current cache day, rebuilding it
// from the source when the day has rolled over or nothing is cached yet.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	day := s.dayKey()
	if cached := s.current.Load(); cached != nil && cached.dayKey == day {
		return cached.snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached := s.current.Load(); cached != nil && cached.dayKey == day {
		return cached.snap, nil
	}
	return s.rebuild(ctx, day)
}

// Refresh discards any cached snapshot and rebuilds from the source.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuild(ctx, s.dayKey())
}

// rebuild is called with s.mu held.
func (s *Service) rebuild(ctx context.Context, day string) (snap *Snapshot, err error) {
	defer s.observe(ctx, "snapshot_rebuild", time.Now(), &err)
	if s.source == nil {
		return nil, fmt.Errorf("lineage service: no data source configured")
	}
	rows, err := s.source.FetchSpecimens(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch specimens: %w", err)
	}
	snap = BuildSnapshot(rows)
	s.current.Store(&cachedSnapshot{dayKey: day, snap: snap})
	s.logger.Info("lineage snapshot rebuilt", "day_key", day, "specimens", snap.Len())

	if s.archiver != nil {
		if info, aerr := s.archiver.Archive(ctx, day, snap); aerr != nil {
			// Archiving is an audit convenience; a failed write must not
			// take down resolution.
			s.logger.Warn("snapshot archive failed", "day_key", day, "error", aerr)
		} else {
			s.logger.Debug("snapshot archived", "key", info.Key, "bytes", info.Size)
		}
	}
	return snap, nil
}

// observe finishes instrumentation for one operation; meant to run deferred.
func (s *Service) observe(ctx context.Context, op string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.Observe(ctx, op, *err == nil, time.Since(start))
	}
}

func (s *Service) span(ctx context.Context, op string) (context.Context, TraceSpan) {
	if s.tracer == nil {
		return ctx, nil
	}
	return s.tracer.Start(ctx, op)
}

// Resolve maps free-form user input to a specimen row and its full
// identifier.
func (s *Service) Resolve(ctx context.Context, input string) (row domain.Specimen, fullID string, err error) {
	ctx, sp := s.span(ctx, "resolve")
	defer s.observe(ctx, "resolve", time.Now(), &err)
	defer func() {
		if sp != nil {
			sp.End(err)
		}
	}()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Specimen{}, "", err
	}
	return snap.Resolve(input)
}

// ChildrenOf returns the child identifiers recorded for the full identifier.
func (s *Service) ChildrenOf(ctx context.Context, fullID string) ([]string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.ChildrenOf(fullID), nil
}

// DecideNextBrood runs the decision engine for a resolved parent row and its
// children under the service policy.
func (s *Service) DecideNextBrood(ctx context.Context, parent domain.Specimen, children []string) (dec Decision, err error) {
	ctx, sp := s.span(ctx, "decide_next_brood")
	defer s.observe(ctx, "decide_next_brood", time.Now(), &err)
	defer func() {
		if sp != nil {
			sp.End(err)
		}
	}()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Decision{}, err
	}
	return snap.DecideNextBrood(parent, children, s.policy)
}

// DecideBroodAt evaluates the engine for an explicit brood index.
func (s *Service) DecideBroodAt(ctx context.Context, parent domain.Specimen, index int) (Decision, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return Decision{}, err
	}
	return snap.DecideBroodAt(parent, index, s.policy)
}

// SuggestNextBrood is the one-shot flow the coder page drives: resolve the
// mother, look up her children, decide the next brood.
func (s *Service) SuggestNextBrood(ctx context.Context, input string) (domain.Specimen, Decision, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return domain.Specimen{}, Decision{}, err
	}
	row, fullID, err := snap.Resolve(input)
	if err != nil {
		return domain.Specimen{}, Decision{}, err
	}
	dec, err := snap.DecideNextBrood(row, snap.ChildrenOf(fullID), s.policy)
	if err != nil {
		return domain.Specimen{}, Decision{}, err
	}
	return row, dec, nil
}

// Canonicalize normalizes a raw identifier, for callers pre-validating input
// or displaying the canonical core.
func (s *Service) Canonicalize(raw string) (domain.CanonicalCore, error) {
	return domain.ParseCore(raw)
}
