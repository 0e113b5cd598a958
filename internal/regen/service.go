// Package regen implements the regeneration and rollback services: building
// new immutable versions from changed inputs and promoting them atomically.
package regen

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/loomkit/loom/internal/bump"
	"github.com/loomkit/loom/internal/metrics"
	"github.com/loomkit/loom/internal/store"
)

// defaultCASRetries bounds how often an operation re-reads and retries
// after the current-version pointer moved under it.
const defaultCASRetries = 3

// Service regenerates artifacts and rolls them back.
//
// All writes go through the store's AppendVersion CAS, so a Service is safe
// to run alongside other writers. The per-artifact lock only serializes
// within this process.
type Service struct {
	store      *store.Store
	gen        Generator
	classifier bump.Classifier
	log        zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	casRetries int
	locks      *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log.With().Str("component", "regen").Logger()
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClassifier overrides the bump classifier.
func WithClassifier(c bump.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithClock overrides the wall clock. Tests use this to pin timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCASRetries overrides the pointer-conflict retry budget.
func WithCASRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.casRetries = n
		}
	}
}

// NewService creates a regeneration service.
func NewService(st *store.Store, gen Generator, opts ...Option) *Service {
	s := &Service{
		store:      st,
		gen:        gen,
		classifier: bump.New(bump.DefaultThreshold),
		log:        zerolog.Nop(),
		metrics:    metrics.NewNop(),
		now:        time.Now,
		casRetries: defaultCASRetries,
		locks:      newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
