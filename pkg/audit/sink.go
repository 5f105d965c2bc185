package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Sink accepts audit entries for durable storage.
type Sink interface {
	// Record writes one entry.
	Record(ctx context.Context, entry *Entry) error

	// Close flushes buffered entries and releases resources.
	Close() error
}

// NoopSink discards every entry. Used when auditing is disabled.
type NoopSink struct{}

func (NoopSink) Record(ctx context.Context, entry *Entry) error { return nil }
func (NoopSink) Close() error                                   { return nil }

// BestEffortSink decouples audit writes from the caller: Record enqueues the
// write on a goroutine detached from the caller's cancellation, and any
// failure is logged locally instead of propagating. Audit logging must never
// be able to break an authorization decision or a permission mutation.
type BestEffortSink struct {
	inner    Sink
	log      logrus.FieldLogger
	failures prometheus.Counter
	wg       sync.WaitGroup
}

// NewBestEffortSink wraps a sink in fire-and-forget semantics.
func NewBestEffortSink(inner Sink, log logrus.FieldLogger) *BestEffortSink {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BestEffortSink{inner: inner, log: log}
}

// WithFailureCounter counts swallowed write failures for alerting.
func (s *BestEffortSink) WithFailureCounter(c prometheus.Counter) *BestEffortSink {
	s.failures = c
	return s
}

// Record never blocks on the underlying sink and never returns an error.
// Missing ids and timestamps are filled in before the write is handed off.
func (s *BestEffortSink) Record(ctx context.Context, entry *Entry) error {
	e := *entry
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	// The write must survive the request that triggered it.
	detached := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.inner.Record(detached, &e); err != nil {
			if s.failures != nil {
				s.failures.Inc()
			}
			s.log.WithError(err).WithFields(logrus.Fields{
				"action_kind": e.ActionKind,
				"actor":       e.ActorUserID,
			}).Warn("audit write failed")
		}
	}()

	return nil
}

// Close waits for in-flight writes before closing the underlying sink.
func (s *BestEffortSink) Close() error {
	s.wg.Wait()
	return s.inner.Close()
}
