package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// captureSink records entries in memory for assertions.
type captureSink struct {
	mu      sync.Mutex
	entries []*Entry
	err     error
}

func (s *captureSink) Record(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) all() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Entry(nil), s.entries...)
}

func TestBestEffortSink_FillsDefaults(t *testing.T) {
	inner := &captureSink{}
	sink := NewBestEffortSink(inner, logrus.New())

	result := true
	err := sink.Record(context.Background(), &Entry{
		ActorUserID: "u-1",
		ActionKind:  KindPermissionCheck,
		Result:      &result,
	})
	if err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries := inner.all()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected generated entry id")
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("expected created_at to be filled")
	}
}

func TestBestEffortSink_SwallowsFailures(t *testing.T) {
	inner := &captureSink{err: errors.New("audit store rejected insert")}
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	sink := NewBestEffortSink(inner, log)

	if err := sink.Record(context.Background(), &Entry{ActionKind: KindPermissionUpdate}); err != nil {
		t.Fatalf("failure must not propagate to the caller, got %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestBestEffortSink_SurvivesCanceledContext(t *testing.T) {
	inner := &captureSink{}
	sink := NewBestEffortSink(inner, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sink.Record(ctx, &Entry{ActionKind: KindRouteCheck}); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(inner.all()) != 1 {
		t.Error("write should complete even when the request context is canceled")
	}
}

func TestNoopSink(t *testing.T) {
	var sink NoopSink
	if err := sink.Record(context.Background(), &Entry{}); err != nil {
		t.Errorf("NoopSink.Record returned %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("NoopSink.Close returned %v", err)
	}
}
