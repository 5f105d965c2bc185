package audit

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// FileSink appends newline-delimited JSON entries to a local file. Intended
// for development and deployments without a database for audit storage.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (or creates) the audit file in append mode.
func NewFileSink(path string) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	return &FileSink{file: file}, nil
}

// Record appends one JSON line.
func (s *FileSink) Record(ctx context.Context, entry *Entry) error {
	data, err := entry.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Close syncs and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
