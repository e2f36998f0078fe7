package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/multierr"

	"github.com/regwave/regwave/internal/models"
)

// AuditSink receives audit entries in addition to the store's own trail.
type AuditSink interface {
	Append(ctx context.Context, entry models.AuditEntry) error
	Close() error
}

// FileAuditLog appends audit entries to a JSONL file, one entry per line,
// flushed per write so a crash loses at most the entry in flight.
type FileAuditLog struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewFileAuditLog opens (or creates) the audit file for appending with
// restrictive permissions.
// #nosec G304 -- the audit path is operator-provided configuration
func NewFileAuditLog(path string) (*FileAuditLog, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open audit log file: %w", err)
	}
	return &FileAuditLog{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Append writes one entry as a JSON line and flushes.
func (w *FileAuditLog) Append(ctx context.Context, entry models.AuditEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write audit newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush audit log: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the file.
func (w *FileAuditLog) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs error
	if w.writer != nil {
		if err := w.writer.Flush(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("flush audit log: %w", err))
		}
	}
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("close audit log file: %w", err))
		}
	}
	return errs
}
