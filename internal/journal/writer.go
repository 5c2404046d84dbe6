package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/zwave-core/internal/zwave"
)

const (
	dirPermissions  = 0750
	filePermissions = 0640
)

// ErrClosed is returned when writing to a closed journal.
var ErrClosed = errors.New("journal: closed")

// Writer appends every delivered event to a file as a CBOR sequence.
// It implements zwave.Deliverer and is safe for concurrent use.
type Writer struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
	written uint64
}

// Open opens (or creates) the journal at path for appending. Missing
// parent directories are created.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Writer{
		file:    f,
		encoder: newEncoder(f),
	}, nil
}

// Deliver implements zwave.Deliverer.
func (w *Writer) Deliver(_ context.Context, ev zwave.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.encoder.Encode(ev); err != nil {
		return fmt.Errorf("journal event %d: %w", ev.Sequence, err)
	}
	w.written++
	return nil
}

// Written returns how many events this writer has appended.
func (w *Writer) Written() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Path returns the journal file path.
func (w *Writer) Path() string {
	return w.file.Name()
}

// Close syncs and closes the file. Further Deliver calls return ErrClosed.
// Safe to call multiple times.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	syncErr := w.file.Sync()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing journal: %w", err)
	}
	if syncErr != nil {
		return fmt.Errorf("syncing journal: %w", syncErr)
	}
	return nil
}

var _ zwave.Deliverer = (*Writer)(nil)
