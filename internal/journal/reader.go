package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/zwave-core/internal/zwave"
)

// Filter selects journal entries. Zero-valued fields match everything.
type Filter struct {
	// Name matches the event name exactly (e.g., "value changed").
	Name string

	HomeID uint32
	NodeID *uint8

	// FromSequence skips events with a lower sequence number. Sequence
	// numbers restart at 1 each time the process starts, so across restarts
	// it matches entries from every run; combine it with TimeStart to stay
	// within one run.
	FromSequence uint64

	// TimeStart and TimeEnd bound the event timestamp; TimeEnd is exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time
}

func (f *Filter) matches(ev *zwave.Event) bool {
	if f.Name != "" && ev.Name != f.Name {
		return false
	}
	if f.HomeID != 0 && ev.HomeID != f.HomeID {
		return false
	}
	if f.NodeID != nil && ev.NodeID != *f.NodeID {
		return false
	}
	if ev.Sequence < f.FromSequence {
		return false
	}
	if f.TimeStart != nil && ev.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !ev.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams events back out of a journal file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens path for reading every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path for reading events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	return &Reader{
		file:    f,
		decoder: newDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
// A journal truncated mid-entry (e.g. by a crash) ends with
// io.ErrUnexpectedEOF.
func (r *Reader) Next() (zwave.Event, error) {
	for {
		var ev zwave.Event
		if err := r.decoder.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return zwave.Event{}, io.EOF
			}
			return zwave.Event{}, fmt.Errorf("decoding journal entry: %w", err)
		}
		if r.filter.matches(&ev) {
			return ev, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll returns every event in path matching filter.
func ReadAll(path string, filter Filter) ([]zwave.Event, error) {
	r, err := NewFilteredReader(path, filter)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var events []zwave.Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}
