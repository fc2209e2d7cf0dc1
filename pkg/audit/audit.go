// Package audit records classification outcomes for offline review. Sinks
// are append-only and never sit on the request path: the gateway publishes
// events fire-and-forget.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phishguard/phishguard/pkg/engine"
)

// Event is one audited classification.
type Event struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	Input       string    `json:"input"`
	Label       string    `json:"label"`
	Confidence  float64   `json:"confidence"`
	Probability float64   `json:"probability"`
	Trusted     bool      `json:"trusted"`
	Source      string    `json:"source"` // "http" or "cli"
}

// NewEvent builds an audit event from a verdict.
func NewEvent(v *engine.Verdict, source string) Event {
	return Event{
		ID:          uuid.NewString(),
		Time:        time.Now().UTC(),
		Input:       v.Input,
		Label:       v.Label,
		Confidence:  v.Confidence,
		Probability: v.Probability,
		Trusted:     v.TrustedOverride,
		Source:      source,
	}
}

// Sink persists audit events.
type Sink interface {
	Write(ev Event) error
	Close() error
}

// FileSink appends events as JSON lines, one object per line.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (or creates) the JSONL audit log at path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &FileSink{file: f}, nil
}

// Write appends one event.
func (s *FileSink) Write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Close flushes and closes the log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// MultiSink fans an event out to several sinks; the first error wins but all
// sinks are attempted.
type MultiSink []Sink

func (m MultiSink) Write(ev Event) error {
	var first error
	for _, s := range m {
		if err := s.Write(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
