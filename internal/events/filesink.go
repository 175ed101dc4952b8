package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink appends Events to a JSONL file.
// It is safe for concurrent use from multiple goroutines.
type FileSink struct {
	path   string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewFileSink opens path for appending, creating it and its parent
// directories when missing.
func NewFileSink(path string) (*FileSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create events directory: %w", err)
		}
	}

	// Error messages from the API can echo request data
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}

	return &FileSink{
		path:   path,
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Write writes a batch of events to the JSONL file.
// Each event is written as a single JSON line.
func (s *FileSink) Write(events []Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return fmt.Errorf("events file is closed")
	}

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		if _, err := s.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		if err := s.writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
	}

	// Flush to ensure events are persisted
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush events: %w", err)
	}

	return nil
}

// Record writes a single event to the JSONL file.
func (s *FileSink) Record(event Event) error {
	return s.Write([]Event{event})
}

// Flush flushes any buffered data to the underlying file.
func (s *FileSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return nil
}

// Close flushes any remaining data and closes the file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}

	// Flush any remaining buffered data
	if err := s.writer.Flush(); err != nil {
		// Still try to close the file even if flush fails
		_ = s.file.Close()
		s.file = nil
		return fmt.Errorf("failed to flush before close: %w", err)
	}

	if err := s.file.Close(); err != nil {
		s.file = nil
		return fmt.Errorf("failed to close events file: %w", err)
	}

	s.file = nil
	return nil
}

// Path returns the path to the events file.
func (s *FileSink) Path() string {
	return s.path
}

// ReadEvents reads all events from a JSONL file.
func ReadEvents(path string) ([]Event, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var events []Event
	scanner := bufio.NewScanner(file)

	// Set a larger buffer for potentially large JSON lines (1MB max)
	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("failed to parse event on line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}

	return events, nil
}

// FilterByType filters events by event type.
func FilterByType(events []Event, types ...EventType) []Event {
	if len(types) == 0 {
		return events
	}

	typeSet := make(map[EventType]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	var filtered []Event
	for _, event := range events {
		if typeSet[event.Type] {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// FilterByRun returns the events of one run. An empty runID returns all
// events.
func FilterByRun(events []Event, runID string) []Event {
	if runID == "" {
		return events
	}

	var filtered []Event
	for _, event := range events {
		if event.RunID == runID {
			filtered = append(filtered, event)
		}
	}
	return filtered
}
