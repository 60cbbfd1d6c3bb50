package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// MultiWriter fans every batch out to several writers in order.
type MultiWriter struct {
	writers []namedWriter
	mu      sync.Mutex
}

type namedWriter struct {
	name string
	w    OutputWriter
}

// NewDualWriter writes the same rows as CSV and as JSON Lines.
func NewDualWriter(csvFilename, jsonFilename string, header []string, mode Mode) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename, header, mode)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename, mode)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}

	return &MultiWriter{writers: []namedWriter{
		{name: "csv", w: csvWriter},
		{name: "json", w: jsonWriter},
	}}, nil
}

// Write stops at the first failing writer.
func (mw *MultiWriter) Write(records []Record) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for _, nw := range mw.writers {
		if err := nw.w.Write(records); err != nil {
			return fmt.Errorf("%s write: %w", nw.name, err)
		}
	}
	return nil
}

// Close closes every writer and joins their errors.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var errs []error
	for _, nw := range mw.writers {
		if err := nw.w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", nw.name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate validates every writer and joins their errors.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for _, nw := range mw.writers {
		if err := nw.w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s validate: %w", nw.name, err))
		}
	}
	return errors.Join(errs...)
}
