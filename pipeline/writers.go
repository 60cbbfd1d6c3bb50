package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aluiziolira/cfscrape/models"
)

// Mode selects how an existing output file is treated.
type Mode int

const (
	// ModeOverwrite truncates the file and always writes the header.
	ModeOverwrite Mode = iota
	// ModeAppend keeps existing rows and writes the header only into an empty file.
	ModeAppend
)

func (m Mode) String() string {
	if m == ModeAppend {
		return "append"
	}
	return "overwrite"
}

// ModeFor returns the write mode used for kind: users accumulate across runs, contests
// and problems are replaced.
func ModeFor(kind models.Kind) Mode {
	if kind == models.KindUsers {
		return ModeAppend
	}
	return ModeOverwrite
}

// Record is a flat output row.
type Record interface {
	Key() string
	Values() []string
}

// CSVWriter writes records to CSV.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	header []string
	mu     sync.Mutex
}

// NewCSVWriter opens filename in mode and writes header when the mode requires it.
func NewCSVWriter(filename string, header []string, mode Mode) (*CSVWriter, error) {
	f, fresh, err := openOutput(filename, mode)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if fresh {
		if err := writer.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}

	return &CSVWriter{
		file:   f,
		writer: writer,
		header: header,
	}, nil
}

// Write appends records to the CSV output.
func (cw *CSVWriter) Write(records []Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, record := range records {
		values := record.Values()
		if len(values) != len(cw.header) {
			return fmt.Errorf("record %q has %d columns, header has %d", record.Key(), len(values), len(cw.header))
		}
		if err := cw.writer.Write(values); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the file has at least the header.
func (cw *CSVWriter) Validate() error {
	info, err := cw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter opens filename in mode.
func NewJSONWriter(filename string, mode Mode) (*JSONWriter, error) {
	f, _, err := openOutput(filename, mode)
	if err != nil {
		return nil, fmt.Errorf("open json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends records in JSONL format.
func (jw *JSONWriter) Write(records []Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, record := range records {
		if err := jw.encoder.Encode(record); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate only checks the file is reachable; a batch with no rows leaves it empty.
func (jw *JSONWriter) Validate() error {
	if _, err := jw.file.Stat(); err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	return nil
}

// CreateWriter opens the writer for kind in the given format (csv, json or dual).
func CreateWriter(format, filename string, kind models.Kind) (OutputWriter, error) {
	header := models.Header(kind)
	mode := ModeFor(kind)
	switch format {
	case "json":
		return NewJSONWriter(filename, mode)
	case "csv":
		return NewCSVWriter(filename, header, mode)
	case "dual":
		return NewDualWriter(filename, JSONSibling(filename), header, mode)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// JSONSibling derives the JSON path written next to a CSV file in dual mode.
func JSONSibling(filename string) string {
	return strings.TrimSuffix(filename, ".csv") + ".json"
}

// openOutput reports fresh=true when the returned file is empty and needs a header.
func openOutput(filename string, mode Mode) (*os.File, bool, error) {
	if err := ensureDir(filename); err != nil {
		return nil, false, err
	}

	if mode == ModeOverwrite {
		f, err := os.Create(filename)
		if err != nil {
			return nil, false, err
		}
		return f, true, nil
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, false, err
	}
	return f, info.Size() == 0, nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
