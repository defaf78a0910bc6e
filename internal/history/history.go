// Package history keeps an append-only log of saved captures and converts it
// into parquet for inventory analysis.
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/parquet-go/parquet-go"
)

// Record is one saved capture.
type Record struct {
	EAN        string  `json:"ean" parquet:"ean"`
	Name       string  `json:"name" parquet:"name"`
	Qty        float64 `json:"qty" parquet:"qty"`
	ShopID     *int64  `json:"shop_id,omitempty" parquet:"shop_id,optional"`
	UserID     *int64  `json:"user_id,omitempty" parquet:"user_id,optional"`
	UserName   string  `json:"user_name,omitempty" parquet:"user_name"`
	CapturedAt int64   `json:"captured_at" parquet:"captured_at"`
}

// Log appends records to a JSONL file, one object per line.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates a log writer for path. The file is created on first append.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Append writes one record.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode history record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// Load reads records from a history file, JSONL or parquet, detected by
// extension.
func Load(path string) ([]Record, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".parquet":
		return loadParquet(path)
	case ".jsonl", ".json":
		return loadJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

func loadJSONL(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}
	return records, nil
}

func loadParquet(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Record](pf)
	defer reader.Close()

	records := make([]Record, 0, reader.NumRows())
	buf := make([]Record, 64)
	for {
		n, err := reader.Read(buf)
		records = append(records, buf[:n]...)
		if err != nil {
			break
		}
	}
	return records, nil
}

// WriteParquet writes records as a parquet file.
func WriteParquet(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[Record](f)
	if _, err := writer.Write(records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return f.Close()
}
