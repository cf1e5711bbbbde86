package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/drivesound/drivesound/internal/store"
)

// Column sets.
const (
	ColumnsAll = "all"
	ColumnsSD  = "sd"
)

// emptyHeader is written when there are no records.
var emptyHeader = []string{"session_id", "saved_at", "responses"}

// utf8BOM lets spreadsheet applications detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options selects what goes into a table.
type Options struct {
	// Columns is ColumnsAll (default) or ColumnsSD, which keeps session_id
	// and the semantic-differential score columns only.
	Columns string
}

// Table is a flat dataset. Each row maps column name to cell text; missing
// cells are empty.
type Table struct {
	Columns []string
	Rows    []map[string]string
}

// Build flattens records into a table. Rows are ordered by save time, then
// session id; columns are the union of all rows in first-seen order.
func Build(records []store.Record, opts Options) (*Table, error) {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b store.Record) int {
		if c := a.SavedAt.Compare(b.SavedAt); c != 0 {
			return c
		}
		return strings.Compare(a.SessionID, b.SessionID)
	})

	t := &Table{}
	seen := make(map[string]bool)
	for _, rec := range sorted {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encoding record %s: %w", rec.SessionID, err)
		}
		row, err := Flatten(data)
		if err != nil {
			return nil, fmt.Errorf("flattening record %s: %w", rec.SessionID, err)
		}
		for _, k := range row.Keys {
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
		t.Rows = append(t.Rows, row.Values)
	}

	if len(t.Rows) == 0 {
		t.Columns = slices.Clone(emptyHeader)
		return t, nil
	}
	if opts.Columns == ColumnsSD {
		t.Columns = sdColumns(t.Columns)
	}
	return t, nil
}

func sdColumns(cols []string) []string {
	out := []string{"session_id"}
	for _, c := range cols {
		if strings.Contains(strings.ToLower(c), "sd_") {
			out = append(out, c)
		}
	}
	return out
}

// WriteCSV writes t as UTF-8 CSV with a byte-order mark and a header row.
func WriteCSV(w io.Writer, t *Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			record[i] = row[c]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. A leading BOM is optional.
func ReadCSV(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	records, err := csv.NewReader(br).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading csv: missing header")
	}

	t := &Table{Columns: records[0]}
	for _, rec := range records[1:] {
		row := make(map[string]string, len(rec))
		for i, c := range t.Columns {
			if rec[i] != "" {
				row[c] = rec[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// FileName returns the export file name for a column set at time now,
// e.g. responses_20260301_101500.csv.
func FileName(columns string, now time.Time) string {
	prefix := "responses"
	if columns == ColumnsSD {
		prefix = "sd_scores"
	}
	return fmt.Sprintf("%s_%s.csv", prefix, now.Format(TimestampLayout))
}

// TimestampLayout is the time format embedded in export file names.
const TimestampLayout = "20060102_150405"

// WriteFile builds the table for gw's records and writes it to path.
// It returns the number of data rows written.
func WriteFile(gw store.Gateway, path string, opts Options) (int, error) {
	records, err := gw.LoadAll()
	if err != nil {
		return 0, fmt.Errorf("loading records: %w", err)
	}
	t, err := Build(records, opts)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating export file: %w", err)
	}
	if err := WriteCSV(f, t); err != nil {
		_ = f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing export file: %w", err)
	}
	return len(t.Rows), nil
}
