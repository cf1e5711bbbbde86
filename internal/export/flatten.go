// Package export turns stored session records into a flat table: one row
// per session, one column per leaf value.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Sep joins nested keys into a column name.
const Sep = "_"

// Row is a flattened record. Keys keeps first-seen column order.
type Row struct {
	Keys   []string
	Values map[string]string
}

func (r *Row) set(key, value string) {
	if r.Values == nil {
		r.Values = make(map[string]string)
	}
	if _, ok := r.Values[key]; !ok {
		r.Keys = append(r.Keys, key)
	}
	r.Values[key] = value
}

// Flatten flattens a JSON object. Nested objects contribute their leaves
// under parent_child names; lists are kept whole as compact JSON text; null
// becomes an empty cell. Empty objects contribute no columns.
func Flatten(data []byte) (Row, error) {
	var row Row
	if err := flattenObject(data, "", &row); err != nil {
		return Row{}, err
	}
	return row, nil
}

func flattenObject(data []byte, prefix string, row *Row) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading object: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", tok)
		}
		if prefix != "" {
			key = prefix + Sep + key
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("reading %s: %w", key, err)
		}
		if err := flattenValue(raw, key, row); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return fmt.Errorf("closing object: %w", err)
	}
	return nil
}

func flattenValue(raw json.RawMessage, key string, row *Row) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		row.set(key, "")
		return nil
	}
	switch raw[0] {
	case '{':
		return flattenObject(raw, key, row)
	case '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return fmt.Errorf("compacting %s: %w", key, err)
		}
		row.set(key, buf.String())
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		row.set(key, s)
	case 'n':
		row.set(key, "")
	default:
		// numbers and booleans keep their JSON spelling
		row.set(key, string(raw))
	}
	return nil
}
