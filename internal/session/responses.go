package session

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Responses maps a response key to an arbitrary structured value.
// Keys are unique; a later Save to the same key overwrites the value but keeps
// the key's original position, so exports list answers in the order they were
// first given.
type Responses struct {
	keys   []string
	values map[string]any
}

// NewResponses returns an empty response store.
func NewResponses() *Responses {
	return &Responses{values: make(map[string]any)}
}

// Save inserts or overwrites responses[key]. The value is not inspected.
func (r *Responses) Save(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the stored value, or def if key is absent.
func (r *Responses) Get(key string, def any) any {
	if v, ok := r.values[key]; ok {
		return v
	}
	return def
}

// Has reports whether key has been saved.
func (r *Responses) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the keys in first-insertion order.
func (r *Responses) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of stored keys.
func (r *Responses) Len() int {
	return len(r.keys)
}

// Decode converts the value stored under key into v (a pointer) by way of
// JSON. It works for both freshly saved answer structs and values loaded
// from storage. Returns false if the key is absent.
func (r *Responses) Decode(key string, v any) (bool, error) {
	val, ok := r.values[key]
	if !ok {
		return false, nil
	}
	raw, ok := val.(json.RawMessage)
	if !ok {
		var err error
		raw, err = json.Marshal(val)
		if err != nil {
			return true, fmt.Errorf("encoding response %q: %w", key, err)
		}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("decoding response %q: %w", key, err)
	}
	return true, nil
}

// Clone returns a copy that does not share key order or the map with r.
// Values themselves are not deep-copied.
func (r *Responses) Clone() *Responses {
	c := &Responses{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]any, len(r.values)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// MarshalJSON writes the responses as a JSON object in insertion order.
func (r *Responses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("encoding response %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order. Values are kept as
// json.RawMessage so nested objects retain their order too.
func (r *Responses) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading responses: %w", err)
	}
	if tok == nil {
		*r = *NewResponses()
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("responses must be a JSON object, got %v", tok)
	}

	out := NewResponses()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading response key: %w", err)
		}
		key, _ := kt.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("reading response %q: %w", key, err)
		}
		out.Save(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("reading responses: %w", err)
	}
	*r = *out
	return nil
}
