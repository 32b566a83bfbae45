package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Item is one stored record, kept as the raw JSON it was written with.
type Item json.RawMessage

// ParseItem validates b as a single JSON value and returns it compacted.
func ParseItem(b []byte) (Item, error) {
	if !json.Valid(b) {
		return nil, fmt.Errorf("%w: invalid item JSON", ErrDecode)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Item(buf.Bytes()), nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	if len(it) == 0 {
		return []byte("null"), nil
	}
	return it, nil
}

func (it *Item) UnmarshalJSON(b []byte) error {
	*it = append((*it)[:0], b...)
	return nil
}

// ID returns the numeric "id" field of an object item. Items that are not
// objects, or whose id is absent or not a JSON number, report false.
func (it Item) ID() (float64, bool) {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(it, &probe); err != nil {
		return 0, false
	}
	raw := bytes.TrimSpace(probe.ID)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}

// Collection is a named, ordered sequence of items.
type Collection []Item

// Document is the entire persisted state, keyed by collection name.
//
// A nil Document is the empty-sequence document produced by a missing or
// empty backing: it has no collections and encodes as []. A non-nil
// Document, even with no keys, encodes as a JSON object.
type Document map[string]Collection

// IsEmptySequence reports whether d is the empty-sequence document.
func (d Document) IsEmptySequence() bool {
	return d == nil
}

// Collection returns the named collection and whether the key is present.
func (d Document) Collection(name string) (Collection, bool) {
	c, ok := d[name]
	return c, ok
}

func (d Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return marshal(map[string]Collection(d))
}

func (d *Document) UnmarshalJSON(b []byte) error {
	doc, err := Decode(b)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Decode parses persisted content. Blank content and any JSON array root
// decode to the empty-sequence document; other non-object roots are
// rejected with ErrDecode.
func Decode(b []byte) (Document, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}
	if !json.Valid(b) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrDecode)
	}
	switch b[0] {
	case '[':
		return nil, nil
	case '{':
		m := map[string]Collection{}
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return Document(m), nil
	default:
		return nil, fmt.Errorf("%w: unsupported root %q", ErrDecode, b[0])
	}
}

// Encode serializes d compactly, without HTML escaping.
func Encode(d Document) ([]byte, error) {
	return marshal(d)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
