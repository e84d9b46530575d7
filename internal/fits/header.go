package fits

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Header is the ordered keyword/value mapping of a FITS primary header
type Header struct {
	keys     []string
	values   map[string]any
	warnings []error
}

func newHeader() *Header {
	return &Header{values: make(map[string]any)}
}

// Len returns the number of distinct keywords
func (h *Header) Len() int {
	return len(h.keys)
}

// Keys returns keywords in the order they first appeared
func (h *Header) Keys() []string {
	out := make([]string, len(h.keys))
	copy(out, h.keys)
	return out
}

// Warnings returns problems found while decoding that did not stop it
func (h *Header) Warnings() []error {
	return append([]error(nil), h.warnings...)
}

// Get returns the value stored for a keyword
func (h *Header) Get(key string) (any, bool) {
	v, ok := h.values[strings.ToUpper(key)]
	return v, ok
}

// set stores a value; a repeated keyword keeps its first position and the last value
func (h *Header) set(key string, value any) {
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// appendCommentary joins repeated COMMENT/HISTORY cards with newlines
func (h *Header) appendCommentary(key, text string) {
	prev, exists := h.values[key]
	if s, ok := prev.(string); exists && ok {
		h.values[key] = s + "\n" + text
		return
	}
	h.set(key, text)
}

// String returns the first of keys holding a non-blank scalar, rendered as text
func (h *Header) String(keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := h.Get(key)
		if !ok {
			continue
		}
		if s, ok := scalarText(v); ok {
			return s, true
		}
	}
	return "", false
}

// Float returns the first of keys holding a number or numeric string
func (h *Header) Float(keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := h.Get(key)
		if !ok {
			continue
		}
		switch x := v.(type) {
		case float64:
			if !math.IsNaN(x) && !math.IsInf(x, 0) {
				return x, true
			}
		case int64:
			return float64(x), true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// JSON serializes the header as a JSON object, keys in header order.
// Values become strings, numbers, booleans or null; anything else is
// rendered with its %v form.
func (h *Header) JSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range h.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("encode key %q: %w", key, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(jsonValue(h.values[key]))
		if err != nil {
			return nil, fmt.Errorf("encode value of %s: %w", key, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func jsonValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return strconv.FormatFloat(x, 'g', -1, 64)
		}
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

func scalarText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}
