package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const indent = "  "

// Normalize renders a layout document as two-space indented JSON suitable
// for line-based comparison.
//
// Text input (string, []byte, json.RawMessage) is re-indented as is, so the
// member order of the source API survives. When the document is an object
// carrying sitecore.route, only the route is emitted. Scalars keep their
// source spelling: 1.0 stays 1.0 and \u00e9 stays escaped, so two documents
// that differ only in number or escape spelling do not compare identical.
// Text that is not JSON
// comes back unchanged. Any other value is marshalled first; Go maps come out
// with sorted keys on that path. Normalize never panics.
func Normalize(input any) string {
	switch v := input.(type) {
	case nil:
		return "null"
	case string:
		return normalizeText(v)
	case []byte:
		return normalizeText(string(v))
	case json.RawMessage:
		return normalizeText(string(v))
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		if out, ok := normalizeRaw(raw); ok {
			return out
		}
		return string(raw)
	}
}

func normalizeText(s string) string {
	raw := bytes.TrimSpace([]byte(s))
	if !json.Valid(raw) {
		return s
	}
	out, ok := normalizeRaw(raw)
	if !ok {
		return s
	}
	return out
}

func normalizeRaw(raw []byte) (string, bool) {
	target := raw
	if route, ok := ExtractRoute(raw); ok {
		target = route
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, target, "", indent); err != nil {
		return "", false
	}
	return buf.String(), true
}

// ExtractRoute returns the raw sitecore.route member of a layout document.
// The second result is false when raw is not an object, has no sitecore
// object, or the route is null, false, zero or an empty string.
func ExtractRoute(raw []byte) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, false
	}

	sitecore := bytes.TrimSpace(top["sitecore"])
	if len(sitecore) == 0 || sitecore[0] != '{' {
		return nil, false
	}

	var inner map[string]json.RawMessage
	if err := json.Unmarshal(sitecore, &inner); err != nil {
		return nil, false
	}

	route, ok := inner["route"]
	if !ok || !truthy(route) {
		return nil, false
	}
	return bytes.TrimSpace(route), true
}

// truthy follows JSON value truthiness: null, false, 0 and "" are falsy
func truthy(raw json.RawMessage) bool {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 {
		return false
	}
	switch v[0] {
	case 'n', 'f':
		return false
	case '"':
		return len(v) > 2
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(v), 64)
		return err != nil || f != 0
	default:
		return true
	}
}
