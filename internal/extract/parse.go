// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNotObject is returned when a reply holds no JSON object.
var ErrNotObject = errors.New("reply is not a JSON object")

// ParseObject reads a model reply as a JSON object. Markdown code fences
// and prose around the outermost braces are tolerated; arrays, null, and
// anything else are rejected with ErrNotObject.
func ParseObject(reply string) (map[string]json.RawMessage, error) {
	body := stripFences(reply)
	if strings.HasPrefix(body, "[") {
		return nil, ErrNotObject
	}
	body = extractJSONObject(body)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, errors.Join(ErrNotObject, err)
	}
	if obj == nil {
		// The literal null decodes into a nil map.
		return nil, ErrNotObject
	}
	return obj, nil
}

// stripFences removes a surrounding ``` or ```json fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// renderValue turns a JSON value into cell text. Strings are returned
// unquoted; numbers, booleans, arrays, and objects as compact JSON. Null
// and absent values yield nil.
func renderValue(raw json.RawMessage) *string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return &s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		s := string(trimmed)
		return &s
	}
	s := buf.String()
	return &s
}

// firstValue returns the first key whose value renders to non-empty text.
func firstValue(obj map[string]json.RawMessage, keys ...string) *string {
	for _, k := range keys {
		if v := renderValue(obj[k]); v != nil && *v != "" {
			return v
		}
	}
	return nil
}

// valueEvidence splits a field reply into value and evidence. An object
// is always read as the {value, evidence} pair, so an object lacking those
// keys yields nulls; any other value is the value itself with no evidence.
func valueEvidence(raw json.RawMessage) (value, evidence *string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var pair map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &pair); err == nil {
			return renderValue(pair["value"]), renderValue(pair["evidence"])
		}
	}
	return renderValue(raw), nil
}
