// Package jsonrepair tolerantly extracts JSON from generative-model output.
// Model responses are untrusted input: they arrive wrapped in code fences,
// padded with prose, or broken by trailing commas. Every helper returns
// ok=false instead of an error; callers treat a miss as "no structured
// result".
package jsonrepair

import (
	"encoding/json"
	"regexp"
	"strings"
)

var trailingCommas = regexp.MustCompile(`,\s*([}\]])`)

// DecodeObject extracts the outermost JSON object from raw and unmarshals it
// into v.
func DecodeObject(raw string, v any) bool {
	return decode(raw, "{", "}", v)
}

// DecodeArray extracts the outermost JSON array from raw and unmarshals it
// into v.
func DecodeArray(raw string, v any) bool {
	return decode(raw, "[", "]", v)
}

// Object returns the outermost object parsed into a generic map.
func Object(raw string) (map[string]any, bool) {
	var m map[string]any
	if !DecodeObject(raw, &m) {
		return nil, false
	}
	return m, true
}

func decode(raw, open, shut string, v any) bool {
	s := stripFences(strings.TrimSpace(raw))

	start := strings.Index(s, open)
	if start == -1 {
		return false
	}
	end := strings.LastIndex(s, shut)
	if end == -1 || end < start {
		return false
	}
	s = s[start : end+1]

	if json.Unmarshal([]byte(s), v) == nil {
		return true
	}

	// One repair attempt: trailing commas before a closing bracket are the
	// most common malformation in model output.
	repaired := trailingCommas.ReplaceAllString(s, "$1")
	return json.Unmarshal([]byte(repaired), v) == nil
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
