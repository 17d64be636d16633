package jsonrepair

import (
	"testing"
)

func TestDecodeObject(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
		want map[string]any
	}{
		{
			name: "valid json passes through",
			raw:  `{"a": 1, "b": "x"}`,
			ok:   true,
			want: map[string]any{"a": float64(1), "b": "x"},
		},
		{
			name: "code fenced",
			raw:  "```json\n{\"a\": 1}\n```",
			ok:   true,
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "bare fence without language tag",
			raw:  "```\n{\"a\": 1}\n```",
			ok:   true,
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "trailing comma repaired",
			raw:  `{"a": 1,}`,
			ok:   true,
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "nested trailing commas",
			raw:  `{"a": [1, 2,], "b": {"c": 3,},}`,
			ok:   true,
			want: map[string]any{
				"a": []any{float64(1), float64(2)},
				"b": map[string]any{"c": float64(3)},
			},
		},
		{
			name: "prose around the object",
			raw:  "Here is the result: {\"a\": true} hope that helps!",
			ok:   true,
			want: map[string]any{"a": true},
		},
		{
			name: "not json",
			raw:  "not json",
			ok:   false,
		},
		{
			name: "empty input",
			raw:  "",
			ok:   false,
		},
		{
			name: "unbalanced braces",
			raw:  `{"a": 1`,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Object(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k := range tt.want {
				if _, present := got[k]; !present {
					t.Errorf("missing key %q in %v", k, got)
				}
			}
		})
	}
}

func TestDecodeArray(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		ok      bool
		wantLen int
	}{
		{
			name:    "valid array",
			raw:     `[{"x": 1}, {"x": 2}]`,
			ok:      true,
			wantLen: 2,
		},
		{
			name:    "fenced array with trailing comma",
			raw:     "```json\n[{\"x\": 1},]\n```",
			ok:      true,
			wantLen: 1,
		},
		{
			name:    "empty array",
			raw:     `[]`,
			ok:      true,
			wantLen: 0,
		},
		{
			name: "no array present",
			raw:  "nothing here",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var items []map[string]any
			ok := DecodeArray(tt.raw, &items)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok && len(items) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(items), tt.wantLen)
			}
		})
	}
}

func TestDecodeObjectTyped(t *testing.T) {
	var out struct {
		IsReminder bool   `json:"is_reminder"`
		Title      string `json:"title"`
	}
	raw := "```json\n{\"is_reminder\": true, \"title\": \"Call mom\",}\n```"
	if !DecodeObject(raw, &out) {
		t.Fatal("expected decode to succeed")
	}
	if !out.IsReminder || out.Title != "Call mom" {
		t.Errorf("unexpected result: %+v", out)
	}
}
