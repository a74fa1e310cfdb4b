package llm

import (
	"errors"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain", `{"a":1}`, false},
		{"fenced with tag", "```json\n{\"a\":1}\n```", false},
		{"fenced bare", "```\n{\"a\":1}\n```", false},
		{"prose", `here you go: {"a":1}`, true},
		{"broken fence", "```json\n{\"a\":\n```", true},
	}
	for _, tc := range cases {
		var out struct{ A int }
		err := DecodeJSON(tc.in, &out)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: want error", tc.name)
			}
			continue
		}
		if err != nil || out.A != 1 {
			t.Fatalf("%s: want a=1 got a=%d err=%v", tc.name, out.A, err)
		}
	}
}

func TestDecodeJSONEmpty(t *testing.T) {
	var v map[string]any
	if err := DecodeJSON("  ", &v); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("empty: want ErrEmptyResponse got %v", err)
	}
}
