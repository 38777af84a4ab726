package jsonutil

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{"string", json.RawMessage(`"hello"`), "hello"},
		{"integer", json.RawMessage(`42`), "42"},
		{"float", json.RawMessage(`3.14`), "3.14"},
		{"boolean", json.RawMessage(`true`), "true"},
		{"null", json.RawMessage(`null`), ""},
		{"absent", nil, ""},
		{"object falls back to raw", json.RawMessage(`{"a":1}`), `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := String(tt.input); got != tt.want {
				t.Errorf("String(%s) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  float64
	}{
		{"number", json.RawMessage(`0.85`), 0.85},
		{"quoted number", json.RawMessage(`"0.85"`), 0.85},
		{"integer", json.RawMessage(`85`), 85},
		{"null", json.RawMessage(`null`), 0},
		{"absent", nil, 0},
		{"not a number", json.RawMessage(`"high"`), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Float(tt.input); got != tt.want {
				t.Errorf("Float(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestStringList(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  []string
	}{
		{"array", json.RawMessage(`["employees","departments"]`), []string{"employees", "departments"}},
		{"comma-joined string", json.RawMessage(`"employees, departments"`), []string{"employees", "departments"}},
		{"single scalar", json.RawMessage(`"employees"`), []string{"employees"}},
		{"array with blanks", json.RawMessage(`["employees",""," departments "]`), []string{"employees", "departments"}},
		{"null", json.RawMessage(`null`), nil},
		{"absent", nil, nil},
		{"empty array", json.RawMessage(`[]`), nil},
		{"empty string", json.RawMessage(`""`), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StringList(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StringList(%s) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
