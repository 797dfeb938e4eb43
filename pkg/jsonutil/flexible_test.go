package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"plain string", `"count_students"`, "count_students"},
		{"integer", `42`, "42"},
		{"float", `0.85`, "0.85"},
		{"boolean", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FlexibleString(json.RawMessage(tt.raw)))
		})
	}
}

func TestFlexibleFloat(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected float64
	}{
		{"number", `0.85`, 0.85},
		{"integer", `1`, 1},
		{"string-wrapped number", `"0.85"`, 0.85},
		{"string-wrapped with whitespace", `" 0.5 "`, 0.5},
		{"garbage", `"high"`, 0.3},
		{"null", `null`, 0.3},
		{"empty", ``, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FlexibleFloat(json.RawMessage(tt.raw), 0.3))
		})
	}
}

func TestFlexibleBool(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected bool
	}{
		{"true", `true`, true},
		{"false", `false`, false},
		{"string true", `"true"`, true},
		{"string True", `"True"`, true},
		{"string false", `"false"`, false},
		{"number", `1`, false},
		{"empty", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FlexibleBool(json.RawMessage(tt.raw)))
		})
	}
}
