package entities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *string
	}{
		{name: "plain value", input: "Acme", expected: ptr("Acme")},
		{name: "surrounding whitespace trimmed", input: "  Acme Corp \t", expected: ptr("Acme Corp")},
		{name: "empty is absent", input: "", expected: nil},
		{name: "whitespace only is absent", input: " \t\n ", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestCleanPtr_Nil(t *testing.T) {
	assert.Nil(t, CleanPtr(nil))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{name: "shorter than limit", input: "abc", limit: 5, expected: "abc"},
		{name: "exactly limit", input: "abcde", limit: 5, expected: "abcde"},
		{name: "cut mid word", input: "abcdefgh", limit: 5, expected: "abcde"},
		{name: "multibyte kept whole", input: "Zürich AG", limit: 3, expected: "Zür"},
		{name: "zero limit", input: "abc", limit: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.limit))
		})
	}
}

func TestTruncate_NameLimit(t *testing.T) {
	long := strings.Repeat("n", MaxNameLength+10)
	assert.Len(t, Truncate(long, MaxNameLength), MaxNameLength)
}

func TestComposeAltNames(t *testing.T) {
	t.Run("order preserved and absent parts skipped", func(t *testing.T) {
		result := ComposeAltNames(ptr("  "), ptr("X"), nil, ptr("Y"))
		require.NotNil(t, result)
		assert.Equal(t, "X Y", *result)
	})

	t.Run("parts are trimmed", func(t *testing.T) {
		result := ComposeAltNames(ptr(" a "), ptr("b  "))
		require.NotNil(t, result)
		assert.Equal(t, "a b", *result)
	})

	t.Run("all absent is nil", func(t *testing.T) {
		assert.Nil(t, ComposeAltNames(nil, ptr(""), ptr("   ")))
	})

	t.Run("no parts is nil", func(t *testing.T) {
		assert.Nil(t, ComposeAltNames())
	})
}
