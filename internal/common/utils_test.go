package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCity(t *testing.T) {
	assert.Equal(t, "Los Angeles", NormalizeCity("LOS ANGELES"))
	assert.Equal(t, "San Luis Obispo", NormalizeCity("  san   luis obispo "))
	assert.Equal(t, "", NormalizeCity("   "))
}

func TestParseNumber(t *testing.T) {
	f, ok := ParseNumber("1,234.5")
	assert.True(t, ok)
	assert.InDelta(t, 1234.5, f, 1e-9)

	_, ok = ParseNumber("NaN")
	assert.False(t, ok)
	_, ok = ParseNumber("Inf")
	assert.False(t, ok)
	_, ok = ParseNumber("abc")
	assert.False(t, ok)
	_, ok = ParseNumber("NA")
	assert.False(t, ok)
}

func TestParseInt(t *testing.T) {
	n, ok := ParseInt("90007.0")
	assert.True(t, ok)
	assert.Equal(t, int64(90007), n)

	_, ok = ParseInt("12.5")
	assert.False(t, ok)
}

func TestPortableScalar(t *testing.T) {
	tests := []struct {
		raw  string
		want any
		ok   bool
	}{
		{"42", int64(42), true},
		{"3,976,322", int64(3976322), true},
		{"0.25", 0.25, true},
		{"TRUE", true, true},
		{"Los Angeles", "Los Angeles", true},
		{" ", nil, false},
		{"nan", nil, false},
	}
	for _, tt := range tests {
		got, ok := PortableScalar(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestIsDigits(t *testing.T) {
	assert.True(t, IsDigits("12"))
	assert.False(t, IsDigits(""))
	assert.False(t, IsDigits("abc"))
	assert.False(t, IsDigits("-3"))
	assert.False(t, IsDigits("1.5"))
}
