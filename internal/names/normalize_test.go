package names_test

import (
	"testing"

	"liftdb/internal/names"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		expected string
	}{
		{"already canonical", "Jane Smith", "Jane Smith"},
		{"family first all caps", "SMITH Jane", "Jane Smith"},
		{"multi word family block", "VAN DYKE Jane", "Jane Van Dyke"},
		{"comma form", "Smith, Jane", "Jane Smith"},
		{"comma form with caps", "SMITH, Jane", "Jane Smith"},
		{"trailing suffix", "John Smith Jr.", "John Smith Jr"},
		{"roman numeral suffix", "John Smith III", "John Smith III"},
		{"suffix with family block", "SMITH John Jr", "John Smith Jr"},
		{"leaked country code", "Jane Smith USA", "Jane Smith"},
		{"country code with family block", "SMITH Jane USA", "Jane Smith"},
		{"three letter family name kept", "LEE Ann", "Ann Lee"},
		{"whitespace collapsed", "  Jane   Smith ", "Jane Smith"},
		{"all caps left in order", "JANE SMITH", "Jane Smith"},
		{"empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := names.Normalize(tc.raw); got != tc.expected {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.raw, got, tc.expected)
			}
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := "SMITH, Jane Jr USA"
	first := names.Normalize(raw)
	if second := names.Normalize(raw); second != first {
		t.Fatalf("normalization not deterministic: %q vs %q", first, second)
	}
	if again := names.Normalize(first); again != first {
		t.Fatalf("normalization not idempotent: %q -> %q", first, again)
	}
}

func TestEqual(t *testing.T) {
	if !names.Equal("Jane Smith", "jane smith") {
		t.Fatal("expected case-insensitive equality")
	}
	if names.Equal("Jane Smith", "Jane Smyth") {
		t.Fatal("expected different names to be unequal")
	}
	if !names.Equal(" Jane  Smith ", "Jane Smith") {
		t.Fatal("expected whitespace-insensitive equality")
	}
}
