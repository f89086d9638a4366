package similarity

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases",
			input:    "Sunny LOFT",
			expected: "sunny loft",
		},
		{
			name:     "strips punctuation to spaces",
			input:    "Sunny Loft, Berlin!",
			expected: "sunny loft berlin",
		},
		{
			name:     "collapses whitespace",
			input:    "  two   bed \t flat ",
			expected: "two bed flat",
		},
		{
			name:     "keeps digits and letters",
			input:    "Hauptstr. 5, 10115",
			expected: "hauptstr 5 10115",
		},
		{
			name:     "empty stays empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTextIdentical(t *testing.T) {
	for _, s := range []string{"sunny loft", "Sunny Loft, Berlin", "Hauptstr 5"} {
		if got := Text(s, s); got != 1.0 {
			t.Errorf("Text(%q, %q) = %v, want 1.0", s, s, got)
		}
	}
}

func TestTextNormalizedEquality(t *testing.T) {
	if got := Text("Sunny Loft, Berlin!", "sunny   loft berlin"); got != 1.0 {
		t.Errorf("normalized-equal strings scored %v, want 1.0", got)
	}
}

func TestTextEmptyVsNonEmpty(t *testing.T) {
	if got := Text("", "sunny loft"); got != 0 {
		t.Errorf("Text(empty, non-empty) = %v, want 0", got)
	}
	if got := Text("sunny loft", ""); got != 0 {
		t.Errorf("Text(non-empty, empty) = %v, want 0", got)
	}
}

func TestTextSymmetry(t *testing.T) {
	pairs := [][2]string{
		{"sunny loft berlin", "bright loft berlin"},
		{"two bedroom flat", "2 bedroom flat"},
		{"hauptstrasse", "hauptstr"},
	}
	for _, p := range pairs {
		ab := Text(p[0], p[1])
		ba := Text(p[1], p[0])
		if math.Abs(ab-ba) > 1e-12 {
			t.Errorf("Text(%q, %q) = %v but reversed = %v", p[0], p[1], ab, ba)
		}
	}
}

func TestTextRange(t *testing.T) {
	pairs := [][2]string{
		{"sunny loft", "dark basement"},
		{"a", "completely different words here"},
		{"berlin mitte apartment", "berlin mitte apartment with balcony"},
	}
	for _, p := range pairs {
		got := Text(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Text(%q, %q) = %v, out of [0,1]", p[0], p[1], got)
		}
	}
}

func TestTextSimilarStringsScoreHigh(t *testing.T) {
	got := Text("Sunny loft in Berlin Mitte", "Sunny loft in Berlin-Mitte")
	if got != 1.0 {
		t.Errorf("punctuation-only difference scored %v, want 1.0", got)
	}

	got = Text("Bright sunny loft in Berlin", "Sunny bright loft in Berlin")
	if got < 0.7 {
		t.Errorf("reordered tokens scored %v, want >= 0.7", got)
	}
}

func TestJaroWinkler(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{
			name:     "identical",
			a:        "martha",
			b:        "martha",
			expected: 1.0,
		},
		{
			name:     "classic martha/marhta",
			a:        "martha",
			b:        "marhta",
			expected: 0.9611,
		},
		{
			name:     "classic dixon/dicksonx",
			a:        "dixon",
			b:        "dicksonx",
			expected: 0.8133,
		},
		{
			name:     "no overlap",
			a:        "abc",
			b:        "xyz",
			expected: 0.0,
		},
		{
			// ü is two bytes in UTF-8 but one character; the prefix
			// bonus must count it once.
			name:     "multi-byte prefix counts as one character",
			a:        "üa",
			b:        "üb",
			expected: 0.7,
		},
		{
			name:     "umlaut street names",
			a:        "münchener straße",
			b:        "münchener strasse",
			expected: 0.9640,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JaroWinkler(tt.a, tt.b)
			if math.Abs(got-tt.expected) > 0.0001 {
				t.Errorf("JaroWinkler(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.expected)
			}
		})
	}
}

func TestJaroWinklerPrefixBonus(t *testing.T) {
	// Shared prefix should pull the score up relative to plain Jaro.
	withPrefix := JaroWinkler("hauptstrasse", "hauptstr")
	plain := jaro("hauptstrasse", "hauptstr")
	if withPrefix <= plain {
		t.Errorf("prefix bonus missing: jaroWinkler=%v jaro=%v", withPrefix, plain)
	}
}
