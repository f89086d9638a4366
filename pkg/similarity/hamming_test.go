package similarity

import "testing"

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected int
	}{
		{
			name:     "identical hashes",
			a:        "1010110010101100",
			b:        "1010110010101100",
			expected: 0,
		},
		{
			name:     "single bit difference",
			a:        "1010110010101100",
			b:        "1010110010101101",
			expected: 1,
		},
		{
			name:     "all bits differ",
			a:        "0000",
			b:        "1111",
			expected: 4,
		},
		{
			name:     "length mismatch is maximal distance",
			a:        "10101100",
			b:        "1010110010101100",
			expected: 16,
		},
		{
			name:     "empty vs non-empty",
			a:        "",
			b:        "1010",
			expected: 4,
		},
		{
			name:     "both empty",
			a:        "",
			b:        "",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HammingDistance(tt.a, tt.b); got != tt.expected {
				t.Errorf("HammingDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}
			// Symmetry holds for every input pair.
			if got := HammingDistance(tt.b, tt.a); got != tt.expected {
				t.Errorf("HammingDistance(%q, %q) = %d, want %d", tt.b, tt.a, got, tt.expected)
			}
		})
	}
}
