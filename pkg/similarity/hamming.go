package similarity

// HammingDistance counts differing positions between two equal-length hash
// strings. Mismatched lengths return max(len(a), len(b)) as a maximal
// distance penalty rather than an error; perceptual hashes of different
// algorithms or truncated values should never compare as close.
func HammingDistance(a, b string) int {
	if len(a) != len(b) {
		return max(len(a), len(b))
	}
	distance := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			distance++
		}
	}
	return distance
}
