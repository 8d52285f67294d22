package badger

import "math"

// unitVector scales v to length one so that cosine similarity reduces to a
// dot product at query time. Zero vectors come back as zero vectors.
func unitVector(v []float32) []float32 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sq == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sq)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// dot sums the pairwise products over the shorter of the two vectors.
func dot(a, b []float32) float32 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float32
	for i, x := range a {
		sum += x * b[i]
	}
	return sum
}
