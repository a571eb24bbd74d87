package norm

// treeSum folds the lanes of v into a single scalar by pairwise
// reduction: on every pass the first half of the live region absorbs
// the mirrored second half, halving the region until one lane remains.
// Balanced pairwise order keeps the float rounding error of a chunk
// contribution low compared to a serial left fold. v is used as
// scratch and is clobbered.
func treeSum[T Float](v []T) T {
	if len(v) == 0 {
		return 0
	}
	for n := len(v); n > 1; n = (n + 1) / 2 {
		half := n / 2
		for i := 0; i < half; i++ {
			v[i] += v[n-1-i]
		}
	}
	return v[0]
}
