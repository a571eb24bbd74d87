package norm

// windowAccumulator is the running-sum primitive shared by every
// statistic-producing stage. It owns a private sum, a count of samples
// folded into the current window, and the running statistic sum/count.
// State persists across windows; only sum, count and the running
// statistic reset when a window completes.
type windowAccumulator[T Float] struct {
	window int // samples per window (N)
	simd   int // lanes per chunk
	sum    T
	count  int
	stat   T
	// scratch holds the per-lane transformed values for one chunk so
	// treeSum can clobber them without touching the pass-through data.
	scratch []T
}

func newWindowAccumulator[T Float](window, simd int) *windowAccumulator[T] {
	return &windowAccumulator[T]{
		window:  window,
		simd:    simd,
		scratch: make([]T, simd),
	}
}

// willComplete reports whether folding one more chunk finishes the
// current window. Stages use this to hold off consuming a chunk until
// the statistic queue has room for the value the chunk would produce.
func (a *windowAccumulator[T]) willComplete() bool {
	return a.count+a.simd == a.window
}

// fold applies f to every lane of chunk, tree-reduces the results into
// the running sum, advances the sample count by one chunk and updates
// the running statistic. When the count reaches the window length it
// returns the final statistic and true, with sum and count already
// zeroed for the next window.
func (a *windowAccumulator[T]) fold(chunk []T, f func(T) T) (T, bool) {
	for i, x := range chunk {
		a.scratch[i] = f(x)
	}
	a.sum += treeSum(a.scratch)
	a.count += a.simd
	a.stat = a.sum / T(a.count)

	if a.count == a.window {
		final := a.stat
		a.sum = 0
		a.count = 0
		a.stat = 0
		return final, true
	}
	return a.stat, false
}
