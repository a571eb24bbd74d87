package norm

import "math"

// LayerNorm is a three stage streaming layer normalization pipeline:
// a mean stage, a variance stage and a normalize stage, each a
// concurrent actor joined by bounded queues. For every window of
// Window samples the output is
//
//	out[i] = (in[i] - mean) / sqrt(variance + epsilon)
//
// with mean and variance computed over exactly that window. One output
// chunk is produced per input chunk after roughly two windows of
// rendezvous latency (one for the mean, one for the variance).
type LayerNorm[TI Lane, TO Float] struct {
	pipeline[TI, TO]
}

// NewLayerNorm builds a layer normalization pipeline. The only error
// condition is structural: Window must be a positive multiple of SIMD.
func NewLayerNorm[TI Lane, TO Float](cfg Config) (*LayerNorm[TI, TO], error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	src := newQueue[[]TI](cfg.ChunkDepth)
	converted := newQueue[[]TO](cfg.ChunkDepth)
	means := newQueue[TO](cfg.StatDepth)
	centered := newQueue[[]TO](cfg.ChunkDepth)
	pairs := newQueue[varMean[TO]](cfg.StatDepth)
	dst := newQueue[[]TO](cfg.ChunkDepth)

	p := &LayerNorm[TI, TO]{pipeline[TI, TO]{
		cfg: cfg,
		src: src,
		dst: dst,
		stages: []stage{
			&meanStage[TI, TO]{
				in:    src,
				out:   converted,
				means: means,
				acc:   newWindowAccumulator[TO](cfg.Window, cfg.SIMD),
			},
			&varianceStage[TO]{
				in:       converted,
				means:    means,
				out:      centered,
				pairs:    pairs,
				acc:      newWindowAccumulator[TO](cfg.Window, cfg.SIMD),
				onWindow: cfg.OnWindow,
			},
			&normalizeStage[TO]{
				in:              centered,
				pairs:           pairs,
				out:             dst,
				chunksPerWindow: cfg.Window / cfg.SIMD,
				epsilon:         cfg.Epsilon,
			},
		},
	}}
	return p, nil
}

// meanStage converts each input chunk to the output type, forwards it
// downstream unchanged in value and folds it into the running window
// mean. Exactly one mean value is emitted per Window samples.
type meanStage[TI Lane, TO Float] struct {
	in    *queue[[]TI]
	out   *queue[[]TO]
	means *queue[TO]
	acc   *windowAccumulator[TO]
}

func (s *meanStage[TI, TO]) name() string { return "mean" }

func (s *meanStage[TI, TO]) step() bool {
	if s.in.empty() || s.out.full() {
		return false
	}
	// A chunk that completes the window also emits a mean; defer
	// until the statistic queue can take it so the chunk and its
	// statistic move together.
	if s.acc.willComplete() && s.means.full() {
		return false
	}

	chunk, _ := s.in.tryPop()
	converted := make([]TO, len(chunk))
	for i, x := range chunk {
		converted[i] = TO(x)
	}
	s.out.tryPush(converted)

	if mean, done := s.acc.fold(converted, identity[TO]); done {
		s.means.tryPush(mean)
	}
	return true
}

// varMean pairs a window's mean with its variance so the normalize
// stage latches both in one read.
type varMean[T Float] struct {
	mean     T
	variance T
}

// varianceStage consumes the converted chunk stream and the mean
// stream. It cannot square distances until the window's mean exists,
// so it gates: wait for the mean, latch it, then accumulate
// (x - mean)^2 while forwarding chunks, and emit the {mean, variance}
// pair when the window completes before returning to the wait state.
type varianceStage[T Float] struct {
	in    *queue[[]T]
	means *queue[T]
	out   *queue[[]T]
	pairs *queue[varMean[T]]
	acc   *windowAccumulator[T]

	mean    T
	latched bool

	onWindow func(WindowStats)
	windows  int
}

func (s *varianceStage[T]) name() string { return "variance" }

func (s *varianceStage[T]) step() bool {
	if !s.latched {
		mean, ok := s.means.tryPop()
		if !ok {
			return false
		}
		s.mean = mean
		s.latched = true
		return true
	}

	if s.in.empty() || s.out.full() {
		return false
	}
	if s.acc.willComplete() && s.pairs.full() {
		return false
	}

	chunk, _ := s.in.tryPop()
	s.out.tryPush(chunk)

	mean := s.mean
	variance, done := s.acc.fold(chunk, func(x T) T {
		d := x - mean
		return d * d
	})
	if done {
		s.pairs.tryPush(varMean[T]{mean: s.mean, variance: variance})
		if s.onWindow != nil {
			s.onWindow(WindowStats{
				Index:    s.windows,
				Mean:     float64(s.mean),
				Variance: float64(variance),
			})
		}
		s.windows++
		s.latched = false
	}
	return true
}

// normalizeStage latches a {mean, variance} pair, then applies
// (x - mean) / sqrt(variance + epsilon) to each of the window's
// Window/SIMD chunks before reverting to wait for the next pair. The
// reciprocal square root is computed once per window at latch time.
type normalizeStage[T Float] struct {
	in    *queue[[]T]
	pairs *queue[varMean[T]]
	out   *queue[[]T]

	chunksPerWindow int
	epsilon         float64

	count   int
	mean    T
	invStd  T
	latched bool
}

func (s *normalizeStage[T]) name() string { return "normalize" }

func (s *normalizeStage[T]) step() bool {
	if !s.latched {
		vm, ok := s.pairs.tryPop()
		if !ok {
			return false
		}
		s.mean = vm.mean
		s.invStd = T(1.0 / math.Sqrt(float64(vm.variance)+s.epsilon))
		s.latched = true
		return true
	}

	if s.in.empty() || s.out.full() {
		return false
	}

	chunk, _ := s.in.tryPop()
	out := make([]T, len(chunk))
	for i, x := range chunk {
		out[i] = (x - s.mean) * s.invStd
	}
	s.out.tryPush(out)

	s.count++
	if s.count == s.chunksPerWindow {
		s.count = 0
		s.latched = false
	}
	return true
}
