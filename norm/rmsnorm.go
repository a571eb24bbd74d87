package norm

import "math"

// RMSNorm is a two stage streaming root-mean-square normalization
// pipeline: a square-mean stage and an inverse-sqrt stage. For every
// window of Window samples the output is
//
//	out[i] = in[i] / sqrt(meanSquare + epsilon)
//
// with meanSquare the mean of the squared samples of that window. One
// output chunk is produced per input chunk after roughly one window of
// rendezvous latency.
type RMSNorm[TI Lane, TO Float] struct {
	pipeline[TI, TO]
}

// NewRMSNorm builds an RMS normalization pipeline. The only error
// condition is structural: Window must be a positive multiple of SIMD.
func NewRMSNorm[TI Lane, TO Float](cfg Config) (*RMSNorm[TI, TO], error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	src := newQueue[[]TI](cfg.ChunkDepth)
	converted := newQueue[[]TO](cfg.ChunkDepth)
	means := newQueue[TO](cfg.StatDepth)
	dst := newQueue[[]TO](cfg.ChunkDepth)

	p := &RMSNorm[TI, TO]{pipeline[TI, TO]{
		cfg: cfg,
		src: src,
		dst: dst,
		stages: []stage{
			&squareMeanStage[TI, TO]{
				in:       src,
				out:      converted,
				means:    means,
				acc:      newWindowAccumulator[TO](cfg.Window, cfg.SIMD),
				onWindow: cfg.OnWindow,
			},
			&invSqrtStage[TO]{
				in:              converted,
				means:           means,
				out:             dst,
				chunksPerWindow: cfg.Window / cfg.SIMD,
				epsilon:         cfg.Epsilon,
			},
		},
	}}
	return p, nil
}

// squareMeanStage converts each input chunk to the output type,
// forwards the original (unsquared) values downstream and folds the
// squared lanes into the running mean-of-squares. Exactly one
// mean-of-squares value is emitted per Window samples.
type squareMeanStage[TI Lane, TO Float] struct {
	in    *queue[[]TI]
	out   *queue[[]TO]
	means *queue[TO]
	acc   *windowAccumulator[TO]

	onWindow func(WindowStats)
	windows  int
}

func (s *squareMeanStage[TI, TO]) name() string { return "squaremean" }

func (s *squareMeanStage[TI, TO]) step() bool {
	if s.in.empty() || s.out.full() {
		return false
	}
	if s.acc.willComplete() && s.means.full() {
		return false
	}

	chunk, _ := s.in.tryPop()
	converted := make([]TO, len(chunk))
	for i, x := range chunk {
		converted[i] = TO(x)
	}
	s.out.tryPush(converted)

	if meanSq, done := s.acc.fold(converted, square[TO]); done {
		s.means.tryPush(meanSq)
		if s.onWindow != nil {
			s.onWindow(WindowStats{
				Index:      s.windows,
				MeanSquare: float64(meanSq),
			})
		}
		s.windows++
	}
	return true
}

// invSqrtStage latches a window's mean-of-squares, then divides each
// of the window's Window/SIMD chunks by sqrt(meanSquare + epsilon)
// before reverting to wait for the next statistic. The reciprocal is
// computed once per window at latch time.
type invSqrtStage[T Float] struct {
	in    *queue[[]T]
	means *queue[T]
	out   *queue[[]T]

	chunksPerWindow int
	epsilon         float64

	count   int
	invRMS  T
	latched bool
}

func (s *invSqrtStage[T]) name() string { return "invsqrt" }

func (s *invSqrtStage[T]) step() bool {
	if !s.latched {
		meanSq, ok := s.means.tryPop()
		if !ok {
			return false
		}
		s.invRMS = T(1.0 / math.Sqrt(float64(meanSq)+s.epsilon))
		s.latched = true
		return true
	}

	if s.in.empty() || s.out.full() {
		return false
	}

	chunk, _ := s.in.tryPop()
	out := make([]T, len(chunk))
	for i, x := range chunk {
		out[i] = x * s.invRMS
	}
	s.out.tryPush(out)

	s.count++
	if s.count == s.chunksPerWindow {
		s.count = 0
		s.latched = false
	}
	return true
}
