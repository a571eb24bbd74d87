package norm

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// DefaultEpsilon is the additive bias applied under the square root in
// the normalization step. It keeps a zero-variance (or zero-power)
// window from dividing by zero.
const DefaultEpsilon = 1e-5

// DefaultStatDepth is the default capacity of the scalar statistic
// queues. One value per window is in flight, plus one more while the
// downstream stage finishes the previous window.
const DefaultStatDepth = 2

// WindowStats describes the statistic computed for one completed
// window. Index counts windows from zero. Variance is populated by the
// layer-norm pipeline, MeanSquare by the RMS-norm pipeline.
type WindowStats struct {
	Index      int
	Mean       float64
	Variance   float64
	MeanSquare float64
}

// Config parameterises a pipeline at construction time.
type Config struct {
	// Window is the normalization axis length N in samples. Must be a
	// positive multiple of SIMD.
	Window int

	// SIMD is the number of lanes per chunk.
	SIMD int

	// Epsilon biases the square root; zero selects DefaultEpsilon.
	Epsilon float64

	// ChunkDepth is the capacity, in chunks, of each pass-through
	// queue. Zero selects one full window (Window/SIMD chunks), the
	// minimum that spans the statistic rendezvous delay. Smaller
	// values stall the pipeline rather than fail.
	ChunkDepth int

	// StatDepth is the capacity of the scalar statistic queues. Zero
	// selects DefaultStatDepth.
	StatDepth int

	// OnWindow, when set, is invoked from the statistic-producing
	// stage each time a window completes. It runs on that stage's
	// goroutine and must return promptly.
	OnWindow func(WindowStats)
}

// withDefaults validates the structural preconditions and fills in
// defaulted fields. Window divisibility is the only hard requirement;
// there is no partial-window handling anywhere downstream.
func (c Config) withDefaults() (Config, error) {
	if c.Window <= 0 {
		return c, fmt.Errorf("norm: window must be positive, got %d", c.Window)
	}
	if c.SIMD <= 0 {
		return c, fmt.Errorf("norm: simd must be positive, got %d", c.SIMD)
	}
	if c.Window%c.SIMD != 0 {
		return c, fmt.Errorf("norm: window %d is not a multiple of simd %d", c.Window, c.SIMD)
	}
	if c.Epsilon == 0 {
		c.Epsilon = DefaultEpsilon
	}
	if c.Epsilon < 0 {
		return c, fmt.Errorf("norm: epsilon must be positive, got %g", c.Epsilon)
	}
	if c.ChunkDepth == 0 {
		c.ChunkDepth = c.Window / c.SIMD
	}
	if c.StatDepth == 0 {
		c.StatDepth = DefaultStatDepth
	}
	return c, nil
}

// stage is one concurrently schedulable pipeline actor.
type stage interface {
	// step attempts one unit of progress and reports whether any was
	// made. A stage that finds an input empty or an output full defers
	// instead of blocking.
	step() bool
	name() string
}

// pipeline carries the stage chain and the boundary queues shared by
// both normalization variants.
type pipeline[TI Lane, TO Float] struct {
	cfg    Config
	src    *queue[[]TI]
	dst    *queue[[]TO]
	stages []stage
}

// Config returns the resolved configuration, defaults applied.
func (p *pipeline[TI, TO]) Config() Config { return p.cfg }

// TryPush offers one input chunk to the pipeline. The chunk must have
// exactly SIMD lanes; ownership passes to the pipeline on success.
// Returns false without consuming the chunk when the input queue is
// full or the chunk is mis-sized.
func (p *pipeline[TI, TO]) TryPush(chunk []TI) bool {
	if len(chunk) != p.cfg.SIMD {
		return false
	}
	return p.src.tryPush(chunk)
}

// TryPop removes the oldest normalized output chunk, if one is ready.
func (p *pipeline[TI, TO]) TryPop() ([]TO, bool) {
	return p.dst.tryPop()
}

// Step runs one cooperative scheduling tick: every stage gets one
// attempt at progress, in pipeline order. Returns false once no stage
// can advance, which makes `for p.Step() {}` drain all work currently
// possible. Step and Run must not be mixed on the same pipeline.
func (p *pipeline[TI, TO]) Step() bool {
	progressed := false
	for _, st := range p.stages {
		if st.step() {
			progressed = true
		}
	}
	return progressed
}

// Run executes the pipeline with one goroutine per stage until ctx is
// cancelled. Each stage polls its queues and yields the processor when
// it cannot advance, so an idle pipeline costs scheduler churn rather
// than blocked goroutines; throughput degrades to the slowest producer
// without any possibility of deadlock.
func (p *pipeline[TI, TO]) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, st := range p.stages {
		wg.Add(1)
		go func(st stage) {
			defer wg.Done()
			pollStage(ctx, st)
		}(st)
	}
	wg.Wait()
}

func pollStage(ctx context.Context, st stage) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !st.step() {
			runtime.Gosched()
		}
	}
}
