// Command normbench drives a normalization pipeline over a synthetic
// stream, optionally recording per-window statistics to SQLite and
// rendering post-run reports.
//
// Examples:
//
//	normbench -variant layer -window 384 -simd 4 -windows 16
//	normbench -variant rms -window 128 -simd 32 -source random -db runs.db -report out/
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/streamnorm/internal/config"
	"github.com/banshee-data/streamnorm/internal/monitoring"
	"github.com/banshee-data/streamnorm/internal/normdb"
	"github.com/banshee-data/streamnorm/internal/report"
	"github.com/banshee-data/streamnorm/internal/version"
	"github.com/banshee-data/streamnorm/norm"
)

// pipeline is the driving surface shared by both normalization
// variants once instantiated for float32 lanes.
type pipeline interface {
	TryPush(chunk []float32) bool
	TryPop() ([]float32, bool)
	Run(ctx context.Context)
	Config() norm.Config
}

func main() {
	variant := flag.String("variant", "layer", "Pipeline variant: layer or rms")
	window := flag.Int("window", 0, "Window length N in samples (0 = config default)")
	simd := flag.Int("simd", 0, "Lanes per chunk (0 = config default)")
	epsilon := flag.Float64("epsilon", 0, "Epsilon bias (0 = config default)")
	windows := flag.Int("windows", 8, "Number of windows to stream")
	source := flag.String("source", "ramp", "Input source: ramp, random or constant")
	seed := flag.Int64("seed", 1, "Seed for the random source")
	configPath := flag.String("config", "", "Optional pipeline config JSON")
	dbPath := flag.String("db", "", "Optional SQLite file to record the run")
	reportDir := flag.String("report", "", "Optional directory for HTML/PNG reports")
	timeout := flag.Duration("timeout", 30*time.Second, "Abort if the stream has not drained in this time")
	quiet := flag.Bool("quiet", false, "Suppress progress logging")
	showVersion := flag.Bool("version", false, "Print build information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("normbench", version.String())
		return
	}

	if *quiet {
		monitoring.SetLogger(nil)
	}

	pc := config.EmptyPipelineConfig()
	if *configPath != "" {
		loaded, err := config.LoadPipelineConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		pc = loaded
	}

	cfg := pc.Norm()
	if *window != 0 {
		cfg.Window = *window
	}
	if *simd != 0 {
		cfg.SIMD = *simd
	}
	if *epsilon != 0 {
		cfg.Epsilon = *epsilon
	}

	// Collect window statistics in-process and, when a database is
	// given, persist them as they complete.
	var mu sync.Mutex
	var windowStats []norm.WindowStats
	collect := func(ws norm.WindowStats) {
		mu.Lock()
		windowStats = append(windowStats, ws)
		mu.Unlock()
	}
	cfg.OnWindow = collect

	var db *normdb.DB
	var runID string
	if *dbPath != "" {
		var err error
		db, err = normdb.Open(*dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open db: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		// The run row wants the effective epsilon, which the pipeline
		// would otherwise default internally.
		if cfg.Epsilon == 0 {
			cfg.Epsilon = norm.DefaultEpsilon
		}
		runID, err = db.RecordRun(*variant, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "record run: %v\n", err)
			os.Exit(1)
		}
		record := db.Recorder(runID)
		cfg.OnWindow = func(ws norm.WindowStats) {
			collect(ws)
			record(ws)
		}
	}

	pl, err := newPipeline(*variant, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build pipeline: %v\n", err)
		os.Exit(1)
	}
	cfg = pl.Config()

	input := makeInput(*source, cfg.Window, *windows, *seed)

	monitoring.Logf("normbench: variant=%s window=%d simd=%d epsilon=%g windows=%d source=%s",
		*variant, cfg.Window, cfg.SIMD, cfg.Epsilon, *windows, *source)

	output, err := drive(pl, input, cfg.SIMD, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}

	if db != nil {
		monitoring.Logf("normbench: recorded run %s (%d windows)", runID, len(windowStats))
	}

	printSummary(output)

	if *reportDir != "" {
		if err := writeReports(*reportDir, *variant, cfg.Window, input, output, windowStats); err != nil {
			fmt.Fprintf(os.Stderr, "write reports: %v\n", err)
			os.Exit(1)
		}
		monitoring.Logf("normbench: reports written to %s", *reportDir)
	}
}

func newPipeline(variant string, cfg norm.Config) (pipeline, error) {
	switch variant {
	case "layer":
		return norm.NewLayerNorm[float32, float32](cfg)
	case "rms":
		return norm.NewRMSNorm[float32, float32](cfg)
	default:
		return nil, fmt.Errorf("unknown variant %q (want layer or rms)", variant)
	}
}

// makeInput builds windows*window samples of the requested stimulus.
// The ramp counts 0..window-1 within each window, random is uniform in
// [-1, 1), constant exercises the zero-variance epsilon guard.
func makeInput(source string, window, windows int, seed int64) []float32 {
	out := make([]float32, window*windows)
	switch source {
	case "random":
		rng := rand.New(rand.NewSource(seed))
		for i := range out {
			out[i] = float32(rng.Float64()*2 - 1)
		}
	case "constant":
		for i := range out {
			out[i] = 1
		}
	default: // ramp
		for i := range out {
			out[i] = float32(i % window)
		}
	}
	return out
}

// drive feeds the input stream chunk by chunk while draining outputs,
// so full queues throttle the feed instead of stalling it. Returns the
// flattened output stream, exactly as long as the input.
func drive(pl pipeline, input []float32, simd int, timeout time.Duration) ([]float32, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		pl.Run(ctx)
		close(done)
	}()

	chunks := len(input) / simd
	output := make([]float32, 0, len(input))
	deadline := time.Now().Add(timeout)

	pushed := 0
	for len(output) < len(input) {
		progressed := false
		if pushed < chunks {
			chunk := input[pushed*simd : (pushed+1)*simd]
			if pl.TryPush(chunk) {
				pushed++
				progressed = true
			}
		}
		if out, ok := pl.TryPop(); ok {
			output = append(output, out...)
			progressed = true
		}
		if !progressed {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timed out with %d of %d samples drained", len(output), len(input))
			}
			runtime.Gosched()
		}
	}

	cancel()
	<-done
	return output, nil
}

func printSummary(output []float32) {
	xs := make([]float64, len(output))
	for i, v := range output {
		xs[i] = float64(v)
	}
	fmt.Printf("samples=%d mean=%.6f stddev=%.6f min=%.6f max=%.6f\n",
		len(xs), stat.Mean(xs, nil), stat.StdDev(xs, nil), minOf(xs), maxOf(xs))
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, v := range xs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func writeReports(dir, variant string, window int, input, output []float32, stats []norm.WindowStats) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := report.WriteWindowStatsHTML(filepath.Join(dir, "window_stats.html"), variant, stats); err != nil {
		return err
	}

	// Plot the first complete window against its normalized output.
	in64 := make([]float64, window)
	out64 := make([]float64, window)
	for i := 0; i < window; i++ {
		in64[i] = float64(input[i])
		out64[i] = float64(output[i])
	}
	return report.WriteWindowPlot(filepath.Join(dir, "window0.png"), in64, out64)
}
