// Package norm implements streaming windowed normalization pipelines.
//
// Two pipelines are provided: LayerNorm (mean, variance, normalize) and
// RMSNorm (mean of squares, normalize). Each pipeline is a chain of
// concurrent stages connected by bounded single-producer/single-consumer
// queues carrying fixed-width chunks of samples or per-window scalar
// statistics. Stages never block: each one polls its queues and defers
// when an input is empty or an output is full, so a pipeline can be
// driven either by one goroutine per stage (Run) or by a cooperative
// single-threaded tick (Step).
//
// A window is exactly Window samples, consumed as Window/SIMD chunks.
// One output chunk is emitted per input chunk after roughly one window
// of latency per statistic rendezvous.
package norm
