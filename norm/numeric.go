package norm

// Lane is the set of element types a pipeline can consume. Inputs are
// converted to the pipeline's Float output type in the first stage, so
// narrow integer activations can feed a float pipeline directly.
type Lane interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint |
		~float32 | ~float64
}

// Float is the set of element types a pipeline computes with and emits.
type Float interface {
	~float32 | ~float64
}

func identity[T Float](x T) T { return x }

func square[T Float](x T) T { return x * x }
