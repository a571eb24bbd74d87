package norm

// queue is a capacity-bounded FIFO with non-blocking push and pop,
// backed by a buffered channel. Each queue has exactly one producer
// stage and one consumer stage; under that discipline a producer that
// sees free space can push without racing another writer, and a
// consumer that sees a non-empty queue can pop without racing another
// reader.
type queue[T any] struct {
	ch chan T
}

func newQueue[T any](depth int) *queue[T] {
	return &queue[T]{ch: make(chan T, depth)}
}

// tryPush enqueues v and reports success; a full queue leaves v
// unqueued and returns false.
func (q *queue[T]) tryPush(v T) bool {
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// tryPop dequeues the oldest element if one is available.
func (q *queue[T]) tryPop() (T, bool) {
	select {
	case v := <-q.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

func (q *queue[T]) empty() bool { return len(q.ch) == 0 }

func (q *queue[T]) full() bool { return len(q.ch) == cap(q.ch) }
