package fifoqueue

import (
	"sync"

	"github.com/gammazero/deque"
)

// FIFOQueue is an unbounded synchronized FIFO queue. Any number of goroutines may write and consume
type FIFOQueue[T any] struct {
	mutex  sync.Mutex
	cond   *sync.Cond
	d      *deque.Deque[T]
	closed bool
}

func New[T any]() *FIFOQueue[T] {
	ret := &FIFOQueue[T]{
		d: new(deque.Deque[T]),
	}
	ret.cond = sync.NewCond(&ret.mutex)
	return ret
}

// Write pushes the element. Panics if the queue is closed
func (q *FIFOQueue[T]) Write(elem T) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		panic("attempt to write to the closed FIFOQueue")
	}
	q.d.PushBack(elem)
	q.cond.Signal()
}

// Close closes the queue. Consumers read the remaining elements and then stop
func (q *FIFOQueue[T]) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// CloseNow closes the queue and drops the remaining elements
func (q *FIFOQueue[T]) CloseNow() {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closed = true
	q.d.Clear()
	q.cond.Broadcast()
}

// read blocks until an element is available. Returns false when the queue is closed and empty
func (q *FIFOQueue[T]) read() (T, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for q.d.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.d.Len() == 0 {
		var nul T
		return nul, false
	}
	return q.d.PopFront(), true
}

// Consume reads elements until the queue is closed and empty
func (q *FIFOQueue[T]) Consume(fun func(elem T)) {
	for {
		e, ok := q.read()
		if !ok {
			return
		}
		fun(e)
	}
}

// Len returns number of elements in the queue. Non-deterministic
func (q *FIFOQueue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	return q.d.Len()
}
