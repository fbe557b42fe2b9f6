package worker

import (
	"sync"
	"sync/atomic"
)

type entry[T any] struct {
	task    T
	attempt int
}

// Queue is an unbounded FIFO shared by many producers and consumers.
// Push never blocks and TryPop never waits for future pushes.
type Queue[T any] struct {
	mu    sync.Mutex
	items []entry[T]

	pushes atomic.Int64
	pops   atomic.Int64
}

// NewQueue creates a queue holding the given tasks in order.
func NewQueue[T any](tasks ...T) *Queue[T] {
	q := &Queue[T]{}
	for _, t := range tasks {
		q.Push(t)
	}
	return q
}

// Push adds a task.
func (q *Queue[T]) Push(task T) {
	q.push(entry[T]{task: task, attempt: 1})
}

// TryPop returns the next task, or false when the queue is currently empty.
func (q *Queue[T]) TryPop() (T, bool) {
	e, ok := q.pop()
	return e.task, ok
}

// Len returns the number of queued tasks.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pushes returns how many tasks were ever pushed, requeues included.
func (q *Queue[T]) Pushes() int64 {
	return q.pushes.Load()
}

// Pops returns how many tasks were ever handed out.
func (q *Queue[T]) Pops() int64 {
	return q.pops.Load()
}

func (q *Queue[T]) push(e entry[T]) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.pushes.Add(1)
}

func (q *Queue[T]) pop() (entry[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return entry[T]{}, false
	}
	e := q.items[0]
	var zero entry[T]
	q.items[0] = zero
	q.items = q.items[1:]
	q.pops.Add(1)
	return e, true
}
