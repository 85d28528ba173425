package command

import (
	"fmt"
	"sync"
)

// DefaultQueueCapacity is the number of pending commands a Queue holds.
const DefaultQueueCapacity = 32

// Args is the argument pair of a command.
type Args struct {
	Arg1, Arg2 uint32
}

type ring[T any] struct {
	buf  []T
	head int
	n    int
}

func (r *ring[T]) push(v T) bool {
	if r.n == len(r.buf) {
		return false
	}
	r.buf[(r.head+r.n)%len(r.buf)] = v
	r.n++
	return true
}

func (r *ring[T]) pop() (v T, ok bool) {
	if r.n == 0 {
		return
	}
	v, ok = r.buf[r.head], true
	var zero T
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return
}

func (r *ring[T]) at(n int) T {
	return r.buf[(r.head+n)%len(r.buf)]
}

// Queue holds pending commands in two parallel rings, one of refs and one
// of argument pairs. The two rings always have the same length.
type Queue struct {
	lock sync.Mutex
	refs ring[Ref]
	args ring[Args]
}

// NewQueue creates a Queue holding up to capacity commands.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		refs: ring[Ref]{buf: make([]Ref, capacity)},
		args: ring[Args]{buf: make([]Args, capacity)},
	}
}

func (q *Queue) check() {
	if q.refs.n != q.args.n {
		panic(fmt.Sprintf("command queue out of sync: %d refs, %d args", q.refs.n, q.args.n))
	}
}

// Push appends a command to the tail.
func (q *Queue) Push(ref Ref, arg1, arg2 uint32) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.check()
	if q.refs.n == len(q.refs.buf) || q.args.n == len(q.args.buf) {
		return ErrQueueFull
	}
	q.refs.push(ref)
	q.args.push(Args{Arg1: arg1, Arg2: arg2})
	q.check()
	return nil
}

// Pop removes the command at the head.
func (q *Queue) Pop() (ref Ref, args Args, ok bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.check()
	if ref, ok = q.refs.pop(); !ok {
		return
	}
	args, _ = q.args.pop()
	q.check()
	return
}

// Len returns the number of pending commands.
func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.check()
	return q.refs.n
}

// Cap returns the capacity.
func (q *Queue) Cap() int {
	return len(q.refs.buf)
}

// Contains reports whether a command with ref and arg1 is pending.
func (q *Queue) Contains(ref Ref, arg1 uint32) bool {
	q.lock.Lock()
	defer q.lock.Unlock()
	for n := 0; n < q.refs.n; n++ {
		if q.refs.at(n) == ref && q.args.at(n).Arg1 == arg1 {
			return true
		}
	}
	return false
}

// Entry is a pending command.
type Entry struct {
	Ref Ref
	Args
}

// Entries lists pending commands from head to tail.
func (q *Queue) Entries() []Entry {
	q.lock.Lock()
	defer q.lock.Unlock()
	entries := make([]Entry, q.refs.n)
	for n := range entries {
		entries[n] = Entry{Ref: q.refs.at(n), Args: q.args.at(n)}
	}
	return entries
}

// Clear drops all pending commands.
func (q *Queue) Clear() {
	q.lock.Lock()
	defer q.lock.Unlock()
	for q.refs.n > 0 {
		q.refs.pop()
		q.args.pop()
	}
	q.check()
}
