package repo

import (
	"log/slog"
	"sync/atomic"
)

// insertQueue defers note inserts to a single goroutine owned by the
// repository, so latency-sensitive producers never block on storage I/O.
// Inserts enqueued by one producer run in order; order across producers is
// whatever the channel saw first.
type insertQueue struct {
	repo *Repository
	jobs chan NoteInput

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

func newInsertQueue(r *Repository, buffer int) *insertQueue {
	q := &insertQueue{
		repo:    r,
		jobs:    make(chan NoteInput, buffer),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *insertQueue) run() {
	defer close(q.stopped)
	for {
		select {
		case <-q.stopCh:
			// Drain whatever was accepted before close.
			for {
				select {
				case in := <-q.jobs:
					q.insert(in)
				default:
					return
				}
			}
		case in := <-q.jobs:
			q.insert(in)
		}
	}
}

func (q *insertQueue) insert(in NoteInput) {
	if _, err := q.repo.AddNote(in); err != nil {
		q.repo.logger.Error("async insert failed",
			slog.String("source", in.Source),
			slog.String("error", err.Error()))
	}
}

func (q *insertQueue) enqueue(in NoteInput) bool {
	if q.closed.Load() {
		return false
	}
	select {
	case q.jobs <- in:
		return true
	case <-q.stopped:
		return false
	}
}

func (q *insertQueue) close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.stopCh)
	}
	<-q.stopped
}
