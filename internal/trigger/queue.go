package trigger

import (
	"sync"

	"github.com/loomkit/loom/internal/model"
)

// Request is one pending regeneration, carrying the upstream input sets
// the detection run fetched. Workers build the new version from these
// sets, not from a second fetch that might already differ.
type Request struct {
	ArtifactID   string
	Origin       model.Trigger
	Tokens       model.TokenSet
	Requirements model.RequirementSet
	Changes      model.ChangeSet
}

// Queue is a thread-safe bounded FIFO of regeneration requests with
// per-artifact coalescing: a request for an artifact that already has one
// pending replaces it in place. Regeneration reads the artifact's latest
// state anyway, so running an older pending request after a newer arrived
// would just do the same work twice.
//
// Enqueue never blocks. When the queue is full the request is dropped and
// reported to the caller; the scheduled sweep will pick the change up
// again on its next pass.
//
// The signal channel enables context-aware waiting in workers (buffered,
// size 1, multiple signals coalesce).
type Queue struct {
	mu       sync.Mutex
	requests []Request
	pending  map[string]int // artifactID -> index in requests
	capacity int
	closed   bool
	signal   chan struct{}
}

// NewQueue creates a queue holding at most capacity pending requests.
func NewQueue(capacity int) *Queue {
	return &Queue{
		requests: make([]Request, 0, capacity),
		pending:  make(map[string]int, capacity),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds or coalesces a request. Returns false if the request was
// dropped because the queue is full or closed.
func (q *Queue) Enqueue(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	if i, ok := q.pending[r.ArtifactID]; ok {
		q.requests[i] = r
		return true
	}

	if len(q.requests) >= q.capacity {
		return false
	}

	q.pending[r.ArtifactID] = len(q.requests)
	q.requests = append(q.requests, r)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the front request without blocking.
func (q *Queue) TryDequeue() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return Request{}, false
	}

	r := q.requests[0]
	q.requests[0] = Request{} // release payload references for GC
	q.requests = q.requests[1:]
	if len(q.requests) == 0 {
		q.requests = q.requests[:0]
	}

	delete(q.pending, r.ArtifactID)
	for id, i := range q.pending {
		q.pending[id] = i - 1
	}
	return r, true
}

// Wait returns a channel that signals when requests may be available.
// Use with select alongside ctx.Done().
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Close marks the queue closed and wakes all waiters. Further Enqueue
// calls report a drop.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
