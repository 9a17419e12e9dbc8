package exec

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/rendergraph/registry"
	"github.com/gogpu/rendergraph/resource"
)

// ReadbackToken identifies one enqueued readback request.
type ReadbackToken uint64

// ReadbackRequest asks for a texture subresource or buffer range to be
// copied back to host-visible memory after the frame it was enqueued in
// completes.
type ReadbackRequest struct {
	Token  ReadbackToken
	Handle registry.Handle[*resource.Resource]
	Mip    uint32
	Slice  uint32
	Offset uint64
	Size   uint64
}

// ReadbackQueue is a lock-guarded request vector with an atomic token
// counter, per §5 "Readback request queues use a lock-guarded vector and
// an atomic counter for token assignment."
type ReadbackQueue struct {
	nextToken atomic.Uint64

	mu        sync.Mutex
	pending   []ReadbackRequest
	fulfilled map[ReadbackToken][]byte
}

// NewReadbackQueue creates an empty readback queue.
func NewReadbackQueue() *ReadbackQueue {
	return &ReadbackQueue{fulfilled: make(map[ReadbackToken][]byte)}
}

// Enqueue assigns a fresh token to req and queues it for the next drain.
func (q *ReadbackQueue) Enqueue(req ReadbackRequest) ReadbackToken {
	token := ReadbackToken(q.nextToken.Add(1))
	req.Token = token
	q.mu.Lock()
	q.pending = append(q.pending, req)
	q.mu.Unlock()
	return token
}

// Drain removes and returns every currently pending request, for the
// executor to service after the frame's batches are recorded and before the
// queues' command lists are submitted.
func (q *ReadbackQueue) Drain() []ReadbackRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// Fulfill records the bytes a drained request's copy produced, addressable
// by its token.
func (q *ReadbackQueue) Fulfill(token ReadbackToken, data []byte) {
	q.mu.Lock()
	q.fulfilled[token] = data
	q.mu.Unlock()
}

// Take returns and removes a fulfilled request's data, or (nil, false) if
// it has not completed yet.
func (q *ReadbackQueue) Take(token ReadbackToken) ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	data, ok := q.fulfilled[token]
	if ok {
		delete(q.fulfilled, token)
	}
	return data, ok
}
