package app

import (
	"sync"

	"github.com/frudas24/roomwire/internal/protocol"
)

// trickle holds local candidates gathered before their answer is on the wire
// and forwards them in order once it is.
type trickle struct {
	mu      sync.Mutex
	send    func(protocol.Candidate)
	pending []protocol.Candidate
	open    bool
}

// newTrickle returns a closed queue that forwards through send.
func newTrickle(send func(protocol.Candidate)) *trickle {
	return &trickle{send: send}
}

// push forwards c, or queues it while the answer is still pending.
func (t *trickle) push(c protocol.Candidate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		t.pending = append(t.pending, c)
		return
	}
	t.send(c)
}

// release flushes the queue and forwards later candidates directly.
func (t *trickle) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = true
	for _, c := range t.pending {
		t.send(c)
	}
	t.pending = nil
}
