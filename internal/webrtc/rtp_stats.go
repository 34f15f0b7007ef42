package webrtc

import (
	"sync"

	"github.com/pion/rtp"
)

// RTPStats summarizes the RTP received on remote tracks.
type RTPStats struct {
	Packets      uint64 `json:"packets"`
	PayloadBytes uint64 `json:"payloadBytes"`
	Lost         uint64 `json:"lost"`
}

// add accumulates o into s.
func (s *RTPStats) add(o RTPStats) {
	s.Packets += o.Packets
	s.PayloadBytes += o.PayloadBytes
	s.Lost += o.Lost
}

// rtpCounter tracks one peer's inbound packets per SSRC. Loss is counted
// from forward gaps in the sequence numbers.
type rtpCounter struct {
	mu      sync.Mutex
	stats   RTPStats
	lastSeq map[uint32]uint16
}

// newRTPCounter returns an empty counter.
func newRTPCounter() *rtpCounter {
	return &rtpCounter{lastSeq: make(map[uint32]uint16)}
}

// observe records one packet.
func (c *rtpCounter) observe(pkt *rtp.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Packets++
	c.stats.PayloadBytes += uint64(len(pkt.Payload))
	last, seen := c.lastSeq[pkt.SSRC]
	if seen {
		gap := pkt.SequenceNumber - last
		if gap > 1 && gap < 1<<15 {
			c.stats.Lost += uint64(gap - 1)
		}
		if gap == 0 || gap >= 1<<15 {
			return
		}
	}
	c.lastSeq[pkt.SSRC] = pkt.SequenceNumber
}

// snapshot returns the current totals.
func (c *rtpCounter) snapshot() RTPStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
