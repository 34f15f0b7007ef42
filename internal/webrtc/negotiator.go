// Package webrtc provides the built-in answering peer.
package webrtc

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/frudas24/roomwire/internal/logging"
	"github.com/frudas24/roomwire/internal/protocol"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// ErrNoPeer reports a candidate or close for a key without a peer connection.
var ErrNoPeer = errors.New("no peer connection")

// Negotiator answers offers with its own peer connections, one per key.
type Negotiator struct {
	mu     sync.Mutex
	api    *webrtc.API
	config webrtc.Configuration
	log    *zap.Logger
	peers  map[string]*answerer
}

// answerer is one answered offer.
type answerer struct {
	pc  *webrtc.PeerConnection
	rtp *rtpCounter
}

// NewNegotiator initializes the WebRTC API with default codecs/interceptors.
func NewNegotiator(iceServers []string, log *zap.Logger) (*Negotiator, error) {
	media := &webrtc.MediaEngine{}
	if err := media.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	interceptors := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(media, interceptors); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(media),
		webrtc.WithInterceptorRegistry(interceptors),
	)

	config := webrtc.Configuration{}
	if len(iceServers) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: iceServers}}
	}

	return &Negotiator{
		api:    api,
		config: config,
		log:    logging.OrNop(log),
		peers:  make(map[string]*answerer),
	}, nil
}

// Answer creates a peer connection for key, applies the offer and returns the
// answer addressed back to the offerer. Local candidates are trickled through
// onCandidate as they are gathered. An existing peer for key is replaced.
func (n *Negotiator) Answer(key string, offer protocol.Offer, onCandidate func(protocol.Candidate)) (protocol.Answer, error) {
	if offer.SDP.Type != webrtc.SDPTypeOffer {
		return protocol.Answer{}, fmt.Errorf("expected offer, got %s", offer.SDP.Type)
	}
	_ = n.Close(key)

	peer, err := n.api.NewPeerConnection(n.config)
	if err != nil {
		return protocol.Answer{}, fmt.Errorf("new peer connection: %w", err)
	}
	log := n.log.With(zap.String("key", key), zap.String("room", offer.RoomID))
	entry := &answerer{pc: peer, rtp: newRTPCounter()}

	peer.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || onCandidate == nil {
			return
		}
		onCandidate(protocol.Candidate{
			Candidate: protocol.ICECandidateFromWebRTC(*c),
			UserID:    offer.Target,
			Target:    offer.UserID,
			RoomID:    offer.RoomID,
		})
	})
	peer.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("peer connection state", zap.Stringer("state", state))
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			n.forget(key, entry)
		}
	})
	peer.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info("remote track", zap.String("kind", track.Kind().String()), zap.String("codec", track.Codec().MimeType))
		for {
			pkt, _, readErr := track.ReadRTP()
			if readErr != nil {
				return
			}
			entry.rtp.observe(pkt)
		}
	})

	if err := peer.SetRemoteDescription(offer.SDP); err != nil {
		_ = peer.Close()
		return protocol.Answer{}, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := peer.CreateAnswer(nil)
	if err != nil {
		_ = peer.Close()
		return protocol.Answer{}, fmt.Errorf("create answer: %w", err)
	}
	if err := peer.SetLocalDescription(answer); err != nil {
		_ = peer.Close()
		return protocol.Answer{}, fmt.Errorf("set local description: %w", err)
	}

	n.mu.Lock()
	n.peers[key] = entry
	n.mu.Unlock()
	log.Info("offer answered", zap.String("from", offer.UserID), zap.String("mime", offer.MimeType))

	return protocol.Answer{SDP: answer, UserID: offer.Target, Target: offer.UserID}, nil
}

// AddCandidate applies a remote candidate to the peer for key. The empty
// candidate marks the end of the remote candidates and is skipped.
func (n *Negotiator) AddCandidate(key string, c protocol.Candidate) error {
	entry, ok := n.peer(key)
	if !ok {
		return fmt.Errorf("%w for %s", ErrNoPeer, key)
	}
	if c.Candidate == protocol.EmptyICECandidate() {
		n.log.Debug("end of remote candidates", zap.String("key", key))
		return nil
	}
	if c.Candidate.Typ == protocol.ICECandidateTypeUnspecified {
		return errors.New("candidate has no type")
	}
	init := c.Candidate.Init()
	if strings.TrimPrefix(init.Candidate, "candidate:") == "" {
		return fmt.Errorf("candidate %s %s:%d is not a valid ice candidate", c.Candidate.Typ, c.Candidate.Address, c.Candidate.Port)
	}
	if err := entry.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

// Close closes the peer for key.
func (n *Negotiator) Close(key string) error {
	n.mu.Lock()
	entry, ok := n.peers[key]
	delete(n.peers, key)
	n.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w for %s", ErrNoPeer, key)
	}
	return entry.pc.Close()
}

// CloseAll closes every peer connection.
func (n *Negotiator) CloseAll() {
	n.mu.Lock()
	peers := n.peers
	n.peers = make(map[string]*answerer)
	n.mu.Unlock()
	for key, entry := range peers {
		if err := entry.pc.Close(); err != nil {
			n.log.Debug("close peer connection", zap.String("key", key), zap.Error(err))
		}
	}
}

// Peers returns the number of open peer connections.
func (n *Negotiator) Peers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.peers)
}

// Stats sums the inbound RTP of every open peer connection.
func (n *Negotiator) Stats() RTPStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	var total RTPStats
	for _, entry := range n.peers {
		total.add(entry.rtp.snapshot())
	}
	return total
}

// peer looks up the connection for key.
func (n *Negotiator) peer(key string) (*answerer, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	entry, ok := n.peers[key]
	return entry, ok
}

// forget drops key when it still maps to entry.
func (n *Negotiator) forget(key string, entry *answerer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.peers[key] == entry {
		delete(n.peers, key)
	}
}
