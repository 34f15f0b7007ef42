// Package signaling serves the room signaling protocol over WebSocket.
package signaling

import (
	"context"
	"net/http"
	"sync"

	"github.com/frudas24/roomwire/internal/logging"
	"github.com/frudas24/roomwire/internal/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Handler consumes decoded envelopes. It is the room/session layer.
type Handler interface {
	// HandleEnvelope processes one inbound envelope. A returned error is
	// reported to the peer as SET_ERROR; the connection stays open.
	HandleEnvelope(ctx context.Context, peer *Peer, env protocol.Envelope) error
	// PeerClosed is called once after the peer's connection ends.
	PeerClosed(peer *Peer)
}

// Server handles room signaling over WebSocket.
type Server struct {
	mu        sync.Mutex
	upgrader  websocket.Upgrader
	codec     *protocol.Codec
	handler   Handler
	log       *zap.Logger
	readLimit int64
	slots     *semaphore.Weighted
	peers     map[string]*Peer
}

// NewServer creates a signaling server. readLimit caps the size of one
// inbound frame; zero leaves it unlimited.
func NewServer(codec *protocol.Codec, handler Handler, readLimit int64, log *zap.Logger) *Server {
	if codec == nil {
		codec = protocol.NewCodec()
	}
	return &Server{
		codec:     codec,
		handler:   handler,
		log:       logging.OrNop(log),
		readLimit: readLimit,
		peers:     make(map[string]*Peer),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// LimitPeers caps the number of concurrent connections. Upgrades beyond the
// cap are refused with 503. Zero removes the cap. Call before serving.
func (s *Server) LimitPeers(n int64) {
	if n <= 0 {
		s.slots = nil
		return
	}
	s.slots = semaphore.NewWeighted(n)
}

// ServeHTTP upgrades the request and runs the read loop until the peer
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.slots != nil {
		if !s.slots.TryAcquire(1) {
			s.log.Warn("peer refused, server full", zap.String("remote", r.RemoteAddr))
			http.Error(w, "too many peers", http.StatusServiceUnavailable)
			return
		}
		defer s.slots.Release(1)
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	if s.readLimit > 0 {
		conn.SetReadLimit(s.readLimit)
	}

	peer := newPeer(conn, s.codec, s.log)
	s.addPeer(peer)
	defer s.removePeer(peer)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := s.log.With(zap.String("peer", peer.ID()), zap.String("remote", r.RemoteAddr))
	log.Info("peer connected")
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("peer read failed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			_ = peer.SendError("binary frames are not supported")
			continue
		}
		s.handleFrame(ctx, log, peer, data)
	}
}

// handleFrame decodes one frame and dispatches it. Failures are answered with
// SET_ERROR and never end the loop.
func (s *Server) handleFrame(ctx context.Context, log *zap.Logger, peer *Peer, data []byte) {
	env, err := s.codec.Decode(data)
	if err != nil {
		if sendErr := peer.SendError(err.Error()); sendErr != nil {
			log.Debug("send error frame failed", zap.Error(sendErr))
		}
		return
	}
	peer.setConnID(env.ConnID)
	if s.handler == nil {
		return
	}
	if err := s.handler.HandleEnvelope(ctx, peer, env); err != nil {
		log.Warn("envelope rejected",
			zap.Stringer("kind", env.Kind()),
			zap.String("id", env.ID),
			zap.Error(err))
		if sendErr := peer.SendError(err.Error()); sendErr != nil {
			log.Debug("send error frame failed", zap.Error(sendErr))
		}
	}
}

// Peer returns a connected peer by id.
func (s *Server) Peer(id string) (*Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[id]
	return p, ok
}

// Peers returns the number of connected peers.
func (s *Server) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// CloseAll closes every connected peer. Read loops end and their handlers
// see PeerClosed.
func (s *Server) CloseAll() {
	s.mu.Lock()
	peers := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()
	for _, p := range peers {
		_ = p.Close()
	}
}

// addPeer registers a new connection.
func (s *Server) addPeer(p *Peer) {
	s.mu.Lock()
	s.peers[p.ID()] = p
	s.mu.Unlock()
}

// removePeer unregisters a connection and notifies the handler.
func (s *Server) removePeer(p *Peer) {
	s.mu.Lock()
	delete(s.peers, p.ID())
	s.mu.Unlock()
	_ = p.Close()
	s.log.Info("peer disconnected", zap.String("peer", p.ID()))
	if s.handler != nil {
		s.handler.PeerClosed(p)
	}
}
