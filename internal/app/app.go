// Package app wires configuration, the protocol codec, signaling and the
// answering peer together.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/frudas24/roomwire/internal/config"
	"github.com/frudas24/roomwire/internal/logging"
	"github.com/frudas24/roomwire/internal/protocol"
	"github.com/frudas24/roomwire/internal/signaling"
	"github.com/frudas24/roomwire/internal/webrtc"
	"go.uber.org/zap"
)

// App routes decoded envelopes and owns the long-lived servers.
type App struct {
	cfg        config.Config
	log        *zap.Logger
	codec      *protocol.Codec
	negotiator *webrtc.Negotiator
	signaling  *signaling.Server
}

// New creates the application. A nil negotiator disables the built-in
// answering peer.
func New(cfg config.Config, negotiator *webrtc.Negotiator, log *zap.Logger) *App {
	log = logging.OrNop(log)
	a := &App{
		cfg:        cfg,
		log:        log,
		negotiator: negotiator,
		codec: protocol.NewCodec(
			protocol.WithLogger(log.Named("protocol")),
			protocol.WithLegacyCandidateType(cfg.LegacyCandidateType),
		),
	}
	a.signaling = signaling.NewServer(a.codec, a, cfg.ReadLimitBytes, log.Named("signaling"))
	a.signaling.LimitPeers(cfg.MaxPeers)
	if cfg.LegacyCandidateType {
		log.Warn("legacy candidate type handling enabled")
	}
	return a
}

// Codec returns the shared protocol codec.
func (a *App) Codec() *protocol.Codec {
	return a.codec
}

// Signaling returns the signaling websocket handler.
func (a *App) Signaling() *signaling.Server {
	return a.signaling
}

// HandleEnvelope routes one inbound envelope.
func (a *App) HandleEnvelope(_ context.Context, peer *signaling.Peer, env protocol.Envelope) error {
	switch p := env.Payload.(type) {
	case protocol.Offer:
		return a.handleOffer(peer, p)
	case protocol.Candidate:
		return a.handleCandidate(peer, p)
	case protocol.Unit:
		if p.Kind() == protocol.KindGetClosePeerConnection {
			return a.handleClosePeerConnection(peer)
		}
	}
	a.log.Debug("unhandled envelope",
		zap.String("peer", peer.ID()),
		zap.Stringer("kind", env.Kind()),
		zap.String("id", env.ID))
	return nil
}

// PeerClosed releases the peer connection of a disconnected client.
func (a *App) PeerClosed(peer *signaling.Peer) {
	if a.negotiator == nil {
		return
	}
	if err := a.negotiator.Close(peer.ID()); err != nil && !errors.Is(err, webrtc.ErrNoPeer) {
		a.log.Debug("close peer connection", zap.String("peer", peer.ID()), zap.Error(err))
	}
}

// Stop closes every signaling connection and peer connection.
func (a *App) Stop() error {
	a.signaling.CloseAll()
	if a.negotiator != nil {
		a.negotiator.CloseAll()
	}
	return nil
}

// handleOffer answers the offer and trickles local candidates back. Candidates
// gathered before the answer is written are held until it is.
func (a *App) handleOffer(peer *signaling.Peer, offer protocol.Offer) error {
	if a.negotiator == nil {
		a.log.Debug("offer ignored, negotiation disabled", zap.String("peer", peer.ID()))
		return nil
	}
	candidates := newTrickle(func(c protocol.Candidate) {
		if err := peer.Send(c); err != nil {
			a.log.Debug("trickle candidate", zap.String("peer", peer.ID()), zap.Error(err))
		}
	})
	answer, err := a.negotiator.Answer(peer.ID(), offer, candidates.push)
	if err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}
	if err := peer.Send(answer); err != nil {
		return err
	}
	candidates.release()
	return nil
}

// handleCandidate applies a remote candidate to the peer's connection.
func (a *App) handleCandidate(peer *signaling.Peer, c protocol.Candidate) error {
	if a.negotiator == nil {
		return nil
	}
	return a.negotiator.AddCandidate(peer.ID(), c)
}

// handleClosePeerConnection tears down the peer connection and confirms it.
func (a *App) handleClosePeerConnection(peer *signaling.Peer) error {
	if a.negotiator != nil {
		if err := a.negotiator.Close(peer.ID()); err != nil && !errors.Is(err, webrtc.ErrNoPeer) {
			return err
		}
	}
	done, err := protocol.NewUnit(protocol.KindSetClosePeerConnection, nil)
	if err != nil {
		return err
	}
	return peer.Send(done)
}
