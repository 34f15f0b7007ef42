package signaling

import (
	"fmt"
	"sync"
	"time"

	"github.com/frudas24/roomwire/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Peer is one signaling connection.
type Peer struct {
	id    string
	conn  *websocket.Conn
	codec *protocol.Codec
	log   *zap.Logger

	writeMu sync.Mutex

	mu     sync.Mutex
	connID string
	closed bool
}

// newPeer wraps an upgraded connection.
func newPeer(conn *websocket.Conn, codec *protocol.Codec, log *zap.Logger) *Peer {
	id := uuid.NewString()
	return &Peer{
		id:     id,
		conn:   conn,
		codec:  codec,
		log:    log,
		connID: id,
	}
}

// ID returns the server-assigned peer id.
func (p *Peer) ID() string {
	return p.id
}

// ConnID returns the connection id the client last used, or the peer id when
// the client has not sent a frame yet.
func (p *Peer) ConnID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connID
}

// setConnID records the connection id of an inbound frame.
func (p *Peer) setConnID(connID string) {
	if connID == "" {
		return
	}
	p.mu.Lock()
	p.connID = connID
	p.mu.Unlock()
}

// Send writes payload in a new envelope addressed to this connection.
func (p *Peer) Send(payload protocol.Payload) error {
	return p.SendEnvelope(protocol.NewEnvelope(uuid.NewString(), p.ConnID(), payload))
}

// SendEnvelope encodes and writes env.
func (p *Peer) SendEnvelope(env protocol.Envelope) error {
	raw, err := p.codec.Encode(env)
	if err != nil {
		return err
	}
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return fmt.Errorf("peer %s closed", p.id)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("write %s: %w", env.Kind(), err)
	}
	return nil
}

// SendError notifies the client that a request failed.
func (p *Peer) SendError(message string) error {
	return p.Send(protocol.SetError{Message: message})
}

// Close sends a normal close frame and closes the socket. It is safe to call
// more than once.
func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.writeMu.Lock()
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(1*time.Second))
	p.writeMu.Unlock()
	p.log.Debug("peer closing", zap.String("peer", p.id))
	return p.conn.Close()
}
