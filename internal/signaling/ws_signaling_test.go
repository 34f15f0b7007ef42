package signaling

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/frudas24/roomwire/internal/protocol"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler answers GET_LOCALE with SET_LOCALE and fails SET_USER_ID.
type recordingHandler struct {
	mu     sync.Mutex
	seen   []protocol.Envelope
	closed chan string
}

// newRecordingHandler returns an empty handler.
func newRecordingHandler() *recordingHandler {
	return &recordingHandler{closed: make(chan string, 4)}
}

// HandleEnvelope records env and answers the kinds the tests use.
func (h *recordingHandler) HandleEnvelope(_ context.Context, peer *Peer, env protocol.Envelope) error {
	h.mu.Lock()
	h.seen = append(h.seen, env)
	h.mu.Unlock()
	switch p := env.Payload.(type) {
	case protocol.GetLocale:
		unit, err := protocol.NewUnit(protocol.KindSetLocale, []byte(`{"locale":"`+string(p.Locale)+`"}`))
		if err != nil {
			return err
		}
		return peer.Send(unit)
	case protocol.SetUserID:
		return errors.New("name taken")
	}
	return nil
}

// PeerClosed reports the closed peer id.
func (h *recordingHandler) PeerClosed(peer *Peer) {
	h.closed <- peer.ID()
}

// wireFrame is the flat frame as a client sees it.
type wireFrame struct {
	ID     string          `json:"id"`
	ConnID string          `json:"connId"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// dial starts srv and connects a client to it.
func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readFrame reads one frame with a deadline.
func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f wireFrame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

// TestServer_Dispatch verifies frames reach the handler and replies carry the
// client's connId.
func TestServer_Dispatch(t *testing.T) {
	handler := newRecordingHandler()
	srv := NewServer(protocol.NewCodec(), handler, 1<<16, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"1","connId":"conn-9","type":"GET_LOCALE","data":{"locale":"ru"}}`)))
	f := readFrame(t, conn)
	assert.Equal(t, "SET_LOCALE", f.Type)
	assert.Equal(t, "conn-9", f.ConnID)
	assert.NotEmpty(t, f.ID)
	assert.JSONEq(t, `{"locale":"ru"}`, string(f.Data))

	handler.mu.Lock()
	require.Len(t, handler.seen, 1)
	assert.Equal(t, protocol.KindGetLocale, handler.seen[0].Kind())
	handler.mu.Unlock()
	assert.Equal(t, 1, srv.Peers())
}

// TestServer_DecodeErrorKeepsConnection verifies bad frames are answered with
// SET_ERROR and the loop keeps reading.
func TestServer_DecodeErrorKeepsConnection(t *testing.T) {
	srv := NewServer(protocol.NewCodec(), newRecordingHandler(), 0, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"id":"1","connId":"c","type":"NOT_A_KIND"}`)))
	f := readFrame(t, conn)
	assert.Equal(t, "SET_ERROR", f.Type)
	assert.Contains(t, string(f.Data), "NOT_A_KIND")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"2","connId":"c","type":"OFFER","data":{"sdp":{"sdp":"v=0","type":"offer"},"userId":"u1"}}`)))
	f = readFrame(t, conn)
	assert.Equal(t, "SET_ERROR", f.Type)
	assert.Contains(t, string(f.Data), "target")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	f = readFrame(t, conn)
	assert.Equal(t, "SET_ERROR", f.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"3","connId":"c","type":"GET_LOCALE","data":{"locale":"en"}}`)))
	f = readFrame(t, conn)
	assert.Equal(t, "SET_LOCALE", f.Type)
}

// TestServer_HandlerError verifies a handler failure is reported to the peer.
func TestServer_HandlerError(t *testing.T) {
	srv := NewServer(protocol.NewCodec(), newRecordingHandler(), 0, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"1","connId":"c","type":"SET_USER_ID","data":{"name":"ann"}}`)))
	f := readFrame(t, conn)
	assert.Equal(t, "SET_ERROR", f.Type)
	assert.JSONEq(t, `{"message":"name taken"}`, string(f.Data))
}

// TestServer_PeerClosed verifies the handler learns about disconnects.
func TestServer_PeerClosed(t *testing.T) {
	handler := newRecordingHandler()
	srv := NewServer(protocol.NewCodec(), handler, 0, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"id":"1","connId":"c","type":"GET_LOCALE","data":{"locale":"en"}}`)))
	readFrame(t, conn)
	require.NoError(t, conn.Close())

	select {
	case id := <-handler.closed:
		assert.NotEmpty(t, id)
	case <-time.After(2 * time.Second):
		t.Fatal("PeerClosed not called")
	}
	assert.Eventually(t, func() bool { return srv.Peers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// TestServer_CloseAll verifies the server can drop every connection.
func TestServer_CloseAll(t *testing.T) {
	handler := newRecordingHandler()
	srv := NewServer(protocol.NewCodec(), handler, 0, nil)
	conn := dial(t, srv)
	require.Eventually(t, func() bool { return srv.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.CloseAll()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	select {
	case <-handler.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("PeerClosed not called")
	}
}

// TestPeer_SendAfterClose verifies writes fail once the peer is closed.
func TestPeer_SendAfterClose(t *testing.T) {
	handler := newRecordingHandler()
	srv := NewServer(protocol.NewCodec(), handler, 0, nil)
	dial(t, srv)

	var peer *Peer
	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		for _, p := range srv.peers {
			peer = p
		}
		return peer != nil
	}, 2*time.Second, 10*time.Millisecond)

	got, ok := srv.Peer(peer.ID())
	require.True(t, ok)
	assert.Same(t, peer, got)
	assert.Equal(t, peer.ID(), peer.ConnID())

	require.NoError(t, peer.Close())
	assert.NoError(t, peer.Close())
	assert.Error(t, peer.SendError("late"))
}

// TestServer_LimitPeers verifies upgrades past the cap are refused until a
// slot frees up.
func TestServer_LimitPeers(t *testing.T) {
	handler := newRecordingHandler()
	srv := NewServer(protocol.NewCodec(), handler, 0, nil)
	srv.LimitPeers(1)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return srv.Peers() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	_ = resp.Body.Close()

	require.NoError(t, first.Close())
	select {
	case <-handler.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("PeerClosed not called")
	}
	require.Eventually(t, func() bool {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)
}
