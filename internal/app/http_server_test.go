package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frudas24/roomwire/internal/config"
	"github.com/frudas24/roomwire/internal/protocol"
	rtc "github.com/frudas24/roomwire/internal/webrtc"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestApp builds an app, optionally with the answering peer.
func newTestApp(t *testing.T, negotiate bool) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Negotiate = negotiate
	var negotiator *rtc.Negotiator
	if negotiate {
		var err error
		negotiator, err = rtc.NewNegotiator(nil, nil)
		require.NoError(t, err)
	}
	a := New(cfg, negotiator, nil)
	t.Cleanup(func() { _ = a.Stop() })
	return a
}

// dialApp serves the app routes and connects a websocket client.
func dialApp(t *testing.T, a *App) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+a.cfg.WSPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// send encodes payload and writes it to conn.
func send(t *testing.T, conn *websocket.Conn, payload protocol.Payload) {
	t.Helper()
	raw, err := protocol.NewCodec().Encode(protocol.NewEnvelope("req-1", "conn-1", payload))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))
}

// awaitKind reads frames until one of kind arrives, skipping trickled
// candidates.
func awaitKind(t *testing.T, conn *websocket.Conn, kind protocol.MessageKind) protocol.Envelope {
	t.Helper()
	codec := protocol.NewCodec()
	deadline := time.Now().Add(5 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		env, err := codec.Decode(data)
		require.NoError(t, err, string(data))
		if env.Kind() == kind {
			return env
		}
		require.Equal(t, protocol.KindCandidate, env.Kind(), string(data))
	}
}

// testOffer builds a browser-like data channel offer.
func testOffer(t *testing.T) (*webrtc.PeerConnection, protocol.Offer) {
	t.Helper()
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })
	_, err = pc.CreateDataChannel("chat", nil)
	require.NoError(t, err)
	sdp, err := pc.CreateOffer(nil)
	require.NoError(t, err)
	require.NoError(t, pc.SetLocalDescription(sdp))
	return pc, protocol.Offer{SDP: sdp, UserID: "u1", Target: "room-1", MimeType: "video/webm", RoomID: "room-1"}
}

// TestApp_OfferIsAnswered verifies OFFER gets an ANSWER on the same socket.
func TestApp_OfferIsAnswered(t *testing.T) {
	a := newTestApp(t, true)
	conn := dialApp(t, a)
	pc, offer := testOffer(t)

	send(t, conn, offer)
	env := awaitKind(t, conn, protocol.KindAnswer)
	assert.Equal(t, "conn-1", env.ConnID)
	answer := env.Payload.(protocol.Answer)
	assert.Equal(t, "room-1", answer.UserID)
	assert.Equal(t, "u1", answer.Target)
	require.NoError(t, pc.SetRemoteDescription(answer.SDP))
	assert.Equal(t, 1, a.negotiator.Peers())

	send(t, conn, mustUnit(t, protocol.KindGetClosePeerConnection))
	awaitKind(t, conn, protocol.KindSetClosePeerConnection)
	assert.Equal(t, 0, a.negotiator.Peers())
}

// TestApp_AnswerPrecedesCandidates verifies no local candidate reaches the
// client before the answer it belongs to.
func TestApp_AnswerPrecedesCandidates(t *testing.T) {
	a := newTestApp(t, true)
	conn := dialApp(t, a)
	_, offer := testOffer(t)

	send(t, conn, offer)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.NewCodec().Decode(data)
	require.NoError(t, err, string(data))
	assert.Equal(t, protocol.KindAnswer, env.Kind())
}

// TestApp_CandidateWithoutPeer verifies a stray candidate is reported.
func TestApp_CandidateWithoutPeer(t *testing.T) {
	a := newTestApp(t, true)
	conn := dialApp(t, a)

	send(t, conn, protocol.Candidate{Candidate: protocol.EmptyICECandidate(), UserID: "u1", Target: "room-1", RoomID: "room-1"})
	env := awaitKind(t, conn, protocol.KindSetError)
	assert.Contains(t, env.Payload.(protocol.SetError).Message, "no peer connection")
}

// TestApp_NegotiationDisabled verifies offers are ignored and closes still
// confirmed without the answering peer.
func TestApp_NegotiationDisabled(t *testing.T) {
	a := newTestApp(t, false)
	conn := dialApp(t, a)
	_, offer := testOffer(t)

	send(t, conn, offer)
	send(t, conn, mustUnit(t, protocol.KindGetClosePeerConnection))
	env := awaitKind(t, conn, protocol.KindSetClosePeerConnection)
	assert.Nil(t, env.Payload.(protocol.Unit).Data)
}

// TestHandleHealth verifies the health payload.
func TestHandleHealth(t *testing.T) {
	a := newTestApp(t, true)
	rec := httptest.NewRecorder()
	a.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.True(t, resp.Negotiate)
	assert.Equal(t, 0, resp.Connections)
	require.NotNil(t, resp.RTP)
	assert.Equal(t, uint64(0), resp.RTP.Packets)

	a = newTestApp(t, false)
	rec = httptest.NewRecorder()
	a.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	resp = healthResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Negotiate)
	assert.Nil(t, resp.RTP)
}

// TestHandleKinds verifies the catalog listing.
func TestHandleKinds(t *testing.T) {
	rec := httptest.NewRecorder()
	handleKinds(rec, httptest.NewRequest(http.MethodGet, "/api/kinds", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []kindResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, len(protocol.Kinds()))
	assert.Contains(t, resp, kindResponse{Type: "OFFER", Typed: true})
	assert.Contains(t, resp, kindResponse{Type: "GET_RECORD", Typed: false})

	rec = httptest.NewRecorder()
	handleKinds(rec, httptest.NewRequest(http.MethodPost, "/api/kinds", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// mustUnit builds a payload-less message.
func mustUnit(t *testing.T, kind protocol.MessageKind) protocol.Unit {
	t.Helper()
	u, err := protocol.NewUnit(kind, nil)
	require.NoError(t, err)
	return u
}
