package protocol

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const offerSDP = "v=0\r\no=- 4215775240449105457 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

// TestSessionDescription_Types verifies every negotiation type is accepted.
func TestSessionDescription_Types(t *testing.T) {
	cases := map[string]webrtc.SDPType{
		"offer":    webrtc.SDPTypeOffer,
		"answer":   webrtc.SDPTypeAnswer,
		"pranswer": webrtc.SDPTypePranswer,
		"rollback": webrtc.SDPTypeRollback,
	}
	for tag, want := range cases {
		desc, err := newSessionDescription(sessionDescriptionRecord{Type: tag, SDP: offerSDP})
		require.NoError(t, err, tag)
		assert.Equal(t, want, desc.Type)
		assert.Equal(t, offerSDP, desc.SDP)
	}
}

// TestSessionDescription_UnknownType verifies the constructor's rejection
// surfaces as a construction failure.
func TestSessionDescription_UnknownType(t *testing.T) {
	_, err := newSessionDescription(sessionDescriptionRecord{Type: "counteroffer", SDP: offerSDP})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConstructionRejected))
	var rejected *ConstructionRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "session description", rejected.Target)

	_, err = NewCodec().DecodePayload(KindAnswer, []byte(`{"sdp":{"sdp":"v=0","type":"counteroffer"},"userId":"u1","target":"u2"}`))
	assert.True(t, errors.Is(err, ErrConstructionRejected))
}

// TestSessionDescription_TypeIsCaseSensitive verifies only lowercase type tags
// are accepted.
func TestSessionDescription_TypeIsCaseSensitive(t *testing.T) {
	for _, tag := range []string{"OFFER", "Answer", "PrAnswer"} {
		_, err := newSessionDescription(sessionDescriptionRecord{Type: tag, SDP: offerSDP})
		assert.True(t, errors.Is(err, ErrConstructionRejected), tag)
	}
	_, err := NewCodec().DecodePayload(KindOffer,
		[]byte(`{"sdp":{"sdp":"v=0","type":"OFFER"},"userId":"u1","target":"u2","mimeType":"video/webm","roomId":"r1"}`))
	assert.True(t, errors.Is(err, ErrConstructionRejected))
}

// TestSessionDescription_Fields verifies sdp.sdp and sdp.type are required
// strings.
func TestSessionDescription_Fields(t *testing.T) {
	cases := []struct {
		data  string
		field string
	}{
		{`{"userId":"u1","target":"u2"}`, "sdp"},
		{`{"sdp":"v=0","userId":"u1","target":"u2"}`, "sdp"},
		{`{"sdp":{"type":"answer"},"userId":"u1","target":"u2"}`, "sdp.sdp"},
		{`{"sdp":{"sdp":"v=0"},"userId":"u1","target":"u2"}`, "sdp.type"},
		{`{"sdp":{"sdp":"v=0","type":null},"userId":"u1","target":"u2"}`, "sdp.type"},
		{`{"sdp":{"sdp":1,"type":"answer"},"userId":"u1","target":"u2"}`, "sdp.sdp"},
	}
	for _, tc := range cases {
		_, err := NewCodec().DecodePayload(KindAnswer, []byte(tc.data))
		requireMalformed(t, err, tc.field)
	}
}
