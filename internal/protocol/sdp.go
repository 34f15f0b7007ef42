package protocol

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/pion/webrtc/v3"
)

// sessionDescriptionRecord is the canonical two-field form every wire session
// description passes through before it becomes a webrtc.SessionDescription.
type sessionDescriptionRecord struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// readSessionDescription extracts the "sdp" object of a negotiation payload.
func readSessionDescription(o object) (webrtc.SessionDescription, error) {
	desc, err := o.requireObject("sdp")
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	text, err := desc.requireString("sdp")
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	typ, err := desc.requireString("type")
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	return newSessionDescription(sessionDescriptionRecord{Type: typ, SDP: text})
}

// sdpTypes is the closed wire vocabulary of sdp.type. pion folds case, the
// wire does not.
var sdpTypes = map[string]bool{"offer": true, "pranswer": true, "answer": true, "rollback": true}

// newSessionDescription checks the type tag and hands the canonical record to
// pion's own decoder.
func newSessionDescription(rec sessionDescriptionRecord) (webrtc.SessionDescription, error) {
	if !sdpTypes[rec.Type] {
		return webrtc.SessionDescription{}, &ConstructionRejectedError{
			Target: "session description",
			Err:    fmt.Errorf("unknown sdp type %q", rec.Type),
		}
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return webrtc.SessionDescription{}, &ConstructionRejectedError{Target: "session description", Err: err}
	}
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return webrtc.SessionDescription{}, &ConstructionRejectedError{Target: "session description", Err: err}
	}
	return desc, nil
}
