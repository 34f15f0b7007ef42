package protocol

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/pion/webrtc/v3"
)

// Payload is the typed data of a frame. Each implementation fixes the kind it
// travels under, so an envelope can never pair a kind with the wrong data.
type Payload interface {
	Kind() MessageKind
	payload()
}

// GetLocale asks for the translation bundle of a locale.
type GetLocale struct {
	Locale Locale `json:"locale"`
}

// GetChatUnit asks for the chat translation unit of a user.
type GetChatUnit struct {
	UserID string `json:"userId"`
	Locale Locale `json:"locale"`
}

// GetSettingsUnit asks for the settings translation unit of a user.
type GetSettingsUnit struct {
	UserID string `json:"userId"`
	Locale Locale `json:"locale"`
}

// GetUserID registers a user or room connection under a display name.
type GetUserID struct {
	IsRoom   *bool  `json:"isRoom,omitempty"`
	UserName string `json:"userName"`
	Locale   Locale `json:"locale"`
}

// Room reports whether the connection belongs to a room. Absent means false.
func (g GetUserID) Room() bool {
	return g.IsRoom != nil && *g.IsRoom
}

// SetUserID confirms the registered name.
type SetUserID struct {
	Name string `json:"name"`
}

// GetRoom asks to join or create a room.
type GetRoom struct {
	UserID   string `json:"userId"`
	MimeType string `json:"mimeType"`
	IsPublic bool   `json:"isPublic"`
}

// SetRoom answers GetRoom with the caller's role and the floor queue.
type SetRoom struct {
	IsOwner bool     `json:"isOwner"`
	Asked   []string `json:"asked"`
}

// MarshalJSON writes Asked as an array even when it is nil.
func (s SetRoom) MarshalJSON() ([]byte, error) {
	type plain SetRoom
	if s.Asked == nil {
		s.Asked = []string{}
	}
	return json.Marshal(plain(s))
}

// Offer carries an SDP offer from UserID to Target inside RoomID.
type Offer struct {
	SDP      webrtc.SessionDescription `json:"sdp"`
	UserID   string                    `json:"userId"`
	Target   string                    `json:"target"`
	MimeType string                    `json:"mimeType"`
	RoomID   string                    `json:"roomId"`
}

// Answer carries an SDP answer from UserID back to Target.
type Answer struct {
	SDP    webrtc.SessionDescription `json:"sdp"`
	UserID string                    `json:"userId"`
	Target string                    `json:"target"`
}

// Candidate carries one trickled ICE candidate.
type Candidate struct {
	Candidate ICECandidate
	UserID    string
	Target    string
	RoomID    string
}

// MarshalJSON writes the candidate in the browser-native wire shape.
func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Candidate candidateWire `json:"candidate"`
		UserID    string        `json:"userId"`
		Target    string        `json:"target"`
		RoomID    string        `json:"roomId"`
	}{
		Candidate: encodeCandidate(c.Candidate),
		UserID:    c.UserID,
		Target:    c.Target,
		RoomID:    c.RoomID,
	})
}

// SetError notifies a client that its request failed.
type SetError struct {
	Message string `json:"message"`
}

// Unit is the payload of kinds that have no typed data in this layer. Data
// holds whatever the frame carried, verbatim, so it survives re-encoding.
type Unit struct {
	kind MessageKind
	Data json.RawMessage
}

// NewUnit builds a payload-less message. It refuses kinds that own a typed
// payload.
func NewUnit(kind MessageKind, data json.RawMessage) (Unit, error) {
	if !kind.Valid() {
		return Unit{}, fmt.Errorf("invalid message kind %d", uint8(kind))
	}
	if _, typed := decoders[kind]; typed {
		return Unit{}, fmt.Errorf("%s carries a typed payload", kind)
	}
	if len(data) > 0 && !json.Valid(data) {
		return Unit{}, fmt.Errorf("%s data is not valid JSON", kind)
	}
	return Unit{kind: kind, Data: data}, nil
}

// MarshalJSON writes the retained data, or null.
func (u Unit) MarshalJSON() ([]byte, error) {
	if len(u.Data) == 0 {
		return []byte("null"), nil
	}
	return u.Data, nil
}

// Kind implements Payload.
func (GetLocale) Kind() MessageKind { return KindGetLocale }

// Kind implements Payload.
func (GetChatUnit) Kind() MessageKind { return KindGetChatUnit }

// Kind implements Payload.
func (GetSettingsUnit) Kind() MessageKind { return KindGetSettingsUnit }

// Kind implements Payload.
func (GetUserID) Kind() MessageKind { return KindGetUserID }

// Kind implements Payload.
func (SetUserID) Kind() MessageKind { return KindSetUserID }

// Kind implements Payload.
func (GetRoom) Kind() MessageKind { return KindGetRoom }

// Kind implements Payload.
func (SetRoom) Kind() MessageKind { return KindSetRoom }

// Kind implements Payload.
func (Offer) Kind() MessageKind { return KindOffer }

// Kind implements Payload.
func (Answer) Kind() MessageKind { return KindAnswer }

// Kind implements Payload.
func (Candidate) Kind() MessageKind { return KindCandidate }

// Kind implements Payload.
func (SetError) Kind() MessageKind { return KindSetError }

// Kind implements Payload.
func (u Unit) Kind() MessageKind { return u.kind }

// payload seals Payload.
func (GetLocale) payload() {}

// payload seals Payload.
func (GetChatUnit) payload() {}

// payload seals Payload.
func (GetSettingsUnit) payload() {}

// payload seals Payload.
func (GetUserID) payload() {}

// payload seals Payload.
func (SetUserID) payload() {}

// payload seals Payload.
func (GetRoom) payload() {}

// payload seals Payload.
func (SetRoom) payload() {}

// payload seals Payload.
func (Offer) payload() {}

// payload seals Payload.
func (Answer) payload() {}

// payload seals Payload.
func (Candidate) payload() {}

// payload seals Payload.
func (SetError) payload() {}

// payload seals Payload.
func (Unit) payload() {}

