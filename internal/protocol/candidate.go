package protocol

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"
)

// Candidate components.
const (
	ComponentRTP  uint16 = 1
	ComponentRTCP uint16 = 2
)

// Enum values of a candidate whose protocol or type was not given.
const (
	ICEProtocolUnspecified      = webrtc.ICEProtocol(webrtc.Unknown)
	ICECandidateTypeUnspecified = webrtc.ICECandidateType(webrtc.Unknown)
)

// iceProtocols is the closed wire vocabulary of candidate.protocol.
var iceProtocols = map[string]bool{"udp": true, "tcp": true}

// ICECandidate is the internal form of a single network path proposal.
type ICECandidate struct {
	StatsID        string
	Foundation     string
	Priority       uint32
	Address        string
	Protocol       webrtc.ICEProtocol
	Port           uint16
	Typ            webrtc.ICECandidateType
	Component      uint16
	RelatedAddress string
	RelatedPort    uint16
	TCPType        string
}

// EmptyICECandidate returns the value every candidate field falls back to when
// its wire key is absent.
func EmptyICECandidate() ICECandidate {
	return ICECandidate{
		StatsID:        "",
		Foundation:     "",
		Priority:       0,
		Address:        "",
		Protocol:       ICEProtocolUnspecified,
		Port:           0,
		Typ:            ICECandidateTypeUnspecified,
		Component:      0,
		RelatedAddress: "",
		RelatedPort:    0,
		TCPType:        "",
	}
}

// WebRTC converts the candidate to pion's type. pion keeps the stats id
// private, so StatsID is dropped.
func (c ICECandidate) WebRTC() webrtc.ICECandidate {
	return webrtc.ICECandidate{
		Foundation:     c.Foundation,
		Priority:       c.Priority,
		Address:        c.Address,
		Protocol:       c.Protocol,
		Port:           c.Port,
		Typ:            c.Typ,
		Component:      c.Component,
		RelatedAddress: c.RelatedAddress,
		RelatedPort:    c.RelatedPort,
		TCPType:        c.TCPType,
	}
}

// Init returns the form accepted by PeerConnection.AddICECandidate. StatsID
// travels as the username fragment.
func (c ICECandidate) Init() webrtc.ICECandidateInit {
	init := c.WebRTC().ToJSON()
	if c.StatsID != "" {
		ufrag := c.StatsID
		init.UsernameFragment = &ufrag
	}
	return init
}

// ICECandidateFromWebRTC converts a locally gathered pion candidate.
func ICECandidateFromWebRTC(c webrtc.ICECandidate) ICECandidate {
	return ICECandidate{
		Foundation:     c.Foundation,
		Priority:       c.Priority,
		Address:        c.Address,
		Protocol:       c.Protocol,
		Port:           c.Port,
		Typ:            c.Typ,
		Component:      c.Component,
		RelatedAddress: c.RelatedAddress,
		RelatedPort:    c.RelatedPort,
		TCPType:        c.TCPType,
	}
}

// candidateRecord is the canonical, library-independent candidate shape built
// from the wire before newICECandidate turns it into an ICECandidate.
type candidateRecord struct {
	StatsID        string
	Foundation     string
	Priority       uint32
	Address        string
	Protocol       string
	Port           uint16
	Type           string
	Component      uint16
	RelatedAddress string
	RelatedPort    uint16
	TCPType        string
}

// emptyCandidateRecord mirrors EmptyICECandidate in canonical form.
func emptyCandidateRecord() candidateRecord {
	empty := EmptyICECandidate()
	return candidateRecord{
		StatsID:        empty.StatsID,
		Foundation:     empty.Foundation,
		Priority:       empty.Priority,
		Address:        empty.Address,
		Port:           empty.Port,
		Component:      empty.Component,
		RelatedAddress: empty.RelatedAddress,
		RelatedPort:    empty.RelatedPort,
		TCPType:        empty.TCPType,
	}
}

// newICECandidate builds the internal candidate. An empty protocol or type
// keeps the unknown enum value.
func newICECandidate(rec candidateRecord) (ICECandidate, error) {
	c := ICECandidate{
		StatsID:        rec.StatsID,
		Foundation:     rec.Foundation,
		Priority:       rec.Priority,
		Address:        rec.Address,
		Port:           rec.Port,
		Component:      rec.Component,
		RelatedAddress: rec.RelatedAddress,
		RelatedPort:    rec.RelatedPort,
		TCPType:        rec.TCPType,
	}
	if rec.Protocol != "" {
		p, err := webrtc.NewICEProtocol(rec.Protocol)
		if err != nil {
			return ICECandidate{}, &ConstructionRejectedError{Target: "ice candidate", Err: err}
		}
		c.Protocol = p
	}
	if rec.Type != "" {
		t, err := webrtc.NewICECandidateType(rec.Type)
		if err != nil {
			return ICECandidate{}, &ConstructionRejectedError{Target: "ice candidate", Err: err}
		}
		c.Typ = t
	}
	if rec.Component > ComponentRTCP {
		return ICECandidate{}, &ConstructionRejectedError{
			Target: "ice candidate",
			Err:    fmt.Errorf("component %d out of range", rec.Component),
		}
	}
	return c, nil
}

// readCandidate decodes a CANDIDATE payload. Every sub-field of the
// "candidate" object is optional; the object itself may be absent.
func readCandidate(opts decodeOptions, o object) (Candidate, error) {
	userID, err := o.requireString("userId")
	if err != nil {
		return Candidate{}, err
	}
	target, err := o.requireString("target")
	if err != nil {
		return Candidate{}, err
	}
	roomID, err := o.requireString("roomId")
	if err != nil {
		return Candidate{}, err
	}

	rec := emptyCandidateRecord()
	wire, ok, err := o.optionalObject("candidate")
	if err != nil {
		return Candidate{}, err
	}
	if ok {
		if err := overrideCandidate(opts, wire, &rec); err != nil {
			return Candidate{}, err
		}
	}

	ice, err := newICECandidate(rec)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{Candidate: ice, UserID: userID, Target: target, RoomID: roomID}, nil
}

// overrideCandidate replaces defaults in rec with the wire values that are
// present. A present value of the wrong shape or vocabulary is an error.
func overrideCandidate(opts decodeOptions, c object, rec *candidateRecord) error {
	texts := []struct {
		key string
		dst *string
	}{
		{"usernameFragment", &rec.StatsID},
		{"foundation", &rec.Foundation},
		{"address", &rec.Address},
		{"ip", &rec.RelatedAddress},
		{"tcpType", &rec.TCPType},
	}
	for _, f := range texts {
		v, ok, err := c.optionalString(f.key)
		if err != nil {
			return err
		}
		if ok {
			*f.dst = v
		}
	}

	priority, ok, err := c.optionalUint("priority", 32)
	if err != nil {
		return err
	}
	if ok {
		rec.Priority = uint32(priority)
	}

	ports := []struct {
		key string
		dst *uint16
	}{
		{"port", &rec.Port},
		{"relatedPort", &rec.RelatedPort},
	}
	for _, f := range ports {
		v, ok, err := c.optionalUint(f.key, 16)
		if err != nil {
			return err
		}
		if ok {
			*f.dst = uint16(v)
		}
	}

	protocol, ok, err := c.optionalString("protocol")
	if err != nil {
		return err
	}
	if ok {
		if !iceProtocols[protocol] {
			return c.invalidEnum("protocol", protocol)
		}
		rec.Protocol = protocol
	}

	component, ok, err := c.optionalString("component")
	if err != nil {
		return err
	}
	if ok {
		rec.Component = ComponentRTCP
		if component == "rtp" {
			rec.Component = ComponentRTP
		}
	}

	readType := c.has("type")
	if opts.legacyCandidateType {
		readType = c.has("tcpType")
		if c.has("type") && !readType {
			opts.log.Warn("candidate type ignored without tcpType",
				zap.String("field", c.field("type")))
		}
	}
	if readType {
		typ, ok, err := c.optionalString("type")
		if err != nil {
			return err
		}
		if ok {
			if _, err := webrtc.NewICECandidateType(typ); err != nil {
				return c.invalidEnum("type", typ)
			}
			rec.Type = typ
		}
	}
	return nil
}

// candidateWire is the browser-native candidate object written on encode.
type candidateWire struct {
	Candidate        string  `json:"candidate,omitempty"`
	SDPMid           *string `json:"sdpMid,omitempty"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex,omitempty"`
	UsernameFragment string  `json:"usernameFragment"`
	Foundation       string  `json:"foundation"`
	Priority         uint32  `json:"priority"`
	Address          string  `json:"address"`
	Protocol         string  `json:"protocol,omitempty"`
	Port             uint16  `json:"port"`
	Type             string  `json:"type,omitempty"`
	Component        string  `json:"component,omitempty"`
	IP               string  `json:"ip"`
	RelatedPort      uint16  `json:"relatedPort"`
	TCPType          string  `json:"tcpType"`
}

// encodeCandidate mirrors overrideCandidate. Unknown enums and a zero
// component are left out so they decode back to the defaults.
func encodeCandidate(c ICECandidate) candidateWire {
	w := candidateWire{
		UsernameFragment: c.StatsID,
		Foundation:       c.Foundation,
		Priority:         c.Priority,
		Address:          c.Address,
		Port:             c.Port,
		IP:               c.RelatedAddress,
		RelatedPort:      c.RelatedPort,
		TCPType:          c.TCPType,
	}
	if c.Protocol != ICEProtocolUnspecified {
		w.Protocol = c.Protocol.String()
	}
	if c.Typ != ICECandidateTypeUnspecified {
		w.Type = c.Typ.String()
	}
	switch c.Component {
	case 0:
	case ComponentRTP:
		w.Component = "rtp"
	default:
		w.Component = "rtcp"
	}
	if c.Typ != ICECandidateTypeUnspecified {
		init := c.WebRTC().ToJSON()
		if strings.TrimPrefix(init.Candidate, "candidate:") != "" {
			w.Candidate = init.Candidate
			w.SDPMid = init.SDPMid
			w.SDPMLineIndex = init.SDPMLineIndex
		}
	}
	return w
}
