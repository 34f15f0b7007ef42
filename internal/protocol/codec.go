package protocol

import (
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Envelope is the unit of wire exchange. Its kind is the kind of its payload.
type Envelope struct {
	ID      string
	ConnID  string
	Payload Payload
}

// NewEnvelope builds an outbound envelope.
func NewEnvelope(id, connID string, payload Payload) Envelope {
	return Envelope{ID: id, ConnID: connID, Payload: payload}
}

// Kind returns the payload kind, or an invalid kind when there is no payload.
func (e Envelope) Kind() MessageKind {
	if e.Payload == nil {
		return kindInvalid
	}
	return e.Payload.Kind()
}

// frame is the flat wire object.
type frame struct {
	ID     string          `json:"id"`
	ConnID string          `json:"connId"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// Codec converts between wire frames and envelopes. It holds no mutable
// state and is safe for concurrent use.
type Codec struct {
	opts decodeOptions
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger used for decode diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(c *Codec) {
		if log != nil {
			c.opts.log = log
		}
	}
}

// WithLegacyCandidateType makes the candidate "type" field count only when
// "tcpType" is also present, as older servers did.
func WithLegacyCandidateType(enabled bool) Option {
	return func(c *Codec) {
		c.opts.legacyCandidateType = enabled
	}
}

// NewCodec builds a codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{opts: decodeOptions{log: zap.NewNop()}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decode parses one inbound frame. id, connId and type are required strings;
// data may be absent for kinds without a typed payload.
func (c *Codec) Decode(raw []byte) (Envelope, error) {
	env, err := c.decode(raw)
	if err != nil {
		c.report(err)
		return Envelope{}, err
	}
	return env, nil
}

// DecodePayload decodes the data member of a frame of the given kind.
func (c *Codec) DecodePayload(kind MessageKind, data []byte) (Payload, error) {
	if !kind.Valid() {
		err := &UnknownKindError{Token: kind.String()}
		c.report(err)
		return nil, err
	}
	p, err := c.decodePayload(kind, data)
	if err != nil {
		c.report(err)
		return nil, err
	}
	return p, nil
}

// Encode writes an envelope as a flat {id, connId, type, data} object.
func (c *Codec) Encode(env Envelope) ([]byte, error) {
	if env.Payload == nil {
		return nil, errors.New("encode: envelope has no payload")
	}
	kind := env.Payload.Kind()
	if !kind.Valid() {
		return nil, fmt.Errorf("encode: invalid message kind %d", uint8(kind))
	}
	data, err := json.Marshal(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.Marshal(frame{ID: env.ID, ConnID: env.ConnID, Type: kind.String(), Data: data})
}

// decode is Decode without the diagnostics.
func (c *Codec) decode(raw []byte) (Envelope, error) {
	top, err := parseObject(kindInvalid, "frame", "", raw)
	if err != nil {
		return Envelope{}, err
	}
	id, err := top.requireString("id")
	if err != nil {
		return Envelope{}, err
	}
	connID, err := top.requireString("connId")
	if err != nil {
		return Envelope{}, err
	}
	token, err := top.requireString("type")
	if err != nil {
		return Envelope{}, err
	}
	kind, err := ParseKind(token)
	if err != nil {
		return Envelope{}, err
	}
	data, _ := top.lookup("data")
	payload, err := c.decodePayload(kind, data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{ID: id, ConnID: connID, Payload: payload}, nil
}

// decodePayload applies the registered rule for kind, or keeps the data
// verbatim in a Unit.
func (c *Codec) decodePayload(kind MessageKind, data []byte) (Payload, error) {
	decode, ok := decoders[kind]
	if !ok {
		var retained json.RawMessage
		if len(data) > 0 && !isNull(data) {
			retained = append(json.RawMessage(nil), data...)
		}
		return Unit{kind: kind, Data: retained}, nil
	}
	o, err := parseObject(kind, "data", "", data)
	if err != nil {
		return nil, err
	}
	return decode(c.opts, o)
}

// report logs a decode failure with the offending token or field.
func (c *Codec) report(err error) {
	var unknown *UnknownKindError
	var bad *MalformedPayloadError
	switch {
	case errors.As(err, &unknown):
		c.opts.log.Warn("unknown message kind", zap.String("token", unknown.Token))
	case errors.As(err, &bad):
		c.opts.log.Warn("malformed payload",
			zap.String("kind", kindLabel(bad.Kind)),
			zap.String("field", bad.Field),
			zap.String("reason", bad.Reason))
	default:
		c.opts.log.Debug("payload rejected", zap.Error(err))
	}
}

// kindLabel is the log label of a kind; frame-level errors have none.
func kindLabel(k MessageKind) string {
	if !k.Valid() {
		return ""
	}
	return k.String()
}
