package protocol

import (
	"bytes"
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
)

// object is a JSON object whose members are still raw. Payload decoders
// declare their schema as a sequence of require*/optional* reads against it.
type object struct {
	kind    MessageKind
	prefix  string
	members map[string]json.RawMessage
}

// parseObject decodes raw as a JSON object. label names the object itself in
// errors; prefix is prepended to member names.
func parseObject(kind MessageKind, label, prefix string, raw []byte) (object, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return object{}, malformed(kind, label, "is required")
	}
	if raw[0] != '{' {
		return object{}, malformed(kind, label, "must be an object")
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return object{}, malformed(kind, label, "is not valid JSON")
	}
	return object{kind: kind, prefix: prefix, members: members}, nil
}

// field returns the dotted path of a member.
func (o object) field(name string) string {
	return o.prefix + name
}

// lookup returns a member that is present and not null.
func (o object) lookup(name string) (json.RawMessage, bool) {
	raw, ok := o.members[name]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return nil, false
	}
	return raw, true
}

// has reports whether a member is present and not null.
func (o object) has(name string) bool {
	_, ok := o.lookup(name)
	return ok
}

// requireString reads a mandatory string member.
func (o object) requireString(name string) (string, error) {
	s, ok, err := o.optionalString(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", o.missing(name)
	}
	return s, nil
}

// optionalString reads a string member; absence is not an error.
func (o object) optionalString(name string) (string, bool, error) {
	raw, ok := o.lookup(name)
	if !ok {
		return "", false, nil
	}
	if raw[0] != '"' {
		return "", false, o.wrongType(name, "a string")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, o.wrongType(name, "a string")
	}
	return s, true, nil
}

// requireBool reads a mandatory boolean member.
func (o object) requireBool(name string) (bool, error) {
	b, ok, err := o.optionalBool(name)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, o.missing(name)
	}
	return b, nil
}

// optionalBool reads a boolean member; absence is not an error.
func (o object) optionalBool(name string) (bool, bool, error) {
	raw, ok := o.lookup(name)
	if !ok {
		return false, false, nil
	}
	switch string(raw) {
	case "true":
		return true, true, nil
	case "false":
		return false, true, nil
	default:
		return false, false, o.wrongType(name, "a boolean")
	}
}

// optionalUint reads a JSON integer that must fit in an unsigned integer of
// the given width.
func (o object) optionalUint(name string, bits int) (uint64, bool, error) {
	raw, ok := o.lookup(name)
	if !ok {
		return 0, false, nil
	}
	if raw[0] != '-' && (raw[0] < '0' || raw[0] > '9') {
		return 0, false, o.wrongType(name, "a number")
	}
	v, err := strconv.ParseUint(string(raw), 10, bits)
	if err != nil {
		return 0, false, malformed(o.kind, o.field(name), fmt.Sprintf("must be an unsigned %d-bit integer", bits))
	}
	return v, true, nil
}

// requireObject reads a mandatory nested object.
func (o object) requireObject(name string) (object, error) {
	nested, ok, err := o.optionalObject(name)
	if err != nil {
		return object{}, err
	}
	if !ok {
		return object{}, o.missing(name)
	}
	return nested, nil
}

// optionalObject reads a nested object; absence is not an error.
func (o object) optionalObject(name string) (object, bool, error) {
	raw, ok := o.lookup(name)
	if !ok {
		return object{}, false, nil
	}
	nested, err := parseObject(o.kind, o.field(name), o.field(name)+".", raw)
	if err != nil {
		return object{}, false, err
	}
	return nested, true, nil
}

// requireStrings reads a mandatory array of strings.
func (o object) requireStrings(name string) ([]string, error) {
	raw, ok := o.lookup(name)
	if !ok {
		return nil, o.missing(name)
	}
	if raw[0] != '[' {
		return nil, o.wrongType(name, "an array of strings")
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, o.wrongType(name, "an array of strings")
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// missing builds the error for an absent required member.
func (o object) missing(name string) error {
	return malformed(o.kind, o.field(name), "is required")
}

// wrongType builds the error for a member of the wrong JSON type.
func (o object) wrongType(name, want string) error {
	return malformed(o.kind, o.field(name), "must be "+want)
}

// invalidEnum builds the error for a member outside its vocabulary.
func (o object) invalidEnum(name, got string) error {
	return &InvalidEnumValueError{Kind: o.kind, Field: o.field(name), Got: got}
}

// malformed builds a MalformedPayloadError.
func malformed(kind MessageKind, field, reason string) error {
	return &MalformedPayloadError{Kind: kind, Field: field, Reason: reason}
}

// isNull reports whether raw is the JSON null literal.
func isNull(raw []byte) bool {
	return string(raw) == "null"
}
