package protocol

import "go.uber.org/zap"

// decodeOptions carries the codec settings a decoder may consult.
type decodeOptions struct {
	log                 *zap.Logger
	legacyCandidateType bool
}

// decodeFunc turns the data object of a frame into its typed payload.
type decodeFunc func(opts decodeOptions, o object) (Payload, error)

// decoders holds one rule per kind that owns a typed payload. Every other
// kind decodes to Unit.
var decoders = map[MessageKind]decodeFunc{
	KindGetLocale:       decodeGetLocale,
	KindGetChatUnit:     decodeGetChatUnit,
	KindGetSettingsUnit: decodeGetSettingsUnit,
	KindGetUserID:       decodeGetUserID,
	KindSetUserID:       decodeSetUserID,
	KindGetRoom:         decodeGetRoom,
	KindSetRoom:         decodeSetRoom,
	KindOffer:           decodeOffer,
	KindAnswer:          decodeAnswer,
	KindCandidate:       decodeCandidate,
	KindSetError:        decodeSetError,
}

// HasTypedPayload reports whether kind decodes to a dedicated payload type
// rather than Unit.
func HasTypedPayload(kind MessageKind) bool {
	_, ok := decoders[kind]
	return ok
}

// readLocale reads a mandatory locale member.
func readLocale(o object, name string) (Locale, error) {
	raw, err := o.requireString(name)
	if err != nil {
		return "", err
	}
	locale, ok := ParseLocale(raw)
	if !ok {
		return "", o.invalidEnum(name, raw)
	}
	return locale, nil
}

// decodeGetLocale reads {locale}.
func decodeGetLocale(_ decodeOptions, o object) (Payload, error) {
	locale, err := readLocale(o, "locale")
	if err != nil {
		return nil, err
	}
	return GetLocale{Locale: locale}, nil
}

// decodeGetChatUnit reads {userId, locale}.
func decodeGetChatUnit(_ decodeOptions, o object) (Payload, error) {
	userID, err := o.requireString("userId")
	if err != nil {
		return nil, err
	}
	locale, err := readLocale(o, "locale")
	if err != nil {
		return nil, err
	}
	return GetChatUnit{UserID: userID, Locale: locale}, nil
}

// decodeGetSettingsUnit reads {userId, locale}.
func decodeGetSettingsUnit(_ decodeOptions, o object) (Payload, error) {
	userID, err := o.requireString("userId")
	if err != nil {
		return nil, err
	}
	locale, err := readLocale(o, "locale")
	if err != nil {
		return nil, err
	}
	return GetSettingsUnit{UserID: userID, Locale: locale}, nil
}

// decodeGetUserID reads {userName, locale, isRoom?}.
func decodeGetUserID(_ decodeOptions, o object) (Payload, error) {
	userName, err := o.requireString("userName")
	if err != nil {
		return nil, err
	}
	locale, err := readLocale(o, "locale")
	if err != nil {
		return nil, err
	}
	out := GetUserID{UserName: userName, Locale: locale}
	isRoom, ok, err := o.optionalBool("isRoom")
	if err != nil {
		return nil, err
	}
	if ok {
		out.IsRoom = &isRoom
	}
	return out, nil
}

// decodeSetUserID reads {name}.
func decodeSetUserID(_ decodeOptions, o object) (Payload, error) {
	name, err := o.requireString("name")
	if err != nil {
		return nil, err
	}
	return SetUserID{Name: name}, nil
}

// decodeGetRoom reads {userId, mimeType, isPublic}.
func decodeGetRoom(_ decodeOptions, o object) (Payload, error) {
	userID, err := o.requireString("userId")
	if err != nil {
		return nil, err
	}
	mimeType, err := o.requireString("mimeType")
	if err != nil {
		return nil, err
	}
	isPublic, err := o.requireBool("isPublic")
	if err != nil {
		return nil, err
	}
	return GetRoom{UserID: userID, MimeType: mimeType, IsPublic: isPublic}, nil
}

// decodeSetRoom reads {isOwner, asked}.
func decodeSetRoom(_ decodeOptions, o object) (Payload, error) {
	isOwner, err := o.requireBool("isOwner")
	if err != nil {
		return nil, err
	}
	asked, err := o.requireStrings("asked")
	if err != nil {
		return nil, err
	}
	return SetRoom{IsOwner: isOwner, Asked: asked}, nil
}

// decodeOffer reads {sdp, userId, target, mimeType, roomId}.
func decodeOffer(_ decodeOptions, o object) (Payload, error) {
	sdp, err := readSessionDescription(o)
	if err != nil {
		return nil, err
	}
	out := Offer{SDP: sdp}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"userId", &out.UserID},
		{"target", &out.Target},
		{"mimeType", &out.MimeType},
		{"roomId", &out.RoomID},
	} {
		if *f.dst, err = o.requireString(f.key); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// decodeAnswer reads {sdp, userId, target}.
func decodeAnswer(_ decodeOptions, o object) (Payload, error) {
	sdp, err := readSessionDescription(o)
	if err != nil {
		return nil, err
	}
	userID, err := o.requireString("userId")
	if err != nil {
		return nil, err
	}
	target, err := o.requireString("target")
	if err != nil {
		return nil, err
	}
	return Answer{SDP: sdp, UserID: userID, Target: target}, nil
}

// decodeCandidate reads {candidate?, userId, target, roomId}.
func decodeCandidate(opts decodeOptions, o object) (Payload, error) {
	c, err := readCandidate(opts, o)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// decodeSetError reads {message}.
func decodeSetError(_ decodeOptions, o object) (Payload, error) {
	message, err := o.requireString("message")
	if err != nil {
		return nil, err
	}
	return SetError{Message: message}, nil
}
