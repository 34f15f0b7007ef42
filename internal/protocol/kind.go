// Package protocol defines the room signaling wire protocol: the message kind
// catalog, the frame envelope, typed payloads and their codecs.
package protocol

import "fmt"

// MessageKind identifies what a signaling frame means. The zero value is not a
// valid kind.
type MessageKind uint8

// Message kinds. The wire token of each kind is returned by String.
const (
	kindInvalid MessageKind = iota
	KindSetLocale
	KindGetLocale
	KindGetUserID
	KindSetUserID
	KindGetLogin
	KindToken
	KindOffer
	KindCandidate
	KindAnswer
	KindGetRoom
	KindSetRoom
	KindGetChatUnit
	KindGetSettingsUnit
	KindSetError
	KindGetRoomGuests
	KindSetRoomGuests
	KindSetChangeUnit
	KindGetMute
	KindSetMute
	KindGetNeedReconnect
	KindGetClosePeerConnection
	KindSetClosePeerConnection
	KindGetRoomMessage
	KindSetRoomMessage
	KindSetChatUnit
	KindSetSettingsUnit
	KindGetChatMessages
	KindSetChatMessages
	KindGetEditMessage
	KindSetEditMessage
	KindGetCreateMessage
	KindSetCreateMessage
	KindGetCreateQuote
	KindSetCreateQuote
	KindGetDeleteMessage
	KindSetDeleteMessage
	KindGetToMute
	KindGetToBan
	KindGetToUnmute
	KindGetToUnban
	KindSetBanList
	KindSetMuteList
	KindGetRecord
	KindSetRecording
	KindGetVideoFindMany
	KindSetVideoFindMany
	KindGetVideoFindFirst
	KindSetVideoFindFirst
	KindGetAskFloor
	KindSetAskFloor
	KindGetMuteForAll
	KindSetMuteForAll
	KindGetBlockChat
	KindSetBlockChat
	KindGetVideoTrack
	KindSetVideoTrack
	KindGetToAdmin
	KindSetToAdmin
	KindGetVideoSettings
	KindSetCreateVideo
	KindGetVideoDelete
	KindSetVideoDelete
	KindGetVideoUpdate
	KindSetVideoUpdate
	kindEnd
)

// kindTokens is the wire token of every kind. Clients match these strings
// exactly.
var kindTokens = [kindEnd]string{
	KindSetLocale:              "SET_LOCALE",
	KindGetLocale:              "GET_LOCALE",
	KindGetUserID:              "GET_USER_ID",
	KindSetUserID:              "SET_USER_ID",
	KindGetLogin:               "GET_LOGIN",
	KindToken:                  "TOKEN",
	KindOffer:                  "OFFER",
	KindCandidate:              "CANDIDATE",
	KindAnswer:                 "ANSWER",
	KindGetRoom:                "GET_ROOM",
	KindSetRoom:                "SET_ROOM",
	KindGetChatUnit:            "GET_CHAT_UNIT",
	KindGetSettingsUnit:        "GET_SETTINGS_UNIT",
	KindSetError:               "SET_ERROR",
	KindGetRoomGuests:          "GET_ROOM_GUESTS",
	KindSetRoomGuests:          "SET_ROOM_GUESTS",
	KindSetChangeUnit:          "SET_CHANGE_UNIT",
	KindGetMute:                "GET_MUTE",
	KindSetMute:                "SET_MUTE",
	KindGetNeedReconnect:       "GET_NEED_RECONNECT",
	KindGetClosePeerConnection: "GET_CLOSE_PEER_CONNECTION",
	KindSetClosePeerConnection: "SET_CLOSE_PEER_CONNECTION",
	KindGetRoomMessage:         "GET_ROOM_MESSAGE",
	KindSetRoomMessage:         "SET_ROOM_MESSAGE",
	KindSetChatUnit:            "SET_CHAT_UNIT",
	KindSetSettingsUnit:        "SET_SETTINGS_UNIT",
	KindGetChatMessages:        "GET_CHAT_MESSAGES",
	KindSetChatMessages:        "SET_CHAT_MESSAGES",
	KindGetEditMessage:         "GET_EDIT_MESSAGE",
	KindSetEditMessage:         "SET_EDIT_MESSAGE",
	KindGetCreateMessage:       "GET_CREATE_MESSAGE",
	KindSetCreateMessage:       "SET_CREATE_MESSAGE",
	KindGetCreateQuote:         "GET_CREATE_QUOTE",
	KindSetCreateQuote:         "SET_CREATE_QUOTE",
	KindGetDeleteMessage:       "GET_DELETE_MESSAGE",
	KindSetDeleteMessage:       "SET_DELETE_MESSAGE",
	KindGetToMute:              "GET_TO_MUTE",
	KindGetToBan:               "GET_TO_BAN",
	KindGetToUnmute:            "GET_TO_UNMUTE",
	KindGetToUnban:             "GET_TO_UNBAN",
	KindSetBanList:             "SET_BAN_LIST",
	KindSetMuteList:            "SET_MUTE_LIST",
	KindGetRecord:              "GET_RECORD",
	KindSetRecording:           "SET_RECORDING",
	KindGetVideoFindMany:       "GET_VIDEO_FIND_MANY",
	KindSetVideoFindMany:       "SET_VIDEO_FIND_MANY",
	KindGetVideoFindFirst:      "GET_VIDEO_FIND_FIRST",
	KindSetVideoFindFirst:      "SET_VIDEO_FIND_FIRST",
	KindGetAskFloor:            "GET_ASK_FLOOR",
	KindSetAskFloor:            "SET_ASK_FLOOR",
	KindGetMuteForAll:          "GET_MUTE_FOR_ALL",
	KindSetMuteForAll:          "SET_MUTE_FOR_ALL",
	KindGetBlockChat:           "GET_BLOCK_CHAT",
	KindSetBlockChat:           "SET_BLOCK_CHAT",
	KindGetVideoTrack:          "GET_VIDEO_TRACK",
	KindSetVideoTrack:          "SET_VIDEO_TRACK",
	KindGetToAdmin:             "GET_TO_ADMIN",
	KindSetToAdmin:             "SET_TO_ADMIN",
	KindGetVideoSettings:       "GET_VIDEO_SETTINGS",
	KindSetCreateVideo:         "SET_CREATE_VIDEO",
	KindGetVideoDelete:         "GET_VIDEO_DELETE",
	KindSetVideoDelete:         "SET_VIDEO_DELETE",
	KindGetVideoUpdate:         "GET_VIDEO_UPDATE",
	KindSetVideoUpdate:         "SET_VIDEO_UPDATE",
}

// kindByToken is the reverse of kindTokens.
var kindByToken = func() map[string]MessageKind {
	m := make(map[string]MessageKind, len(kindTokens))
	for k := KindSetLocale; k < kindEnd; k++ {
		m[kindTokens[k]] = k
	}
	return m
}()

// ParseKind resolves a wire token. Matching is exact and case-sensitive.
func ParseKind(token string) (MessageKind, error) {
	if k, ok := kindByToken[token]; ok {
		return k, nil
	}
	return kindInvalid, &UnknownKindError{Token: token}
}

// Kinds returns every kind in the catalog.
func Kinds() []MessageKind {
	out := make([]MessageKind, 0, kindEnd-1)
	for k := KindSetLocale; k < kindEnd; k++ {
		out = append(out, k)
	}
	return out
}

// Valid reports whether k belongs to the catalog.
func (k MessageKind) Valid() bool {
	return k > kindInvalid && k < kindEnd
}

// String returns the wire token.
func (k MessageKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("MessageKind(%d)", uint8(k))
	}
	return kindTokens[k]
}

// MarshalText encodes the kind as its wire token.
func (k MessageKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid message kind %d", uint8(k))
	}
	return []byte(kindTokens[k]), nil
}

// UnmarshalText decodes a wire token.
func (k *MessageKind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
