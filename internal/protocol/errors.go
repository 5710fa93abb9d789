package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session state.
	ErrSessionBusy = "E_SESSION_BUSY"
	ErrBadRequest  = "E_BAD_REQUEST"

	// Build hand-off.
	ErrEmptyManifest = "E_EMPTY_MANIFEST"

	// Chat assistant.
	ErrChatUnavailable = "E_CHAT_UNAVAILABLE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrSessionBusy:     {},
	ErrBadRequest:      {},
	ErrEmptyManifest:   {},
	ErrChatUnavailable: {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
