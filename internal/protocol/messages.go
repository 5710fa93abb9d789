package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	// Touch clients get a mailto link on FINISH instead of copy text.
	Touch bool `json:"touch,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldParams     WorldParams `json:"world_params"`
	Catalog         DigestRef   `json:"catalog"`
	Blocks          []BlockInfo `json:"blocks"`
}

type WorldParams struct {
	TickRateHz int     `json:"tick_rate_hz"`
	RoomSize   int     `json:"room_size"`
	Height     int     `json:"height"`
	MaxRange   float64 `json:"max_range"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

type BlockInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// INPUT (client -> server): one sampled input record.
type InputMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version,omitempty"`
	Input           InputState `json:"input"`
}

type InputState struct {
	Forward   bool    `json:"forward,omitempty"`
	Back      bool    `json:"back,omitempty"`
	Left      bool    `json:"left,omitempty"`
	Right     bool    `json:"right,omitempty"`
	Sprint    bool    `json:"sprint,omitempty"`
	AnalogX   float64 `json:"analog_x,omitempty"`
	AnalogY   float64 `json:"analog_y,omitempty"`
	LookYaw   float64 `json:"look_yaw,omitempty"`
	LookPitch float64 `json:"look_pitch,omitempty"`
	Interact  bool    `json:"interact,omitempty"`
}

// SNAPSHOT (server -> client). State is the world snapshot as JSON.
type SnapshotMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	State           any    `json:"state"`
}

// FINISH, RESET and EXIT carry no payload.
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

// MANIFEST (server -> client)
type ManifestMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Recipient       string          `json:"recipient"`
	Subject         string          `json:"subject"`
	Text            string          `json:"text"`
	Mailto          string          `json:"mailto,omitempty"`
	Total           int             `json:"total"`
	Entries         []ManifestEntry `json:"entries"`
}

type ManifestEntry struct {
	TypeID string `json:"type_id"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// CHAT (client -> server)
type ChatMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Text            string `json:"text"`
}

// CHAT_REPLY (server -> client)
type ChatReplyMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
	Demo            bool   `json:"demo,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
