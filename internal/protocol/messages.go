package protocol

// HELLO (client -> server), sent once when a submitter connects.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	RunID           string `json:"run_id,omitempty"`
	Token           string `json:"token,omitempty"`
}

// GAME_INFO (client -> server): the per-tick report of one committed tick.
type GameInfoMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Tick            uint64     `json:"tick"`
	Map             string     `json:"map"`
	Keys            []string   `json:"keys"`
	Player          PlayerInfo `json:"player"`
	Won             bool       `json:"won,omitempty"`
	Cheating        bool       `json:"cheating,omitempty"`
	Lost            bool       `json:"lost,omitempty"`
	Answer          string     `json:"answer,omitempty"`
	TextInput       string     `json:"text_input,omitempty"`
	StateHash       string     `json:"state_hash"`
}

type PlayerInfo struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Health float64 `json:"health"`
	Dead   bool    `json:"dead,omitempty"`
}

// ACK (server -> client) answers every GAME_INFO.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}
