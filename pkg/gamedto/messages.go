// Package gamedto defines the wire shapes exchanged with clients. The game
// snapshot itself is the engine aggregate serialized as-is; these types are
// the envelopes around it.
package gamedto

import "encoding/json"

// ClientMessage is one command from a seated player. Type selects the
// operation; squares use algebraic notation ("e2").
type ClientMessage struct {
	Type   string `json:"type"` // place | remove | move_setup | apply_preset | save_layout | finish_setup | reset | move | resign
	Square string `json:"square,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Name   string `json:"name,omitempty"` // preset or layout name
}

// ServerMessage is one frame to a client: either a snapshot or an error.
type ServerMessage struct {
	Type    string          `json:"type"` // snapshot | error
	Version int64           `json:"version,omitempty"`
	State   json.RawMessage `json:"state,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// CreateGameRequest opens a session.
type CreateGameRequest struct {
	HostID        string `json:"host_id"`
	HostName      string `json:"host_name"`
	FogOfWar      bool   `json:"fog_of_war"`
	MoveTimeLimit int    `json:"move_time_limit"`
}

// CreateGameResponse returns the session id and its join code.
type CreateGameResponse struct {
	GameID string `json:"game_id"`
	Code   string `json:"code"`
}

// JoinGameRequest seats the second player by join code.
type JoinGameRequest struct {
	Code     string `json:"code"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// ErrorResponse is the REST error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
