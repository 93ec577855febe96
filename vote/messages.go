/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package vote

import (
	"github.com/Seednode/filmvote/catalog"
)

// Inbound event types.
const (
	EventJoin          = "join"
	EventHostReconnect = "host_reconnect"
	EventStart         = "start"
	EventEliminate     = "eliminate"
	EventReorder       = "reorder"
	EventKickPlayer    = "kick_player"
)

// Event is a message coming from a client.
type Event struct {
	Type            string         `json:"type"`                       // see Event* constants
	Name            string         `json:"name,omitempty"`             // join
	PlayerID        string         `json:"player_id,omitempty"`        // join
	HostID          string         `json:"host_id,omitempty"`          // host_reconnect
	Films           []catalog.Item `json:"films,omitempty"`            // start
	VoteStyle       string         `json:"vote_style,omitempty"`       // start
	HybridThreshold *int           `json:"hybrid_threshold,omitempty"` // start
	Film            string         `json:"film,omitempty"`             // eliminate
	Group           string         `json:"group,omitempty"`            // eliminate
	Order           []string       `json:"order,omitempty"`            // reorder
	Player          string         `json:"player,omitempty"`           // kick_player
}

// PlayerIDMessage hands a reconnection token to the connection that earned it.
type PlayerIDMessage struct {
	Type   string `json:"type"` // "player_id"
	ID     string `json:"id"`
	IsHost bool   `json:"is_host,omitempty"`
}

type ReconnectMessage struct {
	Type   string `json:"type"` // "reconnect_success"
	Name   string `json:"name,omitempty"`
	IsHost bool   `json:"is_host,omitempty"`
}

// ErrorMessage is only ever sent to the connection that caused it.
type ErrorMessage struct {
	Type           string `json:"type"` // "error"
	Message        string `json:"message"`
	VoteInProgress bool   `json:"vote_in_progress,omitempty"`
}

type KickedMessage struct {
	Type      string `json:"type"` // "kicked"
	Message   string `json:"message"`
	CanRejoin bool   `json:"can_rejoin"`
}

// Snapshot is the full session state sent to every client after a change.
// A snapshot with a higher Seq supersedes any earlier one.
type Snapshot struct {
	Type             string         `json:"type"` // "state_update"
	Seq              uint64         `json:"seq"`
	Code             string         `json:"code"`
	FilmsRemaining   []catalog.Item `json:"films_remaining"`
	Eliminated       []catalog.Item `json:"eliminated"`
	Players          []string       `json:"players"`
	CurrentPlayer    *string        `json:"current_player"`
	CurrentTurn      int            `json:"current_turn"`
	Started          bool           `json:"started"`
	ConnectedPlayers []string       `json:"connected_players"`
	Winner           *catalog.Item  `json:"winner"`
	VoteStyle        Style          `json:"vote_style"`
	HybridThreshold  int            `json:"hybrid_threshold"`
	GroupA           []catalog.Item `json:"group_a"`
	GroupB           []catalog.Item `json:"group_b"`
}

func errorMessage(text string) ErrorMessage {
	return ErrorMessage{Type: "error", Message: text}
}
