package types

import (
	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"github.com/DoyleJ11/resistance-backend/internal/lobby"
)

// ClientMessage types: "ProposeTeam" | "VoteTeam" | "VoteMission" | "SelectTargets" | "StartMatch"
type ClientMessage struct {
	Type    string   `json:"type"`
	Targets []string `json:"targets,omitempty"`
	Vote    string   `json:"vote,omitempty"`
	Options []string `json:"options,omitempty"`
}

type ServerMessage struct {
	Type    string         `json:"type"` // "StateSnapshot" | "Error"
	Version int            `json:"version,omitempty"`
	Roster  *lobby.Roster  `json:"roster,omitempty"`
	State   *engine.View   `json:"state,omitempty"`
	Events  []engine.Event `json:"events,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func SnapshotMessage(snap lobby.Snapshot) ServerMessage {
	return ServerMessage{
		Type:    "StateSnapshot",
		Version: snap.Version,
		Roster:  &snap.Roster,
		State:   &snap.View,
		Events:  snap.Events,
	}
}

func ErrorMessage(err error) ServerMessage {
	return ServerMessage{Type: "Error", Error: err.Error()}
}
