// Package reducer applies player and collaborator commands to a game state.
package reducer

import (
	"encoding/json"
	"errors"
	"fmt"

	"uptime-sim/internal/game"
)

// Command types as they appear in the JSON envelope.
const (
	TypeTogglePause           = "toggle_pause"
	TypeSetSpeed              = "set_speed"
	TypeExecuteAction         = "execute_action"
	TypeMitigateIncident      = "mitigate_incident"
	TypeExecuteExternalAction = "execute_external_action"
	TypeSpawnExternalIncident = "spawn_external_incident"
	TypeTrackIncidentTarget   = "track_incident_target"
	TypeLoadState             = "load_state"
)

// ErrUnknownCommand is returned by DecodeCommand for unrecognised types.
var ErrUnknownCommand = errors.New("unknown command type")

// Command is one of the concrete command types below.
type Command interface {
	Type() string
}

type TogglePause struct{}

type SetSpeed struct {
	Speed float64 `json:"speed"`
}

type ExecuteAction struct {
	ActionID   string `json:"actionId"`
	IncidentID string `json:"incidentId,omitempty"`
}

type MitigateIncident struct {
	IncidentID string `json:"incidentId"`
	ActionID   string `json:"actionId"`
}

type ExecuteExternalAction struct {
	Name       string  `json:"name"`
	Cost       float64 `json:"cost"`
	Duration   float64 `json:"duration"`
	IncidentID string  `json:"incidentId,omitempty"`
}

type SpawnExternalIncident struct {
	Incident game.GeneratedIncident `json:"incident"`
}

type TrackIncidentTarget struct {
	NodeID string `json:"nodeId"`
}

type LoadState struct {
	State *game.State `json:"state"`
}

func (TogglePause) Type() string           { return TypeTogglePause }
func (SetSpeed) Type() string              { return TypeSetSpeed }
func (ExecuteAction) Type() string         { return TypeExecuteAction }
func (MitigateIncident) Type() string      { return TypeMitigateIncident }
func (ExecuteExternalAction) Type() string { return TypeExecuteExternalAction }
func (SpawnExternalIncident) Type() string { return TypeSpawnExternalIncident }
func (TrackIncidentTarget) Type() string   { return TypeTrackIncidentTarget }
func (LoadState) Type() string             { return TypeLoadState }

type envelope struct {
	Type string `json:"type"`
}

// DecodeCommand parses a {"type": ..., ...} envelope into a concrete command.
func DecodeCommand(b []byte) (Command, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}
	var cmd Command
	var err error
	switch env.Type {
	case TypeTogglePause:
		return TogglePause{}, nil
	case TypeSetSpeed:
		var c SetSpeed
		err = json.Unmarshal(b, &c)
		cmd = c
	case TypeExecuteAction:
		var c ExecuteAction
		err = json.Unmarshal(b, &c)
		cmd = c
	case TypeMitigateIncident:
		var c MitigateIncident
		err = json.Unmarshal(b, &c)
		cmd = c
	case TypeExecuteExternalAction:
		var c ExecuteExternalAction
		err = json.Unmarshal(b, &c)
		cmd = c
	case TypeSpawnExternalIncident:
		var c SpawnExternalIncident
		err = json.Unmarshal(b, &c)
		cmd = c
	case TypeTrackIncidentTarget:
		var c TrackIncidentTarget
		err = json.Unmarshal(b, &c)
		cmd = c
	case TypeLoadState:
		var c LoadState
		err = json.Unmarshal(b, &c)
		cmd = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return cmd, nil
}

// EncodeCommand wraps a command in its JSON envelope.
func EncodeCommand(cmd Command) ([]byte, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	t, _ := json.Marshal(cmd.Type())
	fields["type"] = t
	return json.Marshal(fields)
}
