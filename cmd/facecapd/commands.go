package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Control Commands
// ============================================================================
// Commands are requests from control clients (facecap-ctl, scripts). The
// daemon runs each one on the scheduler goroutine and replies with a result.
// ============================================================================

// Command is a marker interface for all control commands.
type Command interface {
	commandMarker()
}

// CmdStart binds the receiver and starts the consumer loop.
type CmdStart struct{}

// CmdStop signals the receiver to exit.
type CmdStop struct{}

// CmdClear zeroes every catalogue channel on every bound target.
type CmdClear struct{}

// CmdRecord inserts keyframes at the current timeline frame.
type CmdRecord struct {
	Mode string `json:"mode,omitempty"` // "force" or "optimized" (default)
}

// CmdCleanup removes redundant keyframes. A nil threshold uses the
// configured recording threshold.
type CmdCleanup struct {
	Threshold *float64 `json:"threshold,omitempty"`
}

// CmdDeleteKeysAt removes keyframes at one frame. A nil frame means the
// current timeline frame.
type CmdDeleteKeysAt struct {
	Frame *int `json:"frame,omitempty"`
}

// CmdDeleteAllKeys removes every catalogue keyframe from bound targets.
type CmdDeleteAllKeys struct{}

type CmdAddTarget struct {
	Name string `json:"name"`
}

type CmdRemoveTarget struct {
	Name string `json:"name"`
}

type CmdSetTimeLapse struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval"`
}

type CmdSetFrame struct {
	Frame int `json:"frame"`
}

type CmdSetThreshold struct {
	Threshold float64 `json:"threshold"`
}

// CmdStatus returns a session snapshot.
type CmdStatus struct{}

// CmdDumpCurves returns the keyframes of one target, or of every bound
// target when Target is empty.
type CmdDumpCurves struct {
	Target string `json:"target,omitempty"`
}

func (CmdStart) commandMarker()         {}
func (CmdStop) commandMarker()          {}
func (CmdClear) commandMarker()         {}
func (CmdRecord) commandMarker()        {}
func (CmdCleanup) commandMarker()       {}
func (CmdDeleteKeysAt) commandMarker()  {}
func (CmdDeleteAllKeys) commandMarker() {}
func (CmdAddTarget) commandMarker()     {}
func (CmdRemoveTarget) commandMarker()  {}
func (CmdSetTimeLapse) commandMarker()  {}
func (CmdSetFrame) commandMarker()      {}
func (CmdSetThreshold) commandMarker()  {}
func (CmdStatus) commandMarker()        {}
func (CmdDumpCurves) commandMarker()    {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================

// CommandEnvelope wraps a command with a type discriminator for JSON.
type CommandEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// decodeData unmarshals env.Data into v. A missing payload leaves v at its
// zero value.
func decodeData(env CommandEnvelope, v any) error {
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return nil
}

// UnmarshalCommand deserializes a JSON command envelope into a concrete Command.
func UnmarshalCommand(data []byte) (Command, error) {
	var env CommandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "start":
		return CmdStart{}, nil
	case "stop":
		return CmdStop{}, nil
	case "clear":
		return CmdClear{}, nil
	case "delete_all_keys":
		return CmdDeleteAllKeys{}, nil
	case "status":
		return CmdStatus{}, nil

	case "record":
		var c CmdRecord
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		switch c.Mode {
		case "":
			c.Mode = "optimized"
		case "force", "optimized":
		default:
			return nil, fmt.Errorf("record: unknown mode %q (must be force or optimized)", c.Mode)
		}
		return c, nil

	case "cleanup":
		var c CmdCleanup
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		return c, nil

	case "delete_keys_at":
		var c CmdDeleteKeysAt
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		return c, nil

	case "add_target":
		var c CmdAddTarget
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		if c.Name == "" {
			return nil, fmt.Errorf("add_target: name is required")
		}
		return c, nil

	case "remove_target":
		var c CmdRemoveTarget
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		if c.Name == "" {
			return nil, fmt.Errorf("remove_target: name is required")
		}
		return c, nil

	case "set_timelapse":
		var c CmdSetTimeLapse
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		return c, nil

	case "set_frame":
		var c CmdSetFrame
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		return c, nil

	case "set_threshold":
		var c CmdSetThreshold
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		return c, nil

	case "dump_curves":
		var c CmdDumpCurves
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown command type: %q", env.Type)
	}
}

// MarshalCommand serializes a Command into a JSON envelope.
func MarshalCommand(c Command) ([]byte, error) {
	var env CommandEnvelope
	var payload any

	switch c := c.(type) {
	case CmdStart:
		env.Type = "start"
	case CmdStop:
		env.Type = "stop"
	case CmdClear:
		env.Type = "clear"
	case CmdDeleteAllKeys:
		env.Type = "delete_all_keys"
	case CmdStatus:
		env.Type = "status"
	case CmdRecord:
		env.Type, payload = "record", c
	case CmdCleanup:
		env.Type, payload = "cleanup", c
	case CmdDeleteKeysAt:
		env.Type, payload = "delete_keys_at", c
	case CmdAddTarget:
		env.Type, payload = "add_target", c
	case CmdRemoveTarget:
		env.Type, payload = "remove_target", c
	case CmdSetTimeLapse:
		env.Type, payload = "set_timelapse", c
	case CmdSetFrame:
		env.Type, payload = "set_frame", c
	case CmdSetThreshold:
		env.Type, payload = "set_threshold", c
	case CmdDumpCurves:
		env.Type, payload = "dump_curves", c
	default:
		return nil, fmt.Errorf("unsupported command type: %T", c)
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}
