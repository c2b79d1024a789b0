package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// StepKind discriminates a Program Step's payload.
type StepKind string

const (
	StepArmMove    StepKind = "arm_move"
	StepArmStop    StepKind = "arm_stop"
	StepBaseMove   StepKind = "base_move"
	StepBaseStop   StepKind = "base_stop"
	StepGripper    StepKind = "gripper"
	StepSleep      StepKind = "sleep"
	StepReadState  StepKind = "read_state"
	StepRewind     StepKind = "rewind"
)

// Program is the typed-variant representation of "code" submitted to
// POST /code/execute: a restricted, fixed vocabulary of Steps rather than
// an embedded scripting language.
type Program struct {
	Steps []Step `json:"steps"`
}

// SleepParams is the payload for StepSleep.
type SleepParams struct {
	Duration time.Duration `json:"duration_ms"`
}

// RewindParams is the payload for StepRewind: exactly one of Steps or
// Percentage must be set.
type RewindParams struct {
	Steps      int     `json:"steps,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	DryRun     bool    `json:"dry_run,omitempty"`
}

// Step is one instruction in a Program: a sum over Kind with per-variant
// fields fixed at compile time. Exactly one of the pointer fields
// matching Kind is populated; unknown kinds are rejected at decode time.
type Step struct {
	Kind StepKind

	ArmMove  *ArmCommand
	BaseMove *BaseCommand
	Gripper  *GripperCommand
	Sleep    *SleepParams
	Rewind   *RewindParams
}

// stepWire is the on-the-wire shape of a Step: a discriminator plus one
// field per variant, all optional, exactly one populated per Kind.
type stepWire struct {
	Kind     StepKind        `json:"kind"`
	ArmMove  *ArmCommand     `json:"arm_move,omitempty"`
	BaseMove *BaseCommand    `json:"base_move,omitempty"`
	Gripper  *GripperCommand `json:"gripper,omitempty"`
	Sleep    *SleepParams    `json:"sleep,omitempty"`
	Rewind   *RewindParams   `json:"rewind,omitempty"`
}

// UnmarshalJSON decodes a Step by its Kind discriminator, rejecting
// unknown kinds and kinds whose required payload is missing.
func (s *Step) UnmarshalJSON(data []byte) error {
	var w stepWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("types: decode step: %w", err)
	}

	switch w.Kind {
	case StepArmMove:
		if w.ArmMove == nil {
			return fmt.Errorf("types: step kind %q requires arm_move", w.Kind)
		}
	case StepBaseMove:
		if w.BaseMove == nil {
			return fmt.Errorf("types: step kind %q requires base_move", w.Kind)
		}
	case StepGripper:
		if w.Gripper == nil {
			return fmt.Errorf("types: step kind %q requires gripper", w.Kind)
		}
	case StepSleep:
		if w.Sleep == nil {
			return fmt.Errorf("types: step kind %q requires sleep", w.Kind)
		}
	case StepRewind:
		if w.Rewind == nil {
			return fmt.Errorf("types: step kind %q requires rewind", w.Kind)
		}
	case StepArmStop, StepBaseStop, StepReadState:
		// no payload required
	default:
		return fmt.Errorf("types: unknown step kind %q", w.Kind)
	}

	*s = Step{
		Kind:     w.Kind,
		ArmMove:  w.ArmMove,
		BaseMove: w.BaseMove,
		Gripper:  w.Gripper,
		Sleep:    w.Sleep,
		Rewind:   w.Rewind,
	}
	return nil
}

// MarshalJSON re-emits the step's wire shape.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(stepWire{
		Kind:     s.Kind,
		ArmMove:  s.ArmMove,
		BaseMove: s.BaseMove,
		Gripper:  s.Gripper,
		Sleep:    s.Sleep,
		Rewind:   s.Rewind,
	})
}

// RPCFrame is a newline-delimited JSON-RPC frame exchanged between the
// code executor's re-exec'd child and the parent's SDK shim over
// stdin/stdout: a request carries Method/Params, a reply carries
// Result/Error, matched by ID.
type RPCFrame struct {
	ID     uint64          `json:"id"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}
