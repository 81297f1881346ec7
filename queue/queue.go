// Package queue holds the bench run queue: an ordered list of pump
// actions, timed pauses, and electrochemical measurements executed one at
// a time. Unlike an in-protocol command sequence, a failed queue item
// does not stop the queue; it is marked failed and the run moves on.
package queue

import (
	"fmt"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusStopped   Status = "stopped"
)

// Kind discriminates queue items.
type Kind string

const (
	KindPump        Kind = "PUMP"
	KindPause       Kind = "PAUSE"
	KindMeasurement Kind = "MEASUREMENT"
)

// PumpOp names a queued pump action.
type PumpOp string

const (
	OpInit     PumpOp = "INIT"
	OpSetSpeed PumpOp = "SET_SPEED"
	OpValve    PumpOp = "VALVE"
	OpAspirate PumpOp = "ASPIRATE"
	OpDispense PumpOp = "DISPENSE"
)

// PumpAction is the payload of a pump item.
type PumpAction struct {
	Op       PumpOp  `json:"op"`
	VolumeUL float64 `json:"volume_ul,omitempty"`
	Speed    int     `json:"speed,omitempty"`
	Port     int     `json:"port,omitempty"`
}

// Item is one queue entry. Exactly one payload field is set, matching
// Kind.
type Item struct {
	ID           string      `json:"id"`
	Kind         Kind        `json:"kind"`
	Status       Status      `json:"status"`
	Details      string      `json:"details,omitempty"`
	Pump         *PumpAction `json:"pump_action,omitempty"`
	PauseSeconds float64     `json:"pause_seconds,omitempty"`
	ScriptPath   string      `json:"script_path,omitempty"`
	Technique    string      `json:"technique,omitempty"`
}

func newItem(kind Kind, details string) Item {
	return Item{
		ID:      uuid.NewString(),
		Kind:    kind,
		Status:  StatusPending,
		Details: details,
	}
}

func NewPumpItem(action PumpAction) Item {
	it := newItem(KindPump, describePump(action))
	it.Pump = &action
	return it
}

func NewPauseItem(seconds float64) Item {
	it := newItem(KindPause, fmt.Sprintf("Pause for %.1f sec", seconds))
	it.PauseSeconds = seconds
	return it
}

func NewMeasurementItem(technique, scriptPath string) Item {
	it := newItem(KindMeasurement, fmt.Sprintf("%s: %s", technique, scriptPath))
	it.Technique = technique
	it.ScriptPath = scriptPath
	return it
}

func describePump(a PumpAction) string {
	switch a.Op {
	case OpInit:
		return "Pump: Initialize (ZR)"
	case OpSetSpeed:
		return fmt.Sprintf("Pump: Set speed S%dR", a.Speed)
	case OpValve:
		return fmt.Sprintf("Pump: Valve to port %d (I%dR)", a.Port, a.Port)
	case OpAspirate:
		return fmt.Sprintf("Pump: Aspirate %.2f µL @ S%dR", a.VolumeUL, a.Speed)
	case OpDispense:
		return fmt.Sprintf("Pump: Dispense %.2f µL @ S%dR", a.VolumeUL, a.Speed)
	}
	return fmt.Sprintf("Pump: %s", a.Op)
}
