package model

import "time"

// Kind classifies the monitored relationship that produced an event.
type Kind string

const (
	KindAspect      Kind = "aspect"
	KindDeclination Kind = "declination"
	KindAntiscia    Kind = "antiscia"
	KindLot         Kind = "lot"
	KindParan       Kind = "paran"
	KindStar        Kind = "star"
)

// MotionState describes whether the offset was shrinking or growing at the
// refined instant.
type MotionState string

const (
	MotionApplying   MotionState = "applying"
	MotionSeparating MotionState = "separating"
	MotionStationary MotionState = "stationary"
)

// Event is one detected and refined crossing. Immutable after creation.
// Within a single body's scan events are ordered by ascending Timestamp.
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	Moving    Body        `json:"moving"`
	Target    string      `json:"target"`
	Kind      Kind        `json:"kind"`
	Label     string      `json:"label"` // "conjunction", "parallel", "antiscia", ...
	Angle     float64     `json:"angle"` // exact target angle; 0 for parallels and mirrors
	Orb       float64     `json:"orb"`   // absolute degrees off exact
	OrbAllow  float64     `json:"orb_allow,omitempty"`
	Motion    MotionState `json:"motion,omitempty"`

	Longitude   float64 `json:"longitude,omitempty"`   // moving body readout at the event
	Declination float64 `json:"declination,omitempty"` // moving body readout at the event

	Score float64 `json:"score,omitempty"`

	// Exhausted marks events whose refinement hit the iteration ceiling
	// before reaching tolerance; Orb then carries the residual.
	Exhausted bool `json:"exhausted,omitempty"`

	Meta map[string]string `json:"meta,omitempty"`
}

// BodySkip records a body dropped from a scan and why, so partial failures
// stay visible to the caller instead of silently shrinking the result.
type BodySkip struct {
	Body   Body   `json:"body"`
	Reason string `json:"reason"`
}

// ScanReport is the merged outcome of a multi-body scan: events across all
// surviving bodies in chronological order, plus the skip list.
type ScanReport struct {
	ScanID  string     `json:"scan_id"`
	Events  []Event    `json:"events"`
	Skipped []BodySkip `json:"skipped,omitempty"`
}
