package core

import "errors"

// Validation errors surfaced before any sampling begins. Partial failures
// during a running scan are reported per body in the ScanReport instead.
var (
	// ErrUnknownProfile is returned for an accuracy profile name that has no
	// preset. Selection never silently falls back.
	ErrUnknownProfile = errors.New("unknown accuracy profile")

	// ErrInvalidWindow is returned when a scan window's end is not after its
	// start.
	ErrInvalidWindow = errors.New("invalid scan window: end must be after start")

	// ErrUnsupportedRelationship is returned for a relationship kind the
	// engine does not recognise.
	ErrUnsupportedRelationship = errors.New("unsupported relationship kind")

	// ErrUnsupportedBody is returned when a requested body is not served by
	// the configured ephemeris provider.
	ErrUnsupportedBody = errors.New("unsupported body")
)
