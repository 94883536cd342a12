package ephem

import (
	"context"
	"errors"
	"time"

	"github.com/signalsfoundry/astroengine/model"
)

// ErrUnavailable means the provider backend cannot answer at all (missing
// data files, missing native library). Distinct from ErrUnsupportedBody so
// callers can tell "engine misconfigured" from "caller asked for nonsense".
var ErrUnavailable = errors.New("ephemeris backend unavailable")

// ErrUnsupportedBody means the body identifier is not recognised by this
// provider.
var ErrUnsupportedBody = errors.New("unsupported body")

// Provider is the single authoritative source of body positions. The engine
// never fabricates positions; everything it knows about the sky comes
// through this interface.
//
// Availability is resolved once at startup via Available, so downstream code
// never probes for missing backends mid-scan.
type Provider interface {
	// Available reports whether the backing data source can serve positions.
	Available() bool
	// Bodies lists the body identifiers this provider recognises.
	Bodies() []model.Body
	// Position returns the snapshot for body at the given UTC instant.
	Position(ctx context.Context, body model.Body, at time.Time) (model.BodyPosition, error)
}

// HousePositions is the house-system output of providers that can compute
// chart angles for a terrestrial observer.
type HousePositions struct {
	System    string
	Ascendant float64
	MC        float64
	Cusps     [12]float64
}

// HouseProvider is implemented by providers that can derive chart angles.
// It is optional; callers type-assert against it.
type HouseProvider interface {
	Houses(ctx context.Context, at time.Time, latitude, longitude float64, system string) (HousePositions, error)
}

// Supports reports whether the provider recognises the given body.
func Supports(p Provider, body model.Body) bool {
	for _, b := range p.Bodies() {
		if b == body {
			return true
		}
	}
	return false
}
