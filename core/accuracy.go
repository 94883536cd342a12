package core

import (
	"fmt"
	"time"
)

// AccuracyProfile is a named precision/performance preset. Profiles are
// immutable values: selected once per scan invocation and shared freely
// between concurrent scans.
type AccuracyProfile struct {
	Name string

	// ToleranceArcsec is the refinement target: refinement stops once the
	// monitored offset magnitude drops below this many arcseconds.
	ToleranceArcsec float64

	// MaxIterations caps bisection steps per bracket.
	MaxIterations int

	// CoarseStep is the baseline sampling cadence across the scan window.
	CoarseStep time.Duration
}

// ToleranceDeg returns the refinement tolerance in degrees.
func (p AccuracyProfile) ToleranceDeg() float64 {
	return p.ToleranceArcsec / 3600.0
}

// TimeTolerance is the interval width below which further halving cannot
// improve the estimate meaningfully; bisection stops there even if the
// offset tolerance was not reached (near-stationary bodies).
func (p AccuracyProfile) TimeTolerance() time.Duration {
	// One bisection step per allowed iteration from the coarse step.
	d := p.CoarseStep
	for i := 0; i < p.MaxIterations && d > time.Second; i++ {
		d /= 2
	}
	if d < time.Second {
		d = time.Second
	}
	return d
}

var profiles = map[string]AccuracyProfile{
	"fast":    {Name: "fast", ToleranceArcsec: 0.5, MaxIterations: 4, CoarseStep: 120 * time.Second},
	"default": {Name: "default", ToleranceArcsec: 0.2, MaxIterations: 8, CoarseStep: 60 * time.Second},
	"high":    {Name: "high", ToleranceArcsec: 0.05, MaxIterations: 16, CoarseStep: 30 * time.Second},
}

// ProfileByName resolves a preset by name. Unknown names are an error,
// never a fallback.
func ProfileByName(name string) (AccuracyProfile, error) {
	p, ok := profiles[name]
	if !ok {
		return AccuracyProfile{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p, nil
}

// ProfileNames lists the available presets, for CLI help and validation
// messages.
func ProfileNames() []string {
	return []string{"fast", "default", "high"}
}
