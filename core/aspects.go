package core

import (
	"fmt"

	"github.com/signalsfoundry/astroengine/model"
)

// aspectDef is one entry of the base aspect table. Rank doubles as the
// canonical tie-break order.
type aspectDef struct {
	label string
	angle float64
	rank  int
	minor bool
}

var aspectTable = []aspectDef{
	{"conjunction", 0, 0, false},
	{"sextile", 60, 1, false},
	{"square", 90, 2, false},
	{"trine", 120, 3, false},
	{"opposition", 180, 4, false},
	{"semisextile", 30, 5, true},
	{"semisquare", 45, 6, true},
	{"quintile", 72, 7, true},
	{"sesquisquare", 135, 8, true},
	{"biquintile", 144, 9, true},
	{"quincunx", 150, 10, true},
}

// AspectOption customises the candidate set of an aspect relationship.
type AspectOption func(*aspectConfig)

type aspectConfig struct {
	minors    bool
	harmonics []int
}

// WithMinorAspects includes the minor aspect table (semisextile,
// semisquare, quintile, sesquisquare, biquintile, quincunx).
func WithMinorAspects() AspectOption {
	return func(c *aspectConfig) { c.minors = true }
}

// WithHarmonics adds the full angle family 360/h·k for each harmonic
// number h. Angles that collide with a named aspect keep the named label.
func WithHarmonics(hs ...int) AspectOption {
	return func(c *aspectConfig) { c.harmonics = append(c.harmonics, hs...) }
}

// AspectRelationship monitors longitudinal aspect contacts between a moving
// body and a fixed target longitude.
type AspectRelationship struct {
	candidates []Candidate
}

// NewAspectRelationship builds the major-aspect relationship, optionally
// extended with minors and harmonic families.
func NewAspectRelationship(opts ...AspectOption) *AspectRelationship {
	var cfg aspectConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	defs := make([]aspectDef, 0, len(aspectTable))
	seen := map[float64]bool{}
	for _, d := range aspectTable {
		if d.minor && !cfg.minors {
			continue
		}
		defs = append(defs, d)
		seen[d.angle] = true
	}
	nextRank := len(aspectTable)
	for _, h := range cfg.harmonics {
		if h < 2 {
			continue
		}
		for k := 1; k <= h/2; k++ {
			angle := Normalize(360.0 / float64(h) * float64(k))
			if angle > 180 {
				angle = 360 - angle
			}
			if seen[angle] {
				continue
			}
			seen[angle] = true
			defs = append(defs, aspectDef{
				label: fmt.Sprintf("harmonic-%d-%d", h, k),
				angle: angle,
				rank:  nextRank,
			})
			nextRank++
		}
	}

	return &AspectRelationship{candidates: expandSigned(defs)}
}

// expandSigned turns each unsigned aspect angle into its signed approach
// sides. 0° and 180° have a single side; everything else has two.
func expandSigned(defs []aspectDef) []Candidate {
	out := make([]Candidate, 0, 2*len(defs))
	for _, d := range defs {
		out = append(out, Candidate{Label: d.label, Angle: d.angle, Signed: d.angle, Rank: d.rank})
		if d.angle != 0 && d.angle != 180 {
			out = append(out, Candidate{Label: d.label, Angle: d.angle, Signed: -d.angle, Rank: d.rank})
		}
	}
	return out
}

// Kind implements Relationship.
func (r *AspectRelationship) Kind() model.Kind { return model.KindAspect }

// Candidates implements Relationship.
func (r *AspectRelationship) Candidates() []Candidate { return r.candidates }

// Offset measures how far the signed separation moving−target sits from the
// candidate's exact signed angle. Zero at the aspect's exact instant.
func (r *AspectRelationship) Offset(c Candidate, pos model.BodyPosition, target model.TargetPoint) float64 {
	delta := SignedDelta(pos.Longitude, target.Longitude)
	return SignedDelta(delta, c.Signed)
}

// Allow implements Relationship via the policy chain.
func (r *AspectRelationship) Allow(c Candidate, moving model.Body, target model.TargetPoint, pol *OrbPolicy) float64 {
	return pol.Allow(string(moving), target.Name, c.Label)
}
