package core

import (
	"math"
	"sort"

	"github.com/signalsfoundry/astroengine/model"
)

// ScoreInputs bundles everything severity depends on. Scoring is a pure
// function of this struct: identical inputs always produce identical
// results, bit for bit.
type ScoreInputs struct {
	Kind     model.Kind
	OrbAbs   float64
	OrbAllow float64
	Moving   model.Body
	Target   string
	Motion   model.MotionState

	// CorridorWidth widens when the source data itself is fuzzy (derived
	// events); zero means the default tight corridor.
	CorridorWidth float64

	// Conditions and Dignities are named multiplicative modifiers
	// (retrograde, combustion, rulership, ...). Values multiply into the
	// final score; 1.0 entries are no-ops.
	Conditions map[string]float64
	Dignities  map[string]float64
}

// ScoreResult is the scalar severity plus the named component breakdown
// that makes it explainable. Factors are exposed individually so tests and
// narrative layers can see why a score landed where it did.
type ScoreResult struct {
	Score float64

	Base            float64 // linear falloff reference
	PartileBoost    float64 // cosine-taper delta relative to linear
	MotionBias      float64
	CorridorFactor  float64
	ConditionFactor float64
	DignityFactor   float64

	// ConditionNames / DignityNames record which modifiers contributed, in
	// sorted order, for stable presentation.
	ConditionNames []string
	DignityNames   []string
}

const (
	applyingBias    = 1.10
	separatingBias  = 0.90
	defaultCorridor = 1.0 // degrees
)

// Score converts a geometric detection into a severity in [0, ~1.2].
//
// The taper is a raised cosine over the orb ratio: continuous across the
// whole range, boosted near exactness relative to a straight line, and
// exactly zero at or beyond the allowance (a hard cutoff, not an
// asymptote).
func Score(in ScoreInputs) ScoreResult {
	var out ScoreResult

	if in.OrbAllow <= 0 {
		return out
	}
	x := in.OrbAbs / in.OrbAllow
	if x >= 1 {
		return out
	}
	if x < 0 {
		x = 0
	}

	taper := 0.5 * (1 + math.Cos(math.Pi*x))
	out.Base = 1 - x
	out.PartileBoost = taper - out.Base

	out.MotionBias = 1.0
	switch in.Motion {
	case model.MotionApplying:
		out.MotionBias = applyingBias
	case model.MotionSeparating:
		out.MotionBias = separatingBias
	}

	out.CorridorFactor = 1.0
	if in.CorridorWidth > defaultCorridor {
		out.CorridorFactor = defaultCorridor / in.CorridorWidth
	}

	out.ConditionFactor, out.ConditionNames = factorProduct(in.Conditions)
	out.DignityFactor, out.DignityNames = factorProduct(in.Dignities)

	out.Score = taper * out.MotionBias * out.CorridorFactor * out.ConditionFactor * out.DignityFactor
	return out
}

// factorProduct multiplies named modifiers in sorted-key order so the
// product (and any float rounding inside it) is reproducible.
func factorProduct(m map[string]float64) (float64, []string) {
	if len(m) == 0 {
		return 1.0, nil
	}
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	product := 1.0
	for _, k := range names {
		product *= m[k]
	}
	return product, names
}

// UncertaintyConfidence estimates how certain a detection is, in [0,1].
// The margin between orb and allowance sets the base; a single contributing
// observer halves it, while corroboration from more independent detection
// paths restores confidence asymptotically.
func UncertaintyConfidence(orbAbs, orbAllow float64, observers int) float64 {
	if orbAllow <= 0 || orbAbs >= orbAllow {
		return 0
	}
	if orbAbs < 0 {
		orbAbs = 0
	}
	if observers < 1 {
		observers = 1
	}
	base := (orbAllow - orbAbs) / orbAllow
	corroboration := 1 - 1/(1+float64(observers))
	return base * corroboration
}
