package core

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/signalsfoundry/astroengine/model"
)

// FixedStar is one catalog entry. Longitudes are tropical ecliptic degrees
// near epoch J2020; right ascension and declination feed the paran solver.
// Fixed-star precession over the engine's useful lifetime stays well inside
// typical star orbs, so the catalog is a constant table.
type FixedStar struct {
	Name           string
	Longitude      float64
	RightAscension float64
	Declination    float64
	Magnitude      float64
}

var starCatalog = []FixedStar{
	{"Algol", 56.17, 47.04, 40.96, 2.12},
	{"Alcyone", 60.00, 56.87, 24.11, 2.87},
	{"Aldebaran", 69.79, 68.98, 16.51, 0.85},
	{"Rigel", 76.83, 78.63, -8.20, 0.13},
	{"Capella", 81.89, 79.17, 46.00, 0.08},
	{"Betelgeuse", 88.75, 88.79, 7.41, 0.50},
	{"Sirius", 104.08, 101.29, -16.72, -1.46},
	{"Procyon", 105.80, 114.83, 5.22, 0.34},
	{"Regulus", 149.83, 152.09, 11.97, 1.35},
	{"Spica", 203.84, 201.30, -11.16, 0.97},
	{"Arcturus", 204.22, 213.92, 19.18, -0.05},
	{"Antares", 249.76, 247.35, -26.43, 0.96},
	{"Vega", 285.32, 279.23, 38.78, 0.03},
	{"Altair", 301.78, 297.70, 8.87, 0.77},
	{"Fomalhaut", 333.87, 344.41, -29.62, 1.16},
}

// Stars returns the full catalog, sorted by longitude.
func Stars() []FixedStar {
	out := make([]FixedStar, len(starCatalog))
	copy(out, starCatalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Longitude < out[j].Longitude })
	return out
}

// StarByName looks a star up case-insensitively.
func StarByName(name string) (FixedStar, bool) {
	for _, s := range starCatalog {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return FixedStar{}, false
}

// StarHit is one catalog star within orb of a probed longitude.
type StarHit struct {
	Star  FixedStar
	Delta float64 // signed degrees, probe − star
}

// StarHits returns every star within orb of the given longitude, closest
// first; ties break alphabetically so results are reproducible.
func StarHits(longitude, orb float64) []StarHit {
	var hits []StarHit
	for _, s := range starCatalog {
		d := SignedDelta(longitude, s.Longitude)
		if math.Abs(d) <= orb {
			hits = append(hits, StarHit{Star: s, Delta: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		ai, aj := math.Abs(hits[i].Delta), math.Abs(hits[j].Delta)
		if ai != aj {
			return ai < aj
		}
		return hits[i].Star.Name < hits[j].Star.Name
	})
	return hits
}

// StarTargets exposes catalog stars as fixed target points for time scans
// (e.g. "when does transiting Mars conjoin Regulus"). An empty name list
// selects the whole catalog. Unknown star names fail fast.
func StarTargets(names ...string) ([]model.TargetPoint, error) {
	stars := Stars()
	if len(names) > 0 {
		selected := make([]FixedStar, 0, len(names))
		for _, name := range names {
			s, ok := StarByName(name)
			if !ok {
				return nil, fmt.Errorf("unknown star %q", name)
			}
			selected = append(selected, s)
		}
		stars = selected
	}
	out := make([]model.TargetPoint, 0, len(stars))
	for _, s := range stars {
		out = append(out, model.TargetPoint{
			Name:        "star:" + strings.ToLower(s.Name),
			Longitude:   s.Longitude,
			Declination: s.Declination,
		})
	}
	return out, nil
}

// StarRelationship scans conjunction contacts between a moving body and a
// fixed star's longitude.
type StarRelationship struct {
	candidates []Candidate
}

// NewStarRelationship monitors conjunctions only; traditional practice
// credits fixed stars by bodily conjunction rather than full aspect sets.
func NewStarRelationship() *StarRelationship {
	return &StarRelationship{candidates: []Candidate{
		{Label: "conjunction", Angle: 0, Signed: 0, Rank: 0},
	}}
}

// Kind implements Relationship.
func (r *StarRelationship) Kind() model.Kind { return model.KindStar }

// Candidates implements Relationship.
func (r *StarRelationship) Candidates() []Candidate { return r.candidates }

// Offset implements Relationship.
func (r *StarRelationship) Offset(c Candidate, pos model.BodyPosition, target model.TargetPoint) float64 {
	return SignedDelta(pos.Longitude, target.Longitude)
}

// Allow implements Relationship. Star orbs default tighter than planetary
// conjunctions; within each policy tier the "star" label is tried before
// the conjunction label, but a more specific pair or body entry for either
// label still wins over a less specific one.
func (r *StarRelationship) Allow(c Candidate, moving model.Body, target model.TargetPoint, pol *OrbPolicy) float64 {
	if v, ok := pol.lookup(string(moving), target.Name, "star", c.Label); ok {
		return v
	}
	if pol != nil && pol.Default > 0 {
		return pol.Default
	}
	return DefaultOrbFloor
}
