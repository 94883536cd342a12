package core

import "github.com/signalsfoundry/astroengine/model"

// MirrorAxis selects the reflection axis for antiscia contacts.
type MirrorAxis int

const (
	// AxisSolstitial reflects across 0° Cancer / 0° Capricorn (λ → 180−λ).
	AxisSolstitial MirrorAxis = iota
	// AxisEquinoctial reflects across 0° Aries / 0° Libra (λ → −λ).
	AxisEquinoctial
)

// AntisciaRelationship monitors contacts between the mirror image of the
// moving body's longitude and a fixed target longitude. The solstitial axis
// yields classical antiscia, the equinoctial axis contra-antiscia.
type AntisciaRelationship struct {
	axis       MirrorAxis
	candidates []Candidate
}

// NewAntisciaRelationship builds the relationship for one axis.
func NewAntisciaRelationship(axis MirrorAxis) *AntisciaRelationship {
	label := "antiscia"
	if axis == AxisEquinoctial {
		label = "contra-antiscia"
	}
	return &AntisciaRelationship{
		axis:       axis,
		candidates: []Candidate{{Label: label, Angle: 0, Signed: 0, Rank: 0}},
	}
}

// Kind implements Relationship.
func (r *AntisciaRelationship) Kind() model.Kind { return model.KindAntiscia }

// Candidates implements Relationship.
func (r *AntisciaRelationship) Candidates() []Candidate { return r.candidates }

// Offset is the signed separation between the mirrored moving longitude and
// the target longitude.
func (r *AntisciaRelationship) Offset(c Candidate, pos model.BodyPosition, target model.TargetPoint) float64 {
	mirrored := Antiscia(pos.Longitude)
	if r.axis == AxisEquinoctial {
		mirrored = ContraAntiscia(pos.Longitude)
	}
	return SignedDelta(mirrored, target.Longitude)
}

// Allow implements Relationship.
func (r *AntisciaRelationship) Allow(c Candidate, moving model.Body, target model.TargetPoint, pol *OrbPolicy) float64 {
	return pol.Allow(string(moving), target.Name, c.Label)
}
