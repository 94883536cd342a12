package core

import "github.com/signalsfoundry/astroengine/model"

// DeclinationRelationship monitors declination parallels (equal declination)
// and contraparallels (equal and opposite declination). Both are exact at
// offset zero: parallel when the declination difference vanishes,
// contraparallel when the sum does.
type DeclinationRelationship struct {
	candidates []Candidate
}

// NewDeclinationRelationship covers both parallel and contraparallel.
func NewDeclinationRelationship() *DeclinationRelationship {
	return &DeclinationRelationship{candidates: []Candidate{
		{Label: "parallel", Angle: 0, Signed: 0, Rank: 0},
		{Label: "contraparallel", Angle: 0, Signed: 0, Rank: 1},
	}}
}

// Kind implements Relationship.
func (r *DeclinationRelationship) Kind() model.Kind { return model.KindDeclination }

// Candidates implements Relationship.
func (r *DeclinationRelationship) Candidates() []Candidate { return r.candidates }

// Offset returns declination difference for parallels, declination sum for
// contraparallels.
func (r *DeclinationRelationship) Offset(c Candidate, pos model.BodyPosition, target model.TargetPoint) float64 {
	if c.Label == "contraparallel" {
		return pos.Declination + target.Declination
	}
	return pos.Declination - target.Declination
}

// Allow implements Relationship. Declination contacts conventionally use
// much tighter orbs than longitudinal aspects, so the label lookup matters;
// the shared floor still backstops an empty policy.
func (r *DeclinationRelationship) Allow(c Candidate, moving model.Body, target model.TargetPoint, pol *OrbPolicy) float64 {
	return pol.Allow(string(moving), target.Name, c.Label)
}
