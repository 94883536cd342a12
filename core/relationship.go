package core

import (
	"fmt"
	"sort"

	"github.com/signalsfoundry/astroengine/model"
)

// Candidate is one exact configuration a relationship can produce: a target
// angle with its label and canonical rank. Angles with two approach sides
// (e.g. a trine at +120° and −120° of signed separation) appear as two
// candidates sharing Label/Angle/Rank.
type Candidate struct {
	Label string
	Angle float64 // canonical unsigned angle; 0 for parallels and mirrors
	// Signed is the signed separation at which this candidate is exact.
	Signed float64
	// Rank orders labels canonically for tie-breaking: conjunction before
	// sextile before square, and so on; minors after majors.
	Rank int
}

// Relationship is the closed capability interface shared by the matcher
// family: it defines what "exact" means, how far off a snapshot is, and
// which orb allowance applies. Implementations are immutable and safe for
// concurrent scans.
type Relationship interface {
	Kind() model.Kind
	Candidates() []Candidate
	// Offset returns the signed offset in degrees from the candidate's exact
	// configuration; it crosses zero at the event instant.
	Offset(c Candidate, pos model.BodyPosition, target model.TargetPoint) float64
	// Allow resolves the candidate's orb allowance from the policy.
	Allow(c Candidate, moving model.Body, target model.TargetPoint, pol *OrbPolicy) float64
}

// NewRelationship builds the relationship implementation for a kind. The
// set is closed: unknown kinds fail fast, before any sampling.
func NewRelationship(kind model.Kind) (Relationship, error) {
	switch kind {
	case model.KindAspect:
		return NewAspectRelationship(), nil
	case model.KindDeclination:
		return NewDeclinationRelationship(), nil
	case model.KindAntiscia:
		return NewAntisciaRelationship(AxisSolstitial), nil
	case model.KindLot:
		return NewLotRelationship(), nil
	case model.KindStar:
		return NewStarRelationship(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedRelationship, kind)
	}
}

// BestMatch evaluates a static pair (no time refinement) and returns the
// in-orb candidate with the smallest residual orb. Ties break by canonical
// rank. The second return is false when nothing is in orb.
func BestMatch(rel Relationship, pos model.BodyPosition, target model.TargetPoint, pol *OrbPolicy) (model.Event, bool) {
	var best model.Event
	bestRank := 0
	found := false
	for _, c := range rel.Candidates() {
		orb := absf(rel.Offset(c, pos, target))
		allow := rel.Allow(c, pos.Body, target, pol)
		if orb > allow {
			continue
		}
		if !found || orb < best.Orb || (orb == best.Orb && c.Rank < bestRank) {
			best = model.Event{
				Timestamp:   pos.At,
				Moving:      pos.Body,
				Target:      target.Name,
				Kind:        rel.Kind(),
				Label:       c.Label,
				Angle:       c.Angle,
				Orb:         orb,
				OrbAllow:    allow,
				Longitude:   pos.Longitude,
				Declination: pos.Declination,
			}
			bestRank = c.Rank
			found = true
		}
	}
	return best, found
}

// MatchGrid evaluates every (moving, target) pair of a static chart
// comparison, the synastry workhorse. Output ordering is deterministic:
// lexical by moving body, then by target name, regardless of input order.
func MatchGrid(rel Relationship, positions []model.BodyPosition, targets []model.TargetPoint, pol *OrbPolicy) []model.Event {
	events := make([]model.Event, 0, len(positions))
	for _, pos := range positions {
		for _, tgt := range targets {
			if ev, ok := BestMatch(rel, pos, tgt, pol); ok {
				events = append(events, ev)
			}
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Moving != events[j].Moving {
			return events[i].Moving < events[j].Moving
		}
		return events[i].Target < events[j].Target
	})
	return events
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
