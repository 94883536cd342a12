package core

import (
	"testing"

	"github.com/signalsfoundry/astroengine/model"
)

func TestAntiscia_ExactContact(t *testing.T) {
	rel := NewAntisciaRelationship(AxisSolstitial)
	pol := &OrbPolicy{Labels: map[string]float64{"antiscia": 2.0}}

	// 30° reflects to 150° across the solstitial axis.
	pos := model.BodyPosition{Body: model.Mars, Longitude: 30}
	target := model.TargetPoint{Name: "natal:sun", Longitude: 150}

	ev, ok := BestMatch(rel, pos, target, pol)
	if !ok {
		t.Fatalf("exact antiscia contact missed")
	}
	if ev.Label != "antiscia" || !almostEqual(ev.Orb, 0, 1e-9) {
		t.Fatalf("got %q orb %g, want antiscia at 0", ev.Label, ev.Orb)
	}
}

func TestContraAntiscia_ExactContact(t *testing.T) {
	rel := NewAntisciaRelationship(AxisEquinoctial)
	pol := &OrbPolicy{Labels: map[string]float64{"contra-antiscia": 2.0}}

	// 10° reflects to 350° across the equinoctial axis.
	pos := model.BodyPosition{Body: model.Mars, Longitude: 10}
	target := model.TargetPoint{Name: "natal:sun", Longitude: 350}

	ev, ok := BestMatch(rel, pos, target, pol)
	if !ok {
		t.Fatalf("exact contra-antiscia contact missed")
	}
	if ev.Label != "contra-antiscia" {
		t.Fatalf("label = %q, want contra-antiscia", ev.Label)
	}
}

func TestAntiscia_OffsetSymmetry(t *testing.T) {
	// Mirroring is an involution, so the offset of the mirrored point against
	// the original longitude equals the offset of the original against the
	// mirrored target.
	rel := NewAntisciaRelationship(AxisSolstitial)
	c := rel.Candidates()[0]
	for lon := 0.0; lon < 360; lon += 23.7 {
		a := rel.Offset(c, model.BodyPosition{Longitude: lon}, model.TargetPoint{Longitude: Antiscia(lon)})
		if !almostEqual(a, 0, 1e-9) {
			t.Fatalf("offset against own mirror at %g = %g, want 0", lon, a)
		}
	}
}
