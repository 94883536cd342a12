package core

import (
	"strings"
	"testing"
)

const testPolicyDoc = `// Orb policy for the engine tests.
{
  "default": 3.0,
  "labels": {
    "conjunction": 8.0,
    "parallel": 1.0, // declination runs tight
  },
  "bodies": {
    "Sun|conjunction": 10.0,
  },
  "pairs": {
    "Sun|Moon|conjunction": 12.0,
  },
}`

func TestLoadOrbPolicy_JWCC(t *testing.T) {
	pol, err := LoadOrbPolicy(strings.NewReader(testPolicyDoc))
	if err != nil {
		t.Fatalf("LoadOrbPolicy: %v", err)
	}
	if pol.Default != 3.0 {
		t.Fatalf("default = %g, want 3.0", pol.Default)
	}
	// Keys are folded to lower case on load.
	if got := pol.Bodies["sun|conjunction"]; got != 10.0 {
		t.Fatalf("bodies lookup = %g, want 10.0", got)
	}
}

func TestLoadOrbPolicy_RejectsNegative(t *testing.T) {
	doc := `{"default": -1.0}`
	if _, err := LoadOrbPolicy(strings.NewReader(doc)); err == nil {
		t.Fatalf("negative default accepted")
	}
}

func TestOrbPolicy_LookupPrecedence(t *testing.T) {
	pol, err := LoadOrbPolicy(strings.NewReader(testPolicyDoc))
	if err != nil {
		t.Fatalf("LoadOrbPolicy: %v", err)
	}

	// Pair entry beats body entry beats label entry beats default.
	if got := pol.Allow("sun", "moon", "conjunction"); got != 12.0 {
		t.Fatalf("pair lookup = %g, want 12.0", got)
	}
	if got := pol.Allow("sun", "natal:venus", "conjunction"); got != 10.0 {
		t.Fatalf("body lookup = %g, want 10.0", got)
	}
	if got := pol.Allow("mars", "natal:venus", "conjunction"); got != 8.0 {
		t.Fatalf("label lookup = %g, want 8.0", got)
	}
	if got := pol.Allow("mars", "natal:venus", "trine"); got != 3.0 {
		t.Fatalf("default lookup = %g, want 3.0", got)
	}
}

func TestOrbPolicy_NilAndEmptyFloor(t *testing.T) {
	var nilPol *OrbPolicy
	if got := nilPol.Allow("mars", "x", "trine"); got != DefaultOrbFloor {
		t.Fatalf("nil policy = %g, want floor %g", got, DefaultOrbFloor)
	}
	empty := &OrbPolicy{}
	if got := empty.Allow("mars", "x", "trine"); got != DefaultOrbFloor {
		t.Fatalf("empty policy = %g, want floor %g", got, DefaultOrbFloor)
	}
}

func TestOrbPolicy_MergeDoesNotMutateBase(t *testing.T) {
	base := &OrbPolicy{
		Default: 3.0,
		Labels:  map[string]float64{"conjunction": 8.0, "trine": 7.0},
	}
	override := &OrbPolicy{
		Labels: map[string]float64{"conjunction": 5.0},
		Pairs:  map[string]float64{"sun|moon|conjunction": 12.0},
	}

	merged := base.Merge(override)

	if merged.Labels["conjunction"] != 5.0 {
		t.Fatalf("merged conjunction = %g, want override 5.0", merged.Labels["conjunction"])
	}
	if merged.Labels["trine"] != 7.0 {
		t.Fatalf("merged trine = %g, want base 7.0", merged.Labels["trine"])
	}
	if merged.Pairs["sun|moon|conjunction"] != 12.0 {
		t.Fatalf("merged pair missing")
	}

	if base.Labels["conjunction"] != 8.0 {
		t.Fatalf("merge mutated the base policy: conjunction = %g", base.Labels["conjunction"])
	}
	if len(base.Pairs) != 0 {
		t.Fatalf("merge grew the base policy's pairs: %v", base.Pairs)
	}
}

func TestOrbPolicy_MergeNilReceiver(t *testing.T) {
	var nilPol *OrbPolicy
	merged := nilPol.Merge(&OrbPolicy{Default: 5})
	if merged.Default != 5 {
		t.Fatalf("merge over nil base = %g, want 5", merged.Default)
	}
}
