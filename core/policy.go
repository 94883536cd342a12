package core

import (
	"fmt"
	"strings"
)

// DefaultOrbFloor is the last-resort orb allowance when neither the policy
// nor its defaults cover a lookup.
const DefaultOrbFloor = 3.0

// OrbPolicy maps bodies and relationship labels to maximum allowed orbs in
// degrees. Loaded once and treated as read-only; per-request overrides are
// applied by Merge, which never mutates the base.
//
// Lookup precedence, most specific first:
//
//	Pairs["moving|target|label"] → Bodies["moving|label"] →
//	Labels[label] → Default → DefaultOrbFloor
type OrbPolicy struct {
	Default float64            `json:"default"`
	Labels  map[string]float64 `json:"labels"` // "conjunction": 8.0, "parallel": 1.0
	Bodies  map[string]float64 `json:"bodies"` // "moon|conjunction": 10.0
	Pairs   map[string]float64 `json:"pairs"`  // "sun|moon|conjunction": 12.0
}

// PairKey builds the canonical Pairs lookup key.
func PairKey(moving, target, label string) string {
	return strings.ToLower(moving) + "|" + strings.ToLower(target) + "|" + strings.ToLower(label)
}

// BodyKey builds the canonical Bodies lookup key.
func BodyKey(moving, label string) string {
	return strings.ToLower(moving) + "|" + strings.ToLower(label)
}

// Allow resolves the orb allowance for a (moving, target, label) triple.
// A nil policy resolves straight to the floor.
func (p *OrbPolicy) Allow(moving, target, label string) float64 {
	if v, ok := p.lookup(moving, target, label); ok {
		return v
	}
	if p != nil && p.Default > 0 {
		return p.Default
	}
	return DefaultOrbFloor
}

// lookup walks the precedence tiers for one or more labels without falling
// through to the default. Within each tier the labels are tried in the
// order given, so a relationship can prefer its own label over a generic
// one at equal specificity.
func (p *OrbPolicy) lookup(moving, target string, labels ...string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	for _, l := range labels {
		if v, ok := p.Pairs[PairKey(moving, target, l)]; ok {
			return v, true
		}
	}
	for _, l := range labels {
		if v, ok := p.Bodies[BodyKey(moving, l)]; ok {
			return v, true
		}
	}
	for _, l := range labels {
		if v, ok := p.Labels[strings.ToLower(l)]; ok {
			return v, true
		}
	}
	return 0, false
}

// Merge deep-copies the base and overlays the override's entries on top.
// Neither input is mutated; zero values in the override are ignored so a
// partial override document only touches what it names.
func (p *OrbPolicy) Merge(override *OrbPolicy) *OrbPolicy {
	out := &OrbPolicy{
		Labels: map[string]float64{},
		Bodies: map[string]float64{},
		Pairs:  map[string]float64{},
	}
	if p != nil {
		out.Default = p.Default
		for k, v := range p.Labels {
			out.Labels[k] = v
		}
		for k, v := range p.Bodies {
			out.Bodies[k] = v
		}
		for k, v := range p.Pairs {
			out.Pairs[k] = v
		}
	}
	if override != nil {
		if override.Default > 0 {
			out.Default = override.Default
		}
		for k, v := range override.Labels {
			out.Labels[strings.ToLower(k)] = v
		}
		for k, v := range override.Bodies {
			out.Bodies[strings.ToLower(k)] = v
		}
		for k, v := range override.Pairs {
			out.Pairs[strings.ToLower(k)] = v
		}
	}
	return out
}

// Validate rejects negative allowances, which would make every lookup miss.
func (p *OrbPolicy) Validate() error {
	if p == nil {
		return nil
	}
	check := func(where, k string, v float64) error {
		if v < 0 {
			return fmt.Errorf("orb policy: %s[%q] is negative (%g)", where, k, v)
		}
		return nil
	}
	if p.Default < 0 {
		return fmt.Errorf("orb policy: default is negative (%g)", p.Default)
	}
	for k, v := range p.Labels {
		if err := check("labels", k, v); err != nil {
			return err
		}
	}
	for k, v := range p.Bodies {
		if err := check("bodies", k, v); err != nil {
			return err
		}
	}
	for k, v := range p.Pairs {
		if err := check("pairs", k, v); err != nil {
			return err
		}
	}
	return nil
}
