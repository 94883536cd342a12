package core

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tailscale/hujson"
)

// LoadOrbPolicy reads an orb policy document from r. Documents are JWCC
// ("JSON with commas and comments"), so operator-maintained policy files can
// carry // and /* */ annotations; they are standardised away before decoding.
func LoadOrbPolicy(r io.Reader) (*OrbPolicy, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("LoadOrbPolicy: read failed: %w", err)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("LoadOrbPolicy: bad document: %w", err)
	}
	var pol OrbPolicy
	if err := json.Unmarshal(std, &pol); err != nil {
		return nil, fmt.Errorf("LoadOrbPolicy: decode failed: %w", err)
	}
	pol.lowerKeys()
	if err := pol.Validate(); err != nil {
		return nil, err
	}
	return &pol, nil
}

func (p *OrbPolicy) lowerKeys() {
	p.Labels = lowered(p.Labels)
	p.Bodies = lowered(p.Bodies)
	p.Pairs = lowered(p.Pairs)
}

func lowered(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
