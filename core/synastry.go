package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/signalsfoundry/astroengine/internal/cache"
	"github.com/signalsfoundry/astroengine/model"
)

// SynastryService serves pairwise relationship grids through the layered
// cache: a given (positions, targets, policy, kind) signature is computed
// at most once per cache lifetime, and concurrent identical requests share
// one computation.
type SynastryService struct {
	Cache  *cache.Cache
	Policy *OrbPolicy
}

// GridRequest is one synastry comparison.
type GridRequest struct {
	Kind      model.Kind
	Positions []model.BodyPosition
	Targets   []model.TargetPoint

	// PolicyOverride merges over the service policy for this request only.
	PolicyOverride *OrbPolicy
}

// canonical payload shape: only the fields that influence the result, with
// angle fields named so canonicalisation wraps them.
type gridPayload struct {
	Kind    model.Kind   `json:"kind"`
	Moving  []gridMoving `json:"moving"`
	Targets []gridTarget `json:"targets"`
	Policy  *OrbPolicy   `json:"policy,omitempty"`
}

type gridMoving struct {
	Body        model.Body `json:"body"`
	Longitude   float64    `json:"longitude"`
	Declination float64    `json:"declination"`
}

type gridTarget struct {
	Name        string  `json:"name"`
	Longitude   float64 `json:"longitude"`
	Declination float64 `json:"declination"`
}

// Grid computes (or recalls) the match grid for the request.
func (s *SynastryService) Grid(ctx context.Context, req GridRequest) ([]model.Event, error) {
	rel, err := NewRelationship(req.Kind)
	if err != nil {
		return nil, err
	}
	pol := s.Policy
	if req.PolicyOverride != nil {
		pol = pol.Merge(req.PolicyOverride)
	}

	if s.Cache == nil {
		return MatchGrid(rel, req.Positions, req.Targets, pol), nil
	}

	key, err := cache.CanonicalKey(s.payload(req, pol))
	if err != nil {
		return nil, err
	}
	raw, err := s.Cache.GetOrCompute(ctx, "synastry:"+key, func(ctx context.Context) ([]byte, error) {
		events := MatchGrid(rel, req.Positions, req.Targets, pol)
		return json.Marshal(events)
	})
	if err != nil {
		return nil, err
	}
	var events []model.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("synastry grid: corrupt cache entry: %w", err)
	}
	return events, nil
}

func (s *SynastryService) payload(req GridRequest, pol *OrbPolicy) gridPayload {
	p := gridPayload{Kind: req.Kind, Policy: pol}
	for _, pos := range req.Positions {
		p.Moving = append(p.Moving, gridMoving{
			Body:        pos.Body,
			Longitude:   pos.Longitude,
			Declination: pos.Declination,
		})
	}
	for _, tgt := range req.Targets {
		p.Targets = append(p.Targets, gridTarget{
			Name:        tgt.Name,
			Longitude:   tgt.Longitude,
			Declination: tgt.Declination,
		})
	}
	return p
}
