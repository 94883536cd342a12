package core

import (
	"fmt"
	"sort"

	"github.com/signalsfoundry/astroengine/model"
)

// ChartPoints carries the chart inputs lot formulas draw from: the
// ascendant, the day/night sect, and body longitudes.
type ChartPoints struct {
	Ascendant  float64
	IsDay      bool
	Longitudes map[model.Body]float64
}

func (c ChartPoints) lon(b model.Body) (float64, error) {
	v, ok := c.Longitudes[b]
	if !ok {
		return 0, fmt.Errorf("lot formula: missing longitude for %q", b)
	}
	return v, nil
}

// LotDef is one Arabic-lot formula. Formulas reverse between day and night
// charts (sect), which is why Compute takes the whole chart.
type LotDef struct {
	Name    string
	Compute func(ChartPoints) (float64, error)
}

// lotRegistry follows the traditional hermetic lots. Fortune and Spirit are
// each other's sect reversal; Eros builds on Spirit.
var lotRegistry = map[string]LotDef{
	"fortune": {Name: "Fortune", Compute: lotFortune},
	"spirit":  {Name: "Spirit", Compute: lotSpirit},
	"eros":    {Name: "Eros", Compute: lotEros},
}

func lotFortune(c ChartPoints) (float64, error) {
	sun, err := c.lon(model.Sun)
	if err != nil {
		return 0, err
	}
	moon, err := c.lon(model.Moon)
	if err != nil {
		return 0, err
	}
	if c.IsDay {
		return Normalize(c.Ascendant + moon - sun), nil
	}
	return Normalize(c.Ascendant + sun - moon), nil
}

func lotSpirit(c ChartPoints) (float64, error) {
	// Spirit is Fortune with the luminaries swapped.
	day := c
	day.IsDay = !c.IsDay
	return lotFortune(day)
}

func lotEros(c ChartPoints) (float64, error) {
	venus, err := c.lon(model.Venus)
	if err != nil {
		return 0, err
	}
	spirit, err := lotSpirit(c)
	if err != nil {
		return 0, err
	}
	if c.IsDay {
		return Normalize(c.Ascendant + venus - spirit), nil
	}
	return Normalize(c.Ascendant + spirit - venus), nil
}

// LotNames lists the registered lot identifiers, sorted.
func LotNames() []string {
	out := make([]string, 0, len(lotRegistry))
	for name := range lotRegistry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// LotTargets computes the requested lots for a chart and returns them as
// fixed target points for scanning or static matching. Unknown lot names
// fail fast.
func LotTargets(chart ChartPoints, names []string) ([]model.TargetPoint, error) {
	out := make([]model.TargetPoint, 0, len(names))
	for _, name := range names {
		def, ok := lotRegistry[name]
		if !ok {
			return nil, fmt.Errorf("unknown lot %q (known: %v)", name, LotNames())
		}
		lon, err := def.Compute(chart)
		if err != nil {
			return nil, err
		}
		out = append(out, model.TargetPoint{Name: "lot:" + name, Longitude: lon})
	}
	return out, nil
}

// LotRelationship scans aspect contacts against computed lot longitudes.
// Geometry is identical to longitudinal aspects; only the kind and the
// policy labels differ, so it wraps the aspect candidate machinery.
type LotRelationship struct {
	inner *AspectRelationship
}

// NewLotRelationship uses the major aspect set against lot points.
func NewLotRelationship() *LotRelationship {
	return &LotRelationship{inner: NewAspectRelationship()}
}

// Kind implements Relationship.
func (r *LotRelationship) Kind() model.Kind { return model.KindLot }

// Candidates implements Relationship.
func (r *LotRelationship) Candidates() []Candidate { return r.inner.Candidates() }

// Offset implements Relationship.
func (r *LotRelationship) Offset(c Candidate, pos model.BodyPosition, target model.TargetPoint) float64 {
	return r.inner.Offset(c, pos, target)
}

// Allow implements Relationship.
func (r *LotRelationship) Allow(c Candidate, moving model.Body, target model.TargetPoint, pol *OrbPolicy) float64 {
	return pol.Allow(string(moving), target.Name, c.Label)
}
