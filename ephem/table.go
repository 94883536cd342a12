package ephem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/signalsfoundry/astroengine/model"
)

// TableProvider serves positions by linear interpolation over tabulated
// samples, one sorted series per body. It is deterministic and has no
// external dependencies, which makes it the provider of choice for tests,
// offline runs, and replaying exported ephemeris spans.
//
// Longitudes are interpolated on the circle: a series crossing 360°→0°
// between two samples interpolates through the wrap, not backwards through
// the whole zodiac.
type TableProvider struct {
	series map[model.Body][]model.BodyPosition
}

// NewTableProvider builds a provider from raw samples. Samples are grouped
// by body and sorted by time; at least two samples per body are required
// for that body to be served.
func NewTableProvider(samples []model.BodyPosition) *TableProvider {
	series := make(map[model.Body][]model.BodyPosition)
	for _, s := range samples {
		s.At = s.At.UTC()
		series[s.Body] = append(series[s.Body], s)
	}
	for body, list := range series {
		sort.Slice(list, func(i, j int) bool { return list[i].At.Before(list[j].At) })
		series[body] = list
	}
	return &TableProvider{series: series}
}

// internal JSON wire shape, kept unexported so the format can evolve.
type tableDocJSON struct {
	Samples []sampleJSON `json:"samples"`
}

type sampleJSON struct {
	Body           string  `json:"body"`
	At             string  `json:"at"` // RFC 3339 UTC
	Longitude      float64 `json:"longitude"`
	Latitude       float64 `json:"latitude"`
	Distance       float64 `json:"distance"`
	SpeedLongitude float64 `json:"speed_longitude"`
	Declination    float64 `json:"declination"`
	SpeedDecl      float64 `json:"speed_declination"`
	RightAscension float64 `json:"right_ascension"`
}

// LoadTable reads a JSON ephemeris table from r and constructs a provider.
func LoadTable(r io.Reader) (*TableProvider, error) {
	var doc tableDocJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("LoadTable: decode failed: %w", err)
	}
	samples := make([]model.BodyPosition, 0, len(doc.Samples))
	for _, s := range doc.Samples {
		at, err := time.Parse(time.RFC3339, s.At)
		if err != nil {
			return nil, fmt.Errorf("LoadTable: sample for %q has bad timestamp %q: %w", s.Body, s.At, err)
		}
		samples = append(samples, model.BodyPosition{
			Body:             model.Body(s.Body),
			At:               at.UTC(),
			Longitude:        wrap360(s.Longitude),
			Latitude:         s.Latitude,
			Distance:         s.Distance,
			SpeedLongitude:   s.SpeedLongitude,
			Declination:      s.Declination,
			SpeedDeclination: s.SpeedDecl,
			RightAscension:   wrap360(s.RightAscension),
		})
	}
	return NewTableProvider(samples), nil
}

// Available reports whether any body has enough samples to interpolate.
func (p *TableProvider) Available() bool {
	for _, list := range p.series {
		if len(list) >= 2 {
			return true
		}
	}
	return false
}

// Bodies lists bodies with a usable series.
func (p *TableProvider) Bodies() []model.Body {
	out := make([]model.Body, 0, len(p.series))
	for body, list := range p.series {
		if len(list) >= 2 {
			out = append(out, body)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Position interpolates the body's state at the given instant. Instants
// outside the tabulated span are an error rather than an extrapolation.
func (p *TableProvider) Position(ctx context.Context, body model.Body, at time.Time) (model.BodyPosition, error) {
	if err := ctx.Err(); err != nil {
		return model.BodyPosition{}, err
	}
	list, ok := p.series[body]
	if !ok {
		return model.BodyPosition{}, fmt.Errorf("table provider: %q: %w", body, ErrUnsupportedBody)
	}
	if len(list) < 2 {
		return model.BodyPosition{}, fmt.Errorf("table provider: %q has %d samples: %w", body, len(list), ErrUnavailable)
	}
	at = at.UTC()
	first, last := list[0].At, list[len(list)-1].At
	if at.Before(first) || at.After(last) {
		return model.BodyPosition{}, fmt.Errorf("table provider: %s outside tabulated span [%s, %s]: %w",
			at.Format(time.RFC3339), first.Format(time.RFC3339), last.Format(time.RFC3339), ErrUnavailable)
	}

	// Find the bracketing pair.
	idx := sort.Search(len(list), func(i int) bool { return !list[i].At.Before(at) })
	if idx == 0 {
		return list[0], nil
	}
	a, b := list[idx-1], list[idx]
	span := b.At.Sub(a.At).Seconds()
	if span == 0 {
		return a, nil
	}
	f := at.Sub(a.At).Seconds() / span

	out := model.BodyPosition{Body: body, At: at}
	out.Longitude = lerpCircular(a.Longitude, b.Longitude, f)
	out.Latitude = lerp(a.Latitude, b.Latitude, f)
	out.Distance = lerp(a.Distance, b.Distance, f)
	out.SpeedLongitude = lerp(a.SpeedLongitude, b.SpeedLongitude, f)
	out.SpeedLatitude = lerp(a.SpeedLatitude, b.SpeedLatitude, f)
	out.SpeedDistance = lerp(a.SpeedDistance, b.SpeedDistance, f)
	out.Declination = lerp(a.Declination, b.Declination, f)
	out.SpeedDeclination = lerp(a.SpeedDeclination, b.SpeedDeclination, f)
	out.RightAscension = lerpCircular(a.RightAscension, b.RightAscension, f)
	return out, nil
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

// lerpCircular interpolates along the shorter arc and re-wraps to [0,360).
func lerpCircular(a, b, f float64) float64 {
	d := math.Mod(b-a, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return wrap360(a + d*f)
}

func wrap360(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}
