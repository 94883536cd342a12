package ephem

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/astroengine/model"
)

var tableEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func twoSample(body model.Body, lon0, lon1 float64) []model.BodyPosition {
	return []model.BodyPosition{
		{Body: body, At: tableEpoch, Longitude: lon0, Declination: -20.5},
		{Body: body, At: tableEpoch.AddDate(0, 0, 1), Longitude: lon1, Declination: -20.0},
	}
}

func TestTableProvider_Interpolates(t *testing.T) {
	p := NewTableProvider(twoSample(model.Mars, 10, 12))
	pos, err := p.Position(context.Background(), model.Mars, tableEpoch.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if math.Abs(pos.Longitude-11) > 1e-9 {
		t.Fatalf("midpoint longitude = %g, want 11", pos.Longitude)
	}
	if math.Abs(pos.Declination-(-20.25)) > 1e-9 {
		t.Fatalf("midpoint declination = %g, want -20.25", pos.Declination)
	}
}

func TestTableProvider_InterpolatesThroughWrap(t *testing.T) {
	// 359° to 1° is a 2° advance through 0° Aries, not a 358° retreat.
	p := NewTableProvider(twoSample(model.Mars, 359, 1))
	pos, err := p.Position(context.Background(), model.Mars, tableEpoch.Add(12*time.Hour))
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if math.Abs(pos.Longitude) > 1e-9 && math.Abs(pos.Longitude-360) > 1e-9 {
		t.Fatalf("wrap midpoint = %g, want 0", pos.Longitude)
	}
}

func TestTableProvider_ExactSampleInstant(t *testing.T) {
	p := NewTableProvider(twoSample(model.Mars, 10, 12))
	pos, err := p.Position(context.Background(), model.Mars, tableEpoch)
	if err != nil {
		t.Fatalf("Position at first sample: %v", err)
	}
	if pos.Longitude != 10 {
		t.Fatalf("longitude at first sample = %g, want 10", pos.Longitude)
	}
}

func TestTableProvider_OutsideSpan(t *testing.T) {
	p := NewTableProvider(twoSample(model.Mars, 10, 12))
	for _, at := range []time.Time{
		tableEpoch.Add(-time.Minute),
		tableEpoch.AddDate(0, 0, 1).Add(time.Minute),
	} {
		if _, err := p.Position(context.Background(), model.Mars, at); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("out-of-span %v: err = %v, want ErrUnavailable", at, err)
		}
	}
}

func TestTableProvider_UnknownBody(t *testing.T) {
	p := NewTableProvider(twoSample(model.Mars, 10, 12))
	if _, err := p.Position(context.Background(), model.Pluto, tableEpoch); !errors.Is(err, ErrUnsupportedBody) {
		t.Fatalf("unknown body err = %v, want ErrUnsupportedBody", err)
	}
}

func TestTableProvider_BodiesNeedTwoSamples(t *testing.T) {
	samples := twoSample(model.Mars, 10, 12)
	samples = append(samples, model.BodyPosition{Body: model.Venus, At: tableEpoch, Longitude: 50})
	p := NewTableProvider(samples)

	bodies := p.Bodies()
	if len(bodies) != 1 || bodies[0] != model.Mars {
		t.Fatalf("Bodies() = %v, want just mars", bodies)
	}
	if !p.Available() {
		t.Fatalf("provider with a usable series reports unavailable")
	}

	empty := NewTableProvider([]model.BodyPosition{{Body: model.Venus, At: tableEpoch}})
	if empty.Available() {
		t.Fatalf("provider with no interpolable series reports available")
	}
}

func TestTableProvider_CancelledContext(t *testing.T) {
	p := NewTableProvider(twoSample(model.Mars, 10, 12))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Position(ctx, model.Mars, tableEpoch.Add(time.Hour)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLoadTable(t *testing.T) {
	doc := `{
  "samples": [
    {"body": "mars", "at": "2026-01-01T00:00:00Z", "longitude": 230.0, "speed_longitude": 0.6, "declination": -20.5},
    {"body": "mars", "at": "2026-01-02T00:00:00Z", "longitude": 230.6, "speed_longitude": 0.6, "declination": -20.48}
  ]
}`
	p, err := LoadTable(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	pos, err := p.Position(context.Background(), model.Mars, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if math.Abs(pos.Longitude-230.3) > 1e-9 {
		t.Fatalf("longitude = %g, want 230.3", pos.Longitude)
	}
	if pos.SpeedLongitude != 0.6 {
		t.Fatalf("speed = %g, want 0.6", pos.SpeedLongitude)
	}
}

func TestLoadTable_BadTimestamp(t *testing.T) {
	doc := `{"samples": [{"body": "mars", "at": "yesterday", "longitude": 1}]}`
	if _, err := LoadTable(strings.NewReader(doc)); err == nil {
		t.Fatalf("bad timestamp accepted")
	}
}
