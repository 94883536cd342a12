package core

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/astroengine/ephem"
	"github.com/signalsfoundry/astroengine/model"
)

var paranDate = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

func TestTransitTimes_CulminationAtLocalSiderealRA(t *testing.T) {
	obs := Observer{Latitude: 40, Longitude: -5}
	times := TransitTimes(paranDate, 100, 10, obs)

	if times.Culminate == nil || times.Anticulminate == nil {
		t.Fatalf("culmination times missing")
	}
	if times.Circumpolar {
		t.Fatalf("dec 10 at lat 40 flagged circumpolar")
	}
	if times.Rise == nil || times.Set == nil {
		t.Fatalf("rise/set missing for an ordinary object")
	}

	// At culmination the local sidereal time equals the right ascension.
	if d := SignedDelta(lstDeg(*times.Culminate, obs), 100); math.Abs(d) > 0.01 {
		t.Fatalf("LST at culmination off by %g°", d)
	}
	// At rising the hour angle is -h0, at setting +h0; both lie on the date's
	// diurnal arc around the culmination.
	h0 := math.Acos(-math.Tan(40*math.Pi/180)*math.Tan(10*math.Pi/180)) * 180 / math.Pi
	if d := SignedDelta(lstDeg(*times.Rise, obs), Normalize(100-h0)); math.Abs(d) > 0.01 {
		t.Fatalf("LST at rise off by %g°", d)
	}
	if d := SignedDelta(lstDeg(*times.Set, obs), Normalize(100+h0)); math.Abs(d) > 0.01 {
		t.Fatalf("LST at set off by %g°", d)
	}
}

func TestTransitTimes_Circumpolar(t *testing.T) {
	obs := Observer{Latitude: 52}
	times := TransitTimes(paranDate, 100, 60, obs)

	if !times.Circumpolar {
		t.Fatalf("dec 60 at lat 52 not flagged circumpolar")
	}
	if times.Rise != nil || times.Set != nil {
		t.Fatalf("circumpolar object reported horizon crossings")
	}
	if times.Culminate == nil || times.Anticulminate == nil {
		t.Fatalf("circumpolar object still culminates twice a day")
	}
}

func TestParanSearch_CulminationPairWithCircumpolarStar(t *testing.T) {
	// The star never rises or sets at this latitude; only meridian pairings
	// can form, and the body shares its right ascension so they culminate
	// together.
	p := &fakeProvider{
		epoch: paranDate,
		motion: map[model.Body]fakeMotion{
			model.Mars: {lon0: 100, dec0: 10, ra0: 100},
		},
	}
	star := FixedStar{Name: "TestPolar", RightAscension: 100, Declination: 60}

	events, err := ParanSearch(context.Background(), p, ParanRequest{
		Date:     paranDate,
		Observer: Observer{Latitude: 52},
		Bodies:   []model.Body{model.Mars},
		Stars:    []FixedStar{star},
	})
	if err != nil {
		t.Fatalf("ParanSearch: %v", err)
	}
	if len(events) == 0 {
		t.Fatalf("shared right ascension produced no meridian paran")
	}

	sawCulmination := false
	for _, ev := range events {
		if ev.Kind != model.KindParan {
			t.Fatalf("event kind = %q, want paran", ev.Kind)
		}
		axis := ev.Meta["star_axis"]
		if axis == string(AxisRise) || axis == string(AxisSet) {
			t.Fatalf("circumpolar star contributed a horizon event: %+v", ev)
		}
		if ev.Label == "culminate/culminate" {
			sawCulmination = true
			if ev.Orb > 0.1 {
				t.Fatalf("co-culminating pair has orb %g°", ev.Orb)
			}
		}
		if !strings.HasPrefix(ev.Target, "star:") {
			t.Fatalf("paran target %q lacks the star: prefix", ev.Target)
		}
	}
	if !sawCulmination {
		t.Fatalf("no culminate/culminate pairing in %+v", events)
	}
}

func TestParanSearch_NoPairOutsideTolerance(t *testing.T) {
	// 30° of right ascension is two sidereal hours; nothing pairs within the
	// default 8 minute gap.
	p := &fakeProvider{
		epoch: paranDate,
		motion: map[model.Body]fakeMotion{
			model.Mars: {lon0: 130, dec0: 10, ra0: 130},
		},
	}
	star := FixedStar{Name: "TestFar", RightAscension: 100, Declination: 5}

	events, err := ParanSearch(context.Background(), p, ParanRequest{
		Date:     paranDate,
		Observer: Observer{Latitude: 40},
		Bodies:   []model.Body{model.Mars},
		Stars:    []FixedStar{star},
	})
	if err != nil {
		t.Fatalf("ParanSearch: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("distant axes paired anyway: %+v", events)
	}
}

func TestParanSearch_AxisSubset(t *testing.T) {
	p := &fakeProvider{
		epoch: paranDate,
		motion: map[model.Body]fakeMotion{
			model.Mars: {lon0: 100, dec0: 10, ra0: 100},
		},
	}
	star := FixedStar{Name: "TestNear", RightAscension: 100, Declination: 12}

	events, err := ParanSearch(context.Background(), p, ParanRequest{
		Date:     paranDate,
		Observer: Observer{Latitude: 40},
		Bodies:   []model.Body{model.Mars},
		Stars:    []FixedStar{star},
		Axes:     []ParanAxis{AxisCulminate},
	})
	if err != nil {
		t.Fatalf("ParanSearch: %v", err)
	}
	for _, ev := range events {
		if ev.Meta["star_axis"] != string(AxisCulminate) || ev.Meta["body_axis"] != string(AxisCulminate) {
			t.Fatalf("axis subset leaked other axes: %+v", ev)
		}
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want the single culmination pairing", len(events))
	}
}

func TestParanSearch_UnavailableProvider(t *testing.T) {
	p := &fakeProvider{down: true}
	_, err := ParanSearch(context.Background(), p, ParanRequest{Date: paranDate})
	if !errors.Is(err, ephem.ErrUnavailable) {
		t.Fatalf("err = %v, want ephem.ErrUnavailable", err)
	}
}
