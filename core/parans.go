package core

import (
	"context"
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/astroengine/ephem"
	"github.com/signalsfoundry/astroengine/model"
)

// ParanAxis names the diurnal events a paran can pair.
type ParanAxis string

const (
	AxisRise          ParanAxis = "rise"
	AxisSet           ParanAxis = "set"
	AxisCulminate     ParanAxis = "culminate"
	AxisAnticulminate ParanAxis = "anticulminate"
)

// AllParanAxes is the full axis set, in canonical order.
var AllParanAxes = []ParanAxis{AxisRise, AxisSet, AxisCulminate, AxisAnticulminate}

// Observer is a terrestrial location. Longitude is degrees east-positive.
type Observer struct {
	Latitude  float64
	Longitude float64
}

// AxisTimes holds one object's diurnal event times on a date. Rise and Set
// are nil for circumpolar objects: an object that never crosses the
// horizon has no rise to pair, which is an empty result, not an error.
type AxisTimes struct {
	Rise          *time.Time
	Set           *time.Time
	Culminate     *time.Time
	Anticulminate *time.Time
	Circumpolar   bool
}

// At returns the time for one axis, nil when that axis does not occur.
func (a AxisTimes) At(axis ParanAxis) *time.Time {
	switch axis {
	case AxisRise:
		return a.Rise
	case AxisSet:
		return a.Set
	case AxisCulminate:
		return a.Culminate
	case AxisAnticulminate:
		return a.Anticulminate
	}
	return nil
}

// siderealRateDegPerDay is the rotation rate of local sidereal time.
const siderealRateDegPerDay = 360.985647

// gmstDeg returns Greenwich mean sidereal time in degrees for a UTC instant,
// via go-satellite's Julian-day and GMST routines.
func gmstDeg(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return Normalize(satellite.ThetaG_JD(jd) * 180 / math.Pi)
}

// lstDeg is local sidereal time in degrees at the observer.
func lstDeg(t time.Time, obs Observer) float64 {
	return Normalize(gmstDeg(t) + obs.Longitude)
}

// hourAngleTime solves for the instant nearest to seed at which the local
// hour angle of a fixed right ascension equals target (degrees). Sidereal
// time advances almost linearly, so a few Newton-style corrections converge
// far below the pairing tolerance.
func hourAngleTime(seed time.Time, ra, targetHA float64, obs Observer) time.Time {
	t := seed
	for i := 0; i < 6; i++ {
		want := Normalize(ra + targetHA)
		diff := SignedDelta(want, lstDeg(t, obs))
		t = t.Add(time.Duration(diff / siderealRateDegPerDay * 24 * float64(time.Hour)))
	}
	return t.UTC()
}

// TransitTimes computes the rise, set, culmination, and anticulmination
// times of a fixed equatorial position on the given date at the observer.
// |tan(lat)·tan(dec)| ≥ 1 marks the object circumpolar (or never-rising):
// the horizon axes come back nil.
func TransitTimes(date time.Time, ra, dec float64, obs Observer) AxisTimes {
	seed := time.Date(date.UTC().Year(), date.UTC().Month(), date.UTC().Day(), 12, 0, 0, 0, time.UTC)

	var out AxisTimes
	culm := hourAngleTime(seed, ra, 0, obs)
	anti := hourAngleTime(seed, ra, 180, obs)
	out.Culminate = &culm
	out.Anticulminate = &anti

	product := math.Tan(obs.Latitude*math.Pi/180) * math.Tan(dec*math.Pi/180)
	if math.Abs(product) >= 1 {
		out.Circumpolar = true
		return out
	}
	h0 := math.Acos(-product) * 180 / math.Pi
	rise := hourAngleTime(seed, ra, -h0, obs)
	set := hourAngleTime(seed, ra, h0, obs)
	out.Rise = &rise
	out.Set = &set
	return out
}

// ParanRequest configures a paran search between catalog stars and moving
// bodies on one date at one observer.
type ParanRequest struct {
	Date      time.Time
	Observer  Observer
	Bodies    []model.Body
	Stars     []FixedStar
	Axes      []ParanAxis
	Tolerance time.Duration // max gap between paired axis events
}

// ParanSearch pairs each star's diurnal events with each body's: when a
// star and a body hit requested axes within the tolerance of each other,
// that simultaneity is a paran. Circumpolar stars simply contribute no
// horizon events; culmination pairs still form.
func ParanSearch(ctx context.Context, provider ephem.Provider, req ParanRequest) ([]model.Event, error) {
	if provider == nil || !provider.Available() {
		return nil, ephem.ErrUnavailable
	}
	axes := req.Axes
	if len(axes) == 0 {
		axes = AllParanAxes
	}
	tolerance := req.Tolerance
	if tolerance <= 0 {
		tolerance = 8 * time.Minute
	}
	seed := time.Date(req.Date.UTC().Year(), req.Date.UTC().Month(), req.Date.UTC().Day(), 12, 0, 0, 0, time.UTC)

	var events []model.Event
	for _, body := range req.Bodies {
		pos, err := provider.Position(ctx, body, seed)
		if err != nil {
			return nil, fmt.Errorf("paran search: %q: %w", body, err)
		}
		bodyTimes := TransitTimes(req.Date, pos.RightAscension, pos.Declination, req.Observer)

		for _, star := range req.Stars {
			starTimes := TransitTimes(req.Date, star.RightAscension, star.Declination, req.Observer)
			for _, starAxis := range axes {
				st := starTimes.At(starAxis)
				if st == nil {
					continue
				}
				for _, bodyAxis := range axes {
					bt := bodyTimes.At(bodyAxis)
					if bt == nil {
						continue
					}
					gap := bt.Sub(*st)
					if gap < 0 {
						gap = -gap
					}
					if gap > tolerance {
						continue
					}
					mid := st.Add(bt.Sub(*st) / 2)
					events = append(events, model.Event{
						Timestamp: mid.UTC(),
						Moving:    body,
						Target:    "star:" + star.Name,
						Kind:      model.KindParan,
						Label:     string(bodyAxis) + "/" + string(starAxis),
						// A paran's orb is the pairing gap expressed as
						// degrees of Earth rotation.
						Orb: gap.Seconds() / 240.0,
						Meta: map[string]string{
							"star":      star.Name,
							"star_axis": string(starAxis),
							"body_axis": string(bodyAxis),
							"gap":       gap.String(),
						},
					})
				}
			}
		}
	}
	return events, nil
}
