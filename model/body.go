package model

import "time"

// Body identifies a moving celestial body ("sun", "moon", "mars", ...).
// Identifiers are lower-case; the ephemeris provider decides which ones it
// recognises.
type Body string

// The classical set. Providers may support more (asteroids, nodes, etc.).
const (
	Sun     Body = "sun"
	Moon    Body = "moon"
	Mercury Body = "mercury"
	Venus   Body = "venus"
	Mars    Body = "mars"
	Jupiter Body = "jupiter"
	Saturn  Body = "saturn"
	Uranus  Body = "uranus"
	Neptune Body = "neptune"
	Pluto   Body = "pluto"
)

// BodyPosition is an immutable snapshot of a body at one UTC instant, as
// reported by an ephemeris provider. Longitude is always normalised to
// [0,360). Rates are per day.
type BodyPosition struct {
	Body Body
	At   time.Time

	Longitude float64 // ecliptic longitude, degrees [0,360)
	Latitude  float64 // ecliptic latitude, degrees
	Distance  float64 // AU

	SpeedLongitude float64 // deg/day, negative when retrograde
	SpeedLatitude  float64 // deg/day
	SpeedDistance  float64 // AU/day

	Declination      float64 // degrees
	SpeedDeclination float64 // deg/day
	RightAscension   float64 // degrees [0,360); used by paran computations
}

// Retrograde reports whether the body is in apparent retrograde motion.
func (p BodyPosition) Retrograde() bool { return p.SpeedLongitude < 0 }

// TargetPoint is a fixed reference point a scan measures against: a natal
// body position, a chart angle, a lot, or a fixed star. Only the fields a
// given relationship needs have to be populated.
type TargetPoint struct {
	Name        string
	Longitude   float64 // degrees [0,360)
	Declination float64 // degrees
}
