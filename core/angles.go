package core

import "math"

// Scalar angle helpers for the scanning engine. Everything downstream leans
// on these, so they stay pure: no state, no I/O, degrees in, degrees out.

// Normalize wraps an angle into [0,360).
func Normalize(angle float64) float64 {
	v := math.Mod(angle, 360)
	if v < 0 {
		v += 360
	}
	return v
}

// SignedDelta returns the shortest signed difference a−b in (−180,180].
func SignedDelta(a, b float64) float64 {
	d := math.Mod(a-b, 360)
	if d > 180 {
		d -= 360
	} else if d <= -180 {
		d += 360
	}
	return d
}

// AngularSeparation returns the absolute shortest separation in [0,180].
func AngularSeparation(a, b float64) float64 {
	return math.Abs(SignedDelta(a, b))
}

// CircularMidpoint returns the midpoint along the shorter arc between a and
// b, in [0,360). Commutative: CircularMidpoint(a,b) == CircularMidpoint(b,a).
func CircularMidpoint(a, b float64) float64 {
	a = Normalize(a)
	b = Normalize(b)
	// Walk half the signed shorter-arc delta from the smaller operand so the
	// result does not depend on argument order.
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	d := SignedDelta(hi, lo)
	return Normalize(lo + d/2)
}

// Antiscia mirrors a longitude across the solstitial axis (0° Cancer /
// 0° Capricorn): λ → 180−λ. An involution: Antiscia(Antiscia(x)) == x.
func Antiscia(lon float64) float64 {
	return Normalize(180 - lon)
}

// ContraAntiscia mirrors a longitude across the equinoctial axis (0° Aries /
// 0° Libra): λ → −λ. Also an involution.
func ContraAntiscia(lon float64) float64 {
	return Normalize(-lon)
}
