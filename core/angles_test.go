package core

import (
	"math"
	"testing"
)

func almostEqual(a, b, eps float64) bool {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d <= eps
}

func TestNormalize_WrapInvariance(t *testing.T) {
	angles := []float64{0, 10, 123.456, 359.999, -0.5, -720, 1234.5}
	for _, a := range angles {
		for _, k := range []float64{-3, -1, 0, 1, 2, 10} {
			got := Normalize(a + 360*k)
			want := Normalize(a)
			if !almostEqual(got, want, 1e-9) {
				t.Fatalf("Normalize(%g + 360*%g) = %g, want %g", a, k, got, want)
			}
		}
	}
}

func TestNormalize_Range(t *testing.T) {
	for _, a := range []float64{-1e6, -360, -0.0001, 0, 359.9999, 1e6} {
		got := Normalize(a)
		if got < 0 || got >= 360 {
			t.Fatalf("Normalize(%g) = %g, outside [0,360)", a, got)
		}
	}
}

func TestSignedDelta(t *testing.T) {
	cases := []struct {
		a, b, want float64
	}{
		{10, 350, 20},
		{350, 10, -20},
		{0, 180, 180}, // boundary maps to +180, not -180
		{90, 90, 0},
		{359, 1, -2},
	}
	for _, c := range cases {
		got := SignedDelta(c.a, c.b)
		if !almostEqual(got, c.want, 1e-9) {
			t.Fatalf("SignedDelta(%g, %g) = %g, want %g", c.a, c.b, got, c.want)
		}
		if got <= -180 || got > 180 {
			t.Fatalf("SignedDelta(%g, %g) = %g, outside (-180,180]", c.a, c.b, got)
		}
	}
}

func TestAngularSeparation_Range(t *testing.T) {
	for _, a := range []float64{0, 45, 180, 270, 359} {
		for _, b := range []float64{0, 100, 200, 300} {
			got := AngularSeparation(a, b)
			if got < 0 || got > 180 {
				t.Fatalf("AngularSeparation(%g, %g) = %g, outside [0,180]", a, b, got)
			}
		}
	}
}

func TestCircularMidpoint_Commutative(t *testing.T) {
	pairs := [][2]float64{
		{10, 20}, {350, 10}, {0, 180}, {90, 270}, {123.4, 321.9}, {359.5, 0.5},
	}
	for _, p := range pairs {
		ab := CircularMidpoint(p[0], p[1])
		ba := CircularMidpoint(p[1], p[0])
		if !almostEqual(ab, ba, 1e-9) {
			t.Fatalf("midpoint(%g,%g)=%g but midpoint(%g,%g)=%g", p[0], p[1], ab, p[1], p[0], ba)
		}
	}
}

func TestCircularMidpoint_ShorterArc(t *testing.T) {
	// 350 and 10 are 20 degrees apart through 0; the midpoint is 0, not 180.
	if got := CircularMidpoint(350, 10); !almostEqual(got, 0, 1e-9) {
		t.Fatalf("CircularMidpoint(350,10) = %g, want 0", got)
	}
	if got := CircularMidpoint(10, 20); !almostEqual(got, 15, 1e-9) {
		t.Fatalf("CircularMidpoint(10,20) = %g, want 15", got)
	}
}

func TestMirrors_Involution(t *testing.T) {
	for lon := 0.0; lon < 360; lon += 7.3 {
		if got := Antiscia(Antiscia(lon)); !almostEqual(got, Normalize(lon), 1e-9) {
			t.Fatalf("Antiscia(Antiscia(%g)) = %g, want %g", lon, got, Normalize(lon))
		}
		if got := ContraAntiscia(ContraAntiscia(lon)); !almostEqual(got, Normalize(lon), 1e-9) {
			t.Fatalf("ContraAntiscia(ContraAntiscia(%g)) = %g, want %g", lon, got, Normalize(lon))
		}
	}
}

func TestAntiscia_KnownValues(t *testing.T) {
	// 0° Cancer (90) mirrors onto itself; 0° Aries (0) onto 0° Libra's mirror 180.
	if got := Antiscia(90); !almostEqual(got, 90, 1e-9) {
		t.Fatalf("Antiscia(90) = %g, want 90", got)
	}
	if got := Antiscia(0); !almostEqual(got, 180, 1e-9) {
		t.Fatalf("Antiscia(0) = %g, want 180", got)
	}
	if got := ContraAntiscia(10); !almostEqual(got, 350, 1e-9) {
		t.Fatalf("ContraAntiscia(10) = %g, want 350", got)
	}
}
