package core

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/astroengine/model"
)

// linearOffset builds an OffsetFunc whose offset crosses zero at zeroAt,
// moving at rate degrees per day.
func linearOffset(zeroAt time.Time, rate float64) OffsetFunc {
	return func(_ context.Context, t time.Time) (float64, model.BodyPosition, error) {
		days := t.Sub(zeroAt).Hours() / 24
		return rate * days, model.BodyPosition{At: t, Longitude: Normalize(rate * days)}, nil
	}
}

func TestRefineBracket_Linear(t *testing.T) {
	zero := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := linearOffset(zero, 0.6)
	prof, _ := ProfileByName("default")

	start := zero.Add(-30 * time.Minute)
	end := zero.Add(30 * time.Minute)
	so, sp, _ := f(context.Background(), start)
	eo, ep, _ := f(context.Background(), end)

	res := RefineBracket(context.Background(), f, Bracket{
		Start: start, End: end,
		StartOffset: so, EndOffset: eo,
		StartPos: sp, EndPos: ep,
	}, prof)

	if math.Abs(res.Offset) > prof.ToleranceDeg() && !res.Exhausted {
		t.Fatalf("offset %g above tolerance %g yet not exhausted", res.Offset, prof.ToleranceDeg())
	}
	if got := res.At.Sub(zero); got < -time.Minute || got > time.Minute {
		t.Fatalf("refined instant %v is %v from the true crossing", res.At, got)
	}
	if res.Pos.At.IsZero() {
		t.Fatalf("refined result carries no position snapshot")
	}
}

func TestRefineBracket_ExhaustsOnTinyBudget(t *testing.T) {
	zero := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := linearOffset(zero, 0.6)
	prof := AccuracyProfile{ToleranceArcsec: 0.001, MaxIterations: 2, CoarseStep: time.Hour}

	// Asymmetric on purpose: the crossing never lands on a bisection midpoint.
	start := zero.Add(-12 * time.Hour)
	end := zero.Add(6 * time.Hour)
	so, _, _ := f(context.Background(), start)
	eo, _, _ := f(context.Background(), end)

	res := RefineBracket(context.Background(), f, Bracket{
		Start: start, End: end, StartOffset: so, EndOffset: eo,
	}, prof)

	if !res.Exhausted {
		t.Fatalf("2 iterations over a 24h bracket cannot reach 0.001 arcsec; want Exhausted")
	}
	if res.Iterations != 2 {
		t.Fatalf("Iterations = %d, want 2", res.Iterations)
	}
}

func TestRefineBracket_ProviderErrorDegrades(t *testing.T) {
	zero := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	calls := 0
	f := func(ctx context.Context, at time.Time) (float64, model.BodyPosition, error) {
		calls++
		if calls > 1 {
			return 0, model.BodyPosition{}, errors.New("ephemeris outage")
		}
		return linearOffset(zero, 0.6)(ctx, at)
	}
	prof, _ := ProfileByName("default")

	start := zero.Add(-time.Hour)
	end := zero.Add(30 * time.Minute)
	res := RefineBracket(context.Background(), f, Bracket{
		Start: start, End: end, StartOffset: -0.025, EndOffset: 0.0125,
	}, prof)

	if !res.Exhausted {
		t.Fatalf("a mid-refinement provider failure must flag Exhausted")
	}
	if res.At.Before(start) || res.At.After(end) {
		t.Fatalf("degraded result %v escaped the bracket [%v, %v]", res.At, start, end)
	}
}

func TestRefineBracket_FlatFunction(t *testing.T) {
	// Near a station the offset can sit flat at the same tiny value on both
	// sides. The refiner must still terminate and report the residual.
	f := func(_ context.Context, t time.Time) (float64, model.BodyPosition, error) {
		return 0.004, model.BodyPosition{At: t}, nil
	}
	prof := AccuracyProfile{ToleranceArcsec: 1, MaxIterations: 6, CoarseStep: time.Hour}

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	res := RefineBracket(context.Background(), f, Bracket{
		Start: start, End: start.Add(time.Hour),
		StartOffset: 0.004, EndOffset: -0.004,
	}, prof)

	if !res.Exhausted {
		t.Fatalf("flat function cannot converge below %g deg; want Exhausted", prof.ToleranceDeg())
	}
	if math.Abs(res.Offset) > 0.004 {
		t.Fatalf("best offset %g worse than the endpoints", res.Offset)
	}
}

func TestRefineBracket_CancelledContext(t *testing.T) {
	zero := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f := linearOffset(zero, 0.6)
	prof, _ := ProfileByName("high")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := RefineBracket(ctx, f, Bracket{
		Start: zero.Add(-time.Hour), End: zero.Add(time.Hour),
		StartOffset: -0.025, EndOffset: 0.025,
	}, prof)
	if !res.Exhausted {
		t.Fatalf("cancelled refinement should return its best estimate flagged exhausted")
	}
}
