package core

import (
	"context"
	"time"

	"github.com/signalsfoundry/astroengine/model"
)

// OffsetFunc is the monitored function a scan samples: the signed offset
// from exact at instant t, plus the moving body's snapshot for motion
// classification. Errors come from the ephemeris provider only.
type OffsetFunc func(ctx context.Context, t time.Time) (float64, model.BodyPosition, error)

// Bracket is a candidate zero-crossing interval: two instants whose offsets
// differ in sign (or where one touched zero).
type Bracket struct {
	Start, End             time.Time
	StartOffset, EndOffset float64
	StartPos, EndPos       model.BodyPosition
}

// RefineResult is the refiner's answer. It is always usable: when tolerance
// could not be reached within the iteration budget, Exhausted is set and
// Offset carries the residual so downstream scoring de-weights the event
// naturally instead of pretending full precision.
type RefineResult struct {
	At         time.Time
	Offset     float64
	Pos        model.BodyPosition
	Iterations int
	Exhausted  bool
}

// RefineBracket narrows a bracket by bisection until the offset magnitude
// drops below the profile tolerance, the interval falls below the time
// tolerance, or the iteration budget runs out. It never fails: a provider
// error mid-refinement returns the best estimate found so far, flagged
// exhausted.
func RefineBracket(ctx context.Context, f OffsetFunc, b Bracket, prof AccuracyProfile) RefineResult {
	tolDeg := prof.ToleranceDeg()
	timeTol := prof.TimeTolerance()

	lo, hi := b.Start, b.End
	loOff, hiOff := b.StartOffset, b.EndOffset

	// Start from whichever endpoint is closer to exact.
	best := RefineResult{At: lo, Offset: loOff, Pos: b.StartPos}
	if absf(hiOff) < absf(loOff) {
		best = RefineResult{At: hi, Offset: hiOff, Pos: b.EndPos}
	}

	for i := 0; i < prof.MaxIterations; i++ {
		if absf(best.Offset) <= tolDeg {
			best.Iterations = i
			return best
		}
		if hi.Sub(lo) <= timeTol {
			best.Iterations = i
			return best
		}
		if err := ctx.Err(); err != nil {
			best.Iterations = i
			best.Exhausted = true
			return best
		}

		mid := lo.Add(hi.Sub(lo) / 2)
		midOff, midPos, err := f(ctx, mid)
		if err != nil {
			// A provider hiccup inside refinement degrades to the best
			// estimate rather than losing the event.
			best.Iterations = i
			best.Exhausted = true
			return best
		}

		if absf(midOff) < absf(best.Offset) {
			best = RefineResult{At: mid, Offset: midOff, Pos: midPos}
		}

		// Keep the half that still straddles the crossing. When signs do not
		// resolve (flat function near a station), keep the half whose far
		// endpoint is closer to zero.
		switch {
		case midOff == 0:
			lo, loOff = mid, midOff
			hi, hiOff = mid, midOff
		case sameSign(loOff, midOff):
			lo, loOff = mid, midOff
		case sameSign(hiOff, midOff):
			hi, hiOff = mid, midOff
		default:
			if absf(loOff) <= absf(hiOff) {
				hi, hiOff = mid, midOff
			} else {
				lo, loOff = mid, midOff
			}
		}
	}

	best.Iterations = prof.MaxIterations
	if absf(best.Offset) > tolDeg {
		best.Exhausted = true
	}
	return best
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
