package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/astroengine/ephem"
	"github.com/signalsfoundry/astroengine/internal/logging"
	"github.com/signalsfoundry/astroengine/internal/observability"
	"github.com/signalsfoundry/astroengine/model"
)

// zeroNudgeDeg displaces an exactly-zero offset sample so consecutive
// samples cannot both read 0 and hide a crossing. The value is a tunable:
// large enough to survive float noise, small enough that no real body moves
// less than this between coarse samples. Near-stationary outer planets are
// the risk case; RefineBracket's flat-function handling backstops them.
const zeroNudgeDeg = 1e-9

// defaultStationSpeed is the offset-velocity magnitude (deg/day) under
// which a refined event is classified stationary rather than applying or
// separating.
const defaultStationSpeed = 0.01

// classifyStep is the probe distance used for the numerical offset
// derivative at a refined instant.
const classifyStep = time.Minute

// ScanRequest describes one scan invocation: a window, the moving bodies,
// the fixed targets, and the relationship kinds to monitor.
type ScanRequest struct {
	ScanID  string
	Start   time.Time
	End     time.Time
	Bodies  []model.Body
	Targets []model.TargetPoint
	Kinds   []model.Kind
	Profile string

	// PolicyOverride merges over the scanner's base policy for this request
	// only; the base is never mutated.
	PolicyOverride *OrbPolicy
}

// Scanner orchestrates coarse sampling, bracket detection, refinement,
// motion classification, and scoring. One Scanner is safe for concurrent
// use: all per-scan state lives on the stack of each invocation.
type Scanner struct {
	Provider ephem.Provider
	Policy   *OrbPolicy
	Log      logging.Logger
	Metrics  *observability.ScanCollector
	Tracer   trace.Tracer

	// StationSpeed overrides defaultStationSpeed when > 0.
	StationSpeed float64

	// ScoreEvents attaches severity scores to emitted events.
	ScoreEvents bool
}

// Scan validates the request, fans bodies out onto independent goroutines,
// and merge-sorts the per-body event streams into one chronological
// timeline. Per-body ephemeris failures are isolated into the report's skip
// list; validation failures surface before any sampling begins.
//
// Cancelling ctx stops sampling early: the merged partial report is
// returned alongside the context error.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) (*model.ScanReport, error) {
	if !req.End.After(req.Start) {
		return nil, ErrInvalidWindow
	}
	if s.Provider == nil || !s.Provider.Available() {
		return nil, ephem.ErrUnavailable
	}
	prof, err := ProfileByName(req.Profile)
	if err != nil {
		return nil, err
	}
	rels := make([]Relationship, 0, len(req.Kinds))
	for _, kind := range req.Kinds {
		rel, err := NewRelationship(kind)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	for _, body := range req.Bodies {
		if !ephem.Supports(s.Provider, body) {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedBody, body)
		}
	}

	scanID := req.ScanID
	if scanID == "" {
		scanID = uuid.NewString()
	}
	log := s.logger().With(logging.String("scan_id", scanID))
	pol := s.Policy
	if req.PolicyOverride != nil {
		pol = pol.Merge(req.PolicyOverride)
	}

	s.Metrics.ScanStarted()
	defer s.Metrics.ScanFinished()

	report := &model.ScanReport{ScanID: scanID}
	var mu sync.Mutex
	perBody := make([][]model.Event, len(req.Bodies))

	g, gctx := errgroup.WithContext(ctx)
	for i, body := range req.Bodies {
		g.Go(func() error {
			bctx, span := s.startSpan(gctx, body, req)
			events, err := s.scanBody(bctx, body, rels, req.Targets, req.Start, req.End, prof, pol)
			span.End()

			mu.Lock()
			perBody[i] = events
			if err != nil && gctx.Err() == nil {
				report.Skipped = append(report.Skipped, model.BodySkip{
					Body:   body,
					Reason: err.Error(),
				})
				log.Warn(bctx, "body scan aborted",
					logging.String("body", string(body)),
					logging.String("error", err.Error()))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, events := range perBody {
		report.Events = append(report.Events, events...)
	}
	sort.SliceStable(report.Events, func(i, j int) bool {
		return report.Events[i].Timestamp.Before(report.Events[j].Timestamp)
	})
	sort.Slice(report.Skipped, func(i, j int) bool {
		return report.Skipped[i].Body < report.Skipped[j].Body
	})

	log.Info(ctx, "scan complete",
		logging.Int("events", len(report.Events)),
		logging.Int("skipped", len(report.Skipped)))
	return report, ctx.Err()
}

// track carries the bracket-detection state for one (relationship, target,
// candidate) triple over a body's sampling sweep.
type track struct {
	rel    Relationship
	target model.TargetPoint
	cand   Candidate
	prev   float64
	primed bool
}

// scanBody runs the Sampling → BracketDetected → Refining → EventEmitted
// loop for one body. Events come out in non-decreasing timestamp order.
func (s *Scanner) scanBody(ctx context.Context, body model.Body, rels []Relationship,
	targets []model.TargetPoint, start, end time.Time, prof AccuracyProfile, pol *OrbPolicy) ([]model.Event, error) {

	var tracks []track
	for _, rel := range rels {
		for _, tgt := range targets {
			for _, c := range rel.Candidates() {
				tracks = append(tracks, track{rel: rel, target: tgt, cand: c})
			}
		}
	}

	var events []model.Event
	step := prof.CoarseStep
	var prev time.Time
	var prevPos model.BodyPosition

	// The final step is clamped to the window end so a crossing inside a
	// partial trailing step is still bracketed.
	t := start
	for {
		if ctx.Err() != nil {
			return events, nil
		}

		pos, at, err := s.sampleWithRetry(ctx, body, t, step)
		if err != nil {
			return events, fmt.Errorf("ephemeris failure at %s: %w", t.UTC().Format(time.RFC3339), err)
		}
		s.Metrics.SampleTaken()

		for i := range tracks {
			tr := &tracks[i]
			off := tr.rel.Offset(tr.cand, pos, tr.target)
			if off == 0 {
				off = -zeroNudgeDeg
			}
			if !tr.primed {
				// A window that opens inside the crossing tolerance must not
				// swallow the first comparison; the nudge gives the opening
				// sample a definite side.
				if absf(off) <= prof.ToleranceDeg() {
					off = -zeroNudgeDeg
				}
				tr.prev, tr.primed = off, true
				continue
			}
			if sameSign(tr.prev, off) {
				tr.prev = off
				continue
			}
			// A sign flip with a jump over 180° is the offset wrapping through
			// its ±180° discontinuity (the candidate's antipode), not a zero
			// crossing; a real crossing moves only a fraction of a degree
			// between coarse samples.
			if absf(off-tr.prev) > 180 {
				tr.prev = off
				continue
			}

			s.Metrics.BracketDetected()
			bracket := Bracket{
				Start: prev, End: at,
				StartOffset: tr.prev, EndOffset: off,
				StartPos: prevPos, EndPos: pos,
			}
			ev := s.refineAndEmit(ctx, body, tr, bracket, prof, pol)
			events = append(events, ev)
			tr.prev = off
		}
		prev, prevPos = at, pos

		if !t.Before(end) {
			break
		}
		if t = t.Add(step); t.After(end) {
			t = end
		}
	}
	return events, nil
}

// sampleWithRetry treats a single provider failure as transient: the sample
// is retried once at a slightly later instant before the body's scan gives
// up. The instant actually sampled is returned so brackets record where the
// offset was truly measured.
func (s *Scanner) sampleWithRetry(ctx context.Context, body model.Body, t time.Time, step time.Duration) (model.BodyPosition, time.Time, error) {
	pos, err := s.Provider.Position(ctx, body, t)
	if err == nil {
		return pos, t, nil
	}
	if ctx.Err() != nil {
		return model.BodyPosition{}, t, err
	}
	s.Metrics.EphemerisRetried()
	retry := t.Add(step / 4)
	pos, err = s.Provider.Position(ctx, body, retry)
	return pos, retry, err
}

func (s *Scanner) refineAndEmit(ctx context.Context, body model.Body, tr *track,
	bracket Bracket, prof AccuracyProfile, pol *OrbPolicy) model.Event {

	f := func(fctx context.Context, at time.Time) (float64, model.BodyPosition, error) {
		pos, err := s.Provider.Position(fctx, body, at)
		if err != nil {
			return 0, model.BodyPosition{}, err
		}
		return tr.rel.Offset(tr.cand, pos, tr.target), pos, nil
	}

	res := RefineBracket(ctx, f, bracket, prof)
	s.Metrics.RefineObserved(res.Iterations)

	motion := s.classifyMotion(ctx, f, res)
	allow := tr.rel.Allow(tr.cand, body, tr.target, pol)

	ev := model.Event{
		Timestamp:   res.At.UTC(),
		Moving:      body,
		Target:      tr.target.Name,
		Kind:        tr.rel.Kind(),
		Label:       tr.cand.Label,
		Angle:       tr.cand.Angle,
		Orb:         absf(res.Offset),
		OrbAllow:    allow,
		Motion:      motion,
		Longitude:   res.Pos.Longitude,
		Declination: res.Pos.Declination,
		Exhausted:   res.Exhausted,
	}

	if s.ScoreEvents {
		conditions := map[string]float64{}
		if res.Pos.Retrograde() {
			conditions["retrograde"] = 0.9
		}
		sr := Score(ScoreInputs{
			Kind:       ev.Kind,
			OrbAbs:     ev.Orb,
			OrbAllow:   allow,
			Moving:     body,
			Target:     tr.target.Name,
			Motion:     motion,
			Conditions: conditions,
		})
		ev.Score = sr.Score
	}

	s.Metrics.EventEmitted(string(ev.Kind))
	return ev
}

// classifyMotion probes the offset just after the refined instant and
// compares magnitudes: shrinking is applying, growing is separating, and an
// offset velocity below the station threshold is stationary. When the probe
// fails (provider hiccup) the bracket's own slope decides.
func (s *Scanner) classifyMotion(ctx context.Context, f OffsetFunc, res RefineResult) model.MotionState {
	threshold := s.StationSpeed
	if threshold <= 0 {
		threshold = defaultStationSpeed
	}

	later, _, err := f(ctx, res.At.Add(classifyStep))
	if err != nil {
		if res.Offset < 0 {
			return model.MotionApplying
		}
		return model.MotionSeparating
	}

	dtDays := classifyStep.Hours() / 24
	velocity := (later - res.Offset) / dtDays
	if math.Abs(velocity) < threshold {
		return model.MotionStationary
	}
	if math.Abs(later) < math.Abs(res.Offset) {
		return model.MotionApplying
	}
	return model.MotionSeparating
}

func (s *Scanner) logger() logging.Logger {
	if s.Log == nil {
		return logging.Noop()
	}
	return s.Log
}

func (s *Scanner) startSpan(ctx context.Context, body model.Body, req ScanRequest) (context.Context, trace.Span) {
	if s.Tracer == nil {
		return trace.ContextWithSpan(ctx, trace.SpanFromContext(ctx)), trace.SpanFromContext(ctx)
	}
	return s.Tracer.Start(ctx, "scan.body",
		trace.WithAttributes(
			attribute.String("body", string(body)),
			attribute.String("profile", req.Profile),
			attribute.String("window.start", req.Start.UTC().Format(time.RFC3339)),
			attribute.String("window.end", req.End.UTC().Format(time.RFC3339)),
		))
}
