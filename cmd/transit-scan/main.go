package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/signalsfoundry/astroengine/core"
	"github.com/signalsfoundry/astroengine/ephem"
	"github.com/signalsfoundry/astroengine/internal/cache"
	"github.com/signalsfoundry/astroengine/internal/logging"
	"github.com/signalsfoundry/astroengine/internal/observability"
	"github.com/signalsfoundry/astroengine/model"
)

func main() {
	ephemerisPath := flag.String("ephemeris", "configs/ephemeris_table.json", "Path to a JSON ephemeris table")
	chartPath := flag.String("chart", "configs/chart.json", "Path to a JSON chart document (targets, ascendant, lots)")
	policyPath := flag.String("policy", "configs/orb_policy.json", "Path to a JWCC orb policy document")
	startRaw := flag.String("start", "", "Window start, RFC 3339 UTC")
	endRaw := flag.String("end", "", "Window end, RFC 3339 UTC")
	bodiesRaw := flag.String("bodies", "mars", "Comma-separated moving bodies")
	kindsRaw := flag.String("kinds", "aspect", "Comma-separated relationship kinds (aspect,declination,antiscia,lot,star)")
	profile := flag.String("profile", "default", fmt.Sprintf("Accuracy profile (%s)", strings.Join(core.ProfileNames(), ", ")))
	score := flag.Bool("score", true, "Attach severity scores to events")
	metricsAddr := flag.String("metrics-addr", "", "Optional HTTP address for Prometheus /metrics")
	redisAddr := flag.String("redis-addr", "", "Optional Redis address for the shared relationship cache")
	synastry := flag.Bool("synastry", false, "Static grid mode: match body positions at -start against the chart targets instead of scanning the window")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start, end, err := parseWindow(*startRaw, *endRaw)
	if err != nil {
		fatal(log, "bad scan window", err)
	}

	collector, err := observability.NewScanCollector(nil)
	if err != nil {
		fatal(log, "failed to initialise metrics collector", err)
	}
	if *metricsAddr != "" {
		serveMetrics(*metricsAddr, collector, log)
	}

	tracer, shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		fatal(log, "failed to initialise tracing", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	provider, err := loadEphemeris(*ephemerisPath)
	if err != nil {
		fatal(log, "failed to load ephemeris table", err)
	}
	policy, err := loadPolicy(*policyPath)
	if err != nil {
		fatal(log, "failed to load orb policy", err)
	}
	chart, err := loadChart(*chartPath)
	if err != nil {
		fatal(log, "failed to load chart", err)
	}

	var shared cache.SharedStore
	if *redisAddr != "" {
		store, err := cache.NewRedisStore(ctx, *redisAddr, "", 0)
		if err != nil {
			// Shared cache is optional; a dead Redis degrades to local-only.
			log.Warn(ctx, "redis unavailable; relationship cache is local-only",
				logging.String("addr", *redisAddr), logging.String("error", err.Error()))
		} else {
			shared = store
			defer store.Close()
		}
	}
	relCache := cache.New(cache.Options{Shared: shared, Metrics: collector, Log: log})

	if *synastry {
		runSynastry(ctx, log, provider, policy, relCache, chart, parseBodies(*bodiesRaw), parseKinds(*kindsRaw), start)
		return
	}

	scanner := &core.Scanner{
		Provider:    provider,
		Policy:      policy,
		Log:         log,
		Metrics:     collector,
		Tracer:      tracer,
		ScoreEvents: *score,
	}

	req := core.ScanRequest{
		Start:   start,
		End:     end,
		Bodies:  parseBodies(*bodiesRaw),
		Targets: chart.targets,
		Kinds:   parseKinds(*kindsRaw),
		Profile: *profile,
	}

	report, err := scanner.Scan(ctx, req)
	if err != nil && report == nil {
		fatal(log, "scan failed", err)
	}
	if err != nil {
		log.Warn(ctx, "scan ended early", logging.String("error", err.Error()))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fatal(log, "failed to encode report", err)
	}
}

// runSynastry compares the bodies' positions at one instant against the
// chart targets, through the layered relationship cache.
func runSynastry(ctx context.Context, log logging.Logger, provider *ephem.TableProvider,
	policy *core.OrbPolicy, relCache *cache.Cache, chart *chartDoc,
	bodies []model.Body, kinds []model.Kind, at time.Time) {

	positions := make([]model.BodyPosition, 0, len(bodies))
	for _, body := range bodies {
		pos, err := provider.Position(ctx, body, at)
		if err != nil {
			fatal(log, "failed to read position for synastry grid", err)
		}
		positions = append(positions, pos)
	}

	svc := &core.SynastryService{Cache: relCache, Policy: policy}
	var events []model.Event
	for _, kind := range kinds {
		kindEvents, err := svc.Grid(ctx, core.GridRequest{
			Kind:      kind,
			Positions: positions,
			Targets:   chart.targets,
		})
		if err != nil {
			fatal(log, "synastry grid failed", err)
		}
		events = append(events, kindEvents...)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		fatal(log, "failed to encode grid", err)
	}
}

func parseWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("both -start and -end are required")
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad -start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad -end: %w", err)
	}
	return start.UTC(), end.UTC(), nil
}

func parseBodies(raw string) []model.Body {
	var out []model.Body
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, model.Body(part))
		}
	}
	return out
}

func parseKinds(raw string) []model.Kind {
	var out []model.Kind
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, model.Kind(part))
		}
	}
	return out
}

func loadEphemeris(path string) (*ephem.TableProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ephem.LoadTable(f)
}

func loadPolicy(path string) (*core.OrbPolicy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return core.LoadOrbPolicy(f)
}

// chartDoc is what the chart JSON resolves to: explicit targets plus any
// lot points derived from the chart's own longitudes.
type chartDoc struct {
	targets []model.TargetPoint
}

type chartJSON struct {
	Targets []struct {
		Name        string  `json:"name"`
		Longitude   float64 `json:"longitude"`
		Declination float64 `json:"declination"`
	} `json:"targets"`
	Ascendant  float64            `json:"ascendant"`
	IsDay      bool               `json:"is_day"`
	Longitudes map[string]float64 `json:"longitudes"`
	Lots       []string           `json:"lots"`
	Stars      []string           `json:"stars"`
}

func loadChart(path string) (*chartDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc chartJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("chart %q: decode failed: %w", path, err)
	}

	out := &chartDoc{}
	for _, t := range doc.Targets {
		out.targets = append(out.targets, model.TargetPoint{
			Name:        t.Name,
			Longitude:   core.Normalize(t.Longitude),
			Declination: t.Declination,
		})
	}
	if len(doc.Lots) > 0 {
		chart := core.ChartPoints{
			Ascendant:  doc.Ascendant,
			IsDay:      doc.IsDay,
			Longitudes: map[model.Body]float64{},
		}
		for body, lon := range doc.Longitudes {
			chart.Longitudes[model.Body(strings.ToLower(body))] = lon
		}
		lots, err := core.LotTargets(chart, doc.Lots)
		if err != nil {
			return nil, err
		}
		out.targets = append(out.targets, lots...)
	}
	if len(doc.Stars) > 0 {
		stars, err := core.StarTargets(doc.Stars...)
		if err != nil {
			return nil, err
		}
		out.targets = append(out.targets, stars...)
	}
	return out, nil
}

func serveMetrics(addr string, collector *observability.ScanCollector, log logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()
	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
}

func fatal(log logging.Logger, msg string, err error) {
	log.Error(context.Background(), msg, logging.String("error", err.Error()))
	os.Exit(1)
}
