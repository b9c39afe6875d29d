// Package service is the single entry point both user-facing surfaces (CLI
// and HTTP) call into. It owns the loaded catalog and wires the pure
// matcher to the optional cache, metrics, analytics and advice client, so
// the two surfaces cannot drift apart in how they rank or alert.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medmind/internal/advice"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/matcher/cache"
	"github.com/Adithya-Monish-Kumar-K/medmind/internal/symptom"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/metrics"
)

// Advisor produces free-text advice; *advice.Client satisfies it.
type Advisor interface {
	Ask(ctx context.Context, symptoms string, history ...advice.Turn) (string, error)
}

// Options carries the optional collaborators. Nil fields are skipped.
// When CacheStore is set, reports are cached for CacheTTL under the
// catalog's version.
type Options struct {
	CacheStore  cache.Store
	CacheTTL    time.Duration
	Metrics     *metrics.Metrics
	Tracker     analytics.Tracker
	Advisor     Advisor
	DefaultTopN int
	MaxTopN     int
}

type Service struct {
	catalog     *catalog.Catalog
	entries     []catalog.DiseaseEntry
	cache       *cache.ReportCache
	metrics     *metrics.Metrics
	tracker     analytics.Tracker
	advisor     Advisor
	defaultTopN int
	maxTopN     int
	logger      *slog.Logger
}

func New(c *catalog.Catalog, opts Options) *Service {
	if opts.DefaultTopN <= 0 {
		opts.DefaultTopN = matcher.DefaultTopN
	}
	if opts.MaxTopN < opts.DefaultTopN {
		opts.MaxTopN = opts.DefaultTopN
	}
	if opts.Tracker == nil {
		opts.Tracker = analytics.NopTracker{}
	}
	if opts.Metrics != nil {
		opts.Metrics.CatalogEntries.Set(float64(c.Len()))
	}
	var rc *cache.ReportCache
	if opts.CacheStore != nil {
		rc = cache.New(opts.CacheStore, opts.CacheTTL, c.Version())
	}
	return &Service{
		catalog:     c,
		entries:     c.Entries(),
		cache:       rc,
		metrics:     opts.Metrics,
		tracker:     opts.Tracker,
		advisor:     opts.Advisor,
		defaultTopN: opts.DefaultTopN,
		maxTopN:     opts.MaxTopN,
		logger:      slog.Default().With("component", "symptom-service"),
	}
}

// Catalog returns the reference data the service was built with.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Cache returns the report cache, or nil when caching is disabled.
func (s *Service) Cache() *cache.ReportCache {
	return s.cache
}

func (s *Service) DefaultTopN() int {
	return s.defaultTopN
}

// ClampTopN applies the configured bounds: zero selects the default and
// values above the maximum are capped. Negative values pass through and
// yield an empty ranking.
func (s *Service) ClampTopN(topN int) int {
	if topN == 0 {
		return s.defaultTopN
	}
	if topN > s.maxTopN {
		return s.maxTopN
	}
	return topN
}

// Check ranks the catalog against userInput.
func (s *Service) Check(ctx context.Context, surface analytics.Surface, userInput string, topN int) (*matcher.Report, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	topN = s.ClampTopN(topN)
	query := symptom.Parse(userInput)

	compute := func() (*matcher.Report, error) {
		return matcher.Match(userInput, s.entries, topN)
	}

	var (
		report   *matcher.Report
		cacheHit bool
		err      error
	)
	if s.cache != nil && query.Len() > 0 {
		report, cacheHit, err = s.cache.GetOrCompute(ctx, query, topN, compute)
		s.observeCache(cacheHit)
	} else {
		report, err = compute()
	}
	latency := time.Since(start)

	if err != nil {
		log.Error("symptom match failed", "error", err)
		s.observeOutcome(metrics.OutcomeError)
		return nil, err
	}

	log.Info("symptom match completed",
		"surface", surface,
		"query_tokens", len(report.Query),
		"total_matches", report.TotalMatches,
		"returned", len(report.Results),
		"severe_alert", report.SevereAlert,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	s.observeReport(report, cacheHit, latency)

	event := analytics.MatchEvent{
		Type:         analytics.MatchEventType(report.TotalMatches, report.SevereAlert),
		Surface:      surface,
		Query:        report.Query,
		TopN:         topN,
		TotalMatches: report.TotalMatches,
		Returned:     len(report.Results),
		SevereAlert:  report.SevereAlert,
		CacheHit:     cacheHit,
		LatencyMs:    latency.Milliseconds(),
		Timestamp:    time.Now().UTC(),
		RequestID:    logger.RequestIDFromContext(ctx),
	}
	if !report.Empty() {
		event.TopDisease = report.Results[0].Disease
	}
	s.tracker.Track(event)
	return report, nil
}

// Lookup returns the catalog entry with exactly the given name.
func (s *Service) Lookup(name string) (catalog.DiseaseEntry, error) {
	return s.catalog.Lookup(name)
}

// Names lists the catalog's disease names for browsing.
func (s *Service) Names() []string {
	return s.catalog.Names()
}

// Advise asks the remote model for advice, replaying earlier turns of the
// conversation when given. It always returns a displayable string; failures
// are logged and counted but never returned.
func (s *Service) Advise(ctx context.Context, surface analytics.Surface, symptoms string, history ...advice.Turn) string {
	if s.advisor == nil {
		s.logger.Debug("advice requested but no advisor configured")
		return advice.MissingKeyMessage
	}
	start := time.Now()
	text, err := s.advisor.Ask(ctx, symptoms, history...)
	outcome := advice.Outcome(err)
	if err != nil {
		text = advice.Message(err)
		logger.FromContext(ctx).Warn("advice unavailable", "outcome", outcome, "error", err)
	}
	if s.metrics != nil {
		s.metrics.AdviceRequestsTotal.WithLabelValues(outcome).Inc()
	}
	s.tracker.Track(analytics.AdviceEvent{
		Type:         analytics.EventAdvice,
		Surface:      surface,
		Outcome:      outcome,
		HistoryTurns: len(history),
		LatencyMs:    time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC(),
		RequestID:    logger.RequestIDFromContext(ctx),
	})
	return text
}

func (s *Service) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	result := metrics.OutcomeCacheMiss
	if hit {
		result = metrics.OutcomeCacheHit
	}
	s.metrics.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (s *Service) observeOutcome(outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.MatchQueriesTotal.WithLabelValues(outcome).Inc()
}

func (s *Service) observeReport(report *matcher.Report, cacheHit bool, latency time.Duration) {
	if s.metrics == nil {
		return
	}
	switch {
	case len(report.Query) == 0:
		s.observeOutcome(metrics.OutcomeEmptyQuery)
	case report.TotalMatches == 0:
		s.observeOutcome(metrics.OutcomeNoMatch)
	default:
		s.observeOutcome(metrics.OutcomeMatched)
	}
	cacheStatus := "uncached"
	if s.cache != nil {
		cacheStatus = metrics.OutcomeCacheMiss
		if cacheHit {
			cacheStatus = metrics.OutcomeCacheHit
		}
	}
	s.metrics.MatchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
	s.metrics.MatchResultsCount.Observe(float64(report.TotalMatches))
	if report.SevereAlert {
		s.metrics.SevereAlertsTotal.Inc()
	}
}
