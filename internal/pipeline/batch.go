package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"interview-intel/internal/crawl"
	"interview-intel/internal/ratelimit"
)

// RunBatchAnalysis analyzes several companies with a bounded worker
// pool. Duplicate names are collapsed after canonicalization. One
// company failing never aborts the batch; its run lands in Errors and
// the rest continue.
func (m *Manager) RunBatchAnalysis(ctx context.Context, companies []string, maxExperiences int) *BatchResult {
	start := m.now()

	seen := make(map[string]struct{}, len(companies))
	var unique []string
	for _, c := range companies {
		name := m.canonicalName(c)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	out := &BatchResult{
		CompaniesProcessed: []*AnalysisResult{},
		Errors:             []BatchError{},
	}
	if len(unique) == 0 {
		out.SummaryStats = &BatchSummary{}
		out.TotalTimeSeconds = round2(m.now().Sub(start).Seconds())
		return out
	}

	log.Info().Int("companies", len(unique)).Int("workers", m.batchWorkers).Msg("Starting batch analysis")

	results := make([]*AnalysisResult, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.batchWorkers)
	for i, name := range unique {
		i, name := i, name
		g.Go(func() error {
			results[i] = m.RunCompleteAnalysis(gctx, name, maxExperiences, false)
			return nil
		})
	}
	// Workers report failures through their results, never as errors.
	_ = g.Wait()

	var (
		successes        int
		totalExperiences int
		totalTopics      int
		totalSeconds     float64
	)
	for _, res := range results {
		out.CompaniesProcessed = append(out.CompaniesProcessed, res)
		switch res.Status {
		case StatusError:
			out.Errors = append(out.Errors, BatchError{Company: res.Company, Error: res.Error})
		case StatusSuccess:
			successes++
			if res.DataCollection != nil {
				totalExperiences += res.DataCollection.TotalExperiences
			}
			if res.AnalysisResults != nil {
				totalTopics += len(res.AnalysisResults.UniqueTopics)
			}
			if res.Performance != nil {
				totalSeconds += res.Performance.TotalTimeSeconds
			}
		}
	}
	out.SummaryStats = &BatchSummary{
		SuccessfulCompanies:      successes,
		FailedCompanies:          len(out.Errors),
		TotalExperiencesAnalyzed: totalExperiences,
		TotalUniqueTopicsFound:   totalTopics,
		AverageProcessingTime:    round2(totalSeconds / float64(max(successes, 1))),
	}
	out.TotalTimeSeconds = round2(m.now().Sub(start).Seconds())

	log.Info().Int("successful", successes).Int("failed", len(out.Errors)).
		Float64("seconds", out.TotalTimeSeconds).Msg("Batch analysis finished")
	return out
}

// Health reports database reachability, per-platform crawl and rate
// limiter counters, session stats, and store totals. It never fails;
// unreachable parts are reported as such.
func (m *Manager) Health(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Timestamp:        m.now().UTC(),
		ScraperStats:     make(map[string]crawl.Stats),
		RateLimiterStats: make(map[string]ratelimit.Stats),
	}

	if err := m.store.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Database health check failed")
	} else {
		report.DatabaseHealth = true
	}

	for _, src := range m.sources {
		platform := src.Adapter.Platform()
		if src.Engine != nil {
			report.ScraperStats[platform] = src.Engine.GetStats()
		}
		if src.Limiter != nil {
			report.RateLimiterStats[platform] = src.Limiter.GetStats()
		}
	}

	report.SessionStats = m.sessionSnapshot()

	totals, err := m.store.Totals(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load system totals")
	} else {
		report.SystemPerformance = totals
	}
	return report
}
