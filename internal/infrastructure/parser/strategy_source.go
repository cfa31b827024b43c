package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"TrendRadar/internal/config"
	"TrendRadar/internal/domain"
	"TrendRadar/internal/logging"
	"TrendRadar/internal/ports"
	"TrendRadar/internal/retry"
	"TrendRadar/internal/scanner"
)

// StrategySource implements ports.Crawler via registered scanner strategies.
// Sources are fetched one after another behind a shared rate limiter, each with
// its own retry budget; a failing source is logged and skipped.
type StrategySource struct {
	registry *scanner.Registry
	baseURL  string
	limiter  *rate.Limiter
	retry    retry.Options
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.Crawler = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with crawler settings.
func NewStrategySource(reg *scanner.Registry, cfg config.CrawlerConfig, log *slog.Logger) *StrategySource {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	log = logging.OrDiscard(log)
	opts := retry.DefaultOptions()
	opts.Retries = cfg.Retries
	opts.Logger = log

	return &StrategySource{
		registry: reg,
		baseURL:  cfg.BaseURL,
		limiter:  rate.NewLimiter(limit, 1),
		retry:    opts,
		logger:   log.With("component", "crawler"),
		now:      time.Now,
	}
}

// FetchHotlists returns the ranked items of every source that answered.
func (s *StrategySource) FetchHotlists(ctx context.Context, sources []config.SourceConfig) []domain.RawItem {
	var aggregated []domain.RawItem
	for _, src := range sources {
		entries, fetchedAt, ok := s.fetch(ctx, src)
		if !ok {
			continue
		}
		for _, e := range entries {
			aggregated = append(aggregated, domain.RawItem{
				Title:     e.Title,
				URL:       e.URL,
				SourceID:  src.ID,
				Rank:      e.Rank,
				Score:     e.Score,
				FetchedAt: fetchedAt,
			})
		}
	}

	s.logger.Debug("hotlists fetched", "sources", len(sources), "items", len(aggregated))
	return aggregated
}

// FetchStreams turns every source entry into a stream item stamped with its fetch time.
func (s *StrategySource) FetchStreams(ctx context.Context, sources []config.SourceConfig) []domain.StreamItem {
	var aggregated []domain.StreamItem
	for _, src := range sources {
		entries, fetchedAt, ok := s.fetch(ctx, src)
		if !ok {
			continue
		}
		for _, e := range entries {
			aggregated = append(aggregated, domain.StreamItem{
				Timestamp: fetchedAt,
				SourceID:  src.ID,
				Content:   e.Title,
				URL:       e.URL,
			})
		}
	}

	s.logger.Debug("streams fetched", "sources", len(sources), "items", len(aggregated))
	return aggregated
}

func (s *StrategySource) fetch(ctx context.Context, src config.SourceConfig) ([]scanner.Entry, time.Time, bool) {
	entries, err := s.scanSource(ctx, src)
	if err != nil {
		s.logger.Error("fetch source failed", "source", src.ID, "error", err)
		return nil, time.Time{}, false
	}
	s.logger.Info("source fetched", "source", src.ID, "items", len(entries))
	return entries, s.now(), true
}

func (s *StrategySource) scanSource(ctx context.Context, src config.SourceConfig) ([]scanner.Entry, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	strategy, err := s.registry.Resolve(src.Type)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.ID, err)
	}

	req := scanner.Request{Source: src, BaseURL: s.baseURL}
	return retry.Value(ctx, s.retry, func(ctx context.Context) ([]scanner.Entry, error) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, retry.Permanent(err)
		}
		return strategy.Scan(ctx, req)
	})
}
