package service

import (
	"context"
	"time"

	"github.com/skyventures840/skybet/internal/metrics"
	"github.com/skyventures840/skybet/pkg/contracts"
	"github.com/skyventures840/skybet/pkg/models"
)

// instrumentedProvider records call counts and latency for every provider call
type instrumentedProvider struct {
	inner   contracts.OddsProvider
	metrics *metrics.Metrics
}

func instrument(p contracts.OddsProvider, m *metrics.Metrics) contracts.OddsProvider {
	if m == nil {
		return p
	}
	return &instrumentedProvider{inner: p, metrics: m}
}

func (p *instrumentedProvider) ListSports(ctx context.Context) ([]models.Sport, error) {
	start := time.Now()
	sports, err := p.inner.ListSports(ctx)
	p.metrics.RecordProviderCall("sports", err, time.Since(start))
	return sports, err
}

func (p *instrumentedProvider) ListMarkets(ctx context.Context, sport string) ([]models.MarketDescriptor, error) {
	start := time.Now()
	mkts, err := p.inner.ListMarkets(ctx, sport)
	p.metrics.RecordProviderCall("markets", err, time.Since(start))
	return mkts, err
}

func (p *instrumentedProvider) GetOdds(ctx context.Context, query *models.OddsQuery) ([]models.Match, error) {
	start := time.Now()
	matches, err := p.inner.GetOdds(ctx, query)
	p.metrics.RecordProviderCall("odds", err, time.Since(start))
	return matches, err
}

func (p *instrumentedProvider) GetScores(ctx context.Context, sport string, daysFrom int) ([]models.Score, error) {
	start := time.Now()
	scores, err := p.inner.GetScores(ctx, sport, daysFrom)
	p.metrics.RecordProviderCall("scores", err, time.Since(start))
	return scores, err
}

func (p *instrumentedProvider) GetRateLimits() *models.RateLimits {
	return p.inner.GetRateLimits()
}
