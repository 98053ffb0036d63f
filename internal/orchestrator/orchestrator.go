// Package orchestrator drives the provider calls needed to cover every market
// of a sport, falling back across bookmaker groups and pacing each call.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/skyventures840/skybet/internal/merge"
	"github.com/skyventures840/skybet/internal/metrics"
	"github.com/skyventures840/skybet/pkg/contracts"
	"github.com/skyventures840/skybet/pkg/markets"
	"github.com/skyventures840/skybet/pkg/models"
)

// DefaultPaceInterval is the pause after every provider call
const DefaultPaceInterval = time.Second

// Config holds orchestrator settings
type Config struct {
	// BookmakerGroups are tried in order for every market
	BookmakerGroups [][]string

	// PaceInterval is the pause between the end of one provider call and the
	// start of the next. Zero means
	// DefaultPaceInterval; a negative value disables pacing.
	PaceInterval time.Duration

	// DefaultMarkets is used when the provider lists no markets for a sport
	DefaultMarkets []string
}

// Orchestrator runs full-sport fetches. It holds no per-fetch state and is
// safe for concurrent use.
type Orchestrator struct {
	groups         [][]string
	pace           time.Duration
	defaultMarkets []string
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

// Result is the outcome of one FetchAll
type Result struct {
	Sport   string
	Matches *models.MatchSet
	Trials  []*Trial
	// Raw holds every payload returned by a successful group, in call order
	Raw []models.Match
}

// Exhausted returns the markets for which every bookmaker group came back empty
func (r *Result) Exhausted() []string {
	var out []string
	for _, t := range r.Trials {
		if t.State == StateExhausted {
			out = append(out, t.Market)
		}
	}
	return out
}

// New creates an orchestrator
func New(cfg Config, logger zerolog.Logger, m *metrics.Metrics) *Orchestrator {
	pace := cfg.PaceInterval
	if pace == 0 {
		pace = DefaultPaceInterval
	}

	defaults := cfg.DefaultMarkets
	if len(defaults) == 0 {
		defaults = markets.DefaultFetchMarkets()
	}

	groups := make([][]string, 0, len(cfg.BookmakerGroups))
	for _, g := range cfg.BookmakerGroups {
		if len(g) > 0 {
			groups = append(groups, append([]string(nil), g...))
		}
	}

	return &Orchestrator{
		groups:         groups,
		pace:           pace,
		defaultMarkets: append([]string(nil), defaults...),
		logger:         logger.With().Str("component", "orchestrator").Logger(),
		metrics:        m,
	}
}

// FetchAll covers every market of sport using provider and returns the merged
// matches.
//
// Markets are processed in listed order and groups in declared order; calls are
// strictly sequential and paced. A market whose groups all fail or come back
// empty contributes nothing and is logged as partial data. Errors listing the
// markets, and context cancellation, abort the fetch.
func (o *Orchestrator) FetchAll(ctx context.Context, provider contracts.OddsProvider, sport string) (*Result, error) {
	log := o.logger.With().Str("sport", sport).Logger()
	pacer := newPacer(o.pace)

	if err := pacer.wait(ctx); err != nil {
		return nil, err
	}

	descriptors, err := provider.ListMarkets(ctx, sport)
	pacer.done()
	if err != nil {
		return nil, fmt.Errorf("list markets for %s: %w", sport, err)
	}

	marketKeys := o.marketKeys(descriptors)
	log.Debug().Strs("markets", marketKeys).Msg("fetching markets")

	result := &Result{
		Sport:  sport,
		Trials: make([]*Trial, 0, len(marketKeys)),
	}

	for _, market := range marketKeys {
		trial := NewTrial(market)
		result.Trials = append(result.Trials, trial)

		for trial.Start(len(o.groups)); trial.State == StateTrying; {
			if err := pacer.wait(ctx); err != nil {
				return nil, err
			}

			group := o.groups[trial.Group]
			matches, err := provider.GetOdds(ctx, &models.OddsQuery{
				Sport:      sport,
				Markets:    []string{market},
				Bookmakers: group,
			})
			pacer.done()
			if err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}

			if err != nil {
				log.Info().Err(err).
					Str("market", market).
					Int("group", trial.Group).
					Strs("bookmakers", group).
					Msg("bookmaker group failed, trying next")
			}

			if err == nil && len(matches) > 0 {
				result.Raw = append(result.Raw, matches...)
			}
			trial.Observe(group, len(matches), err)
		}

		o.metrics.RecordMarketTrial(sport, trial.State.String())

		if trial.State == StateExhausted {
			log.Warn().
				Str("market", market).
				Int("groups_tried", len(trial.Attempts)).
				Msg("partial data: no bookmaker group returned odds for market")
		}
	}

	result.Matches = merge.Merge(result.Raw)
	o.metrics.SetMergedMatches(sport, result.Matches.Len())

	log.Info().
		Int("markets", len(marketKeys)).
		Int("raw_payloads", len(result.Raw)).
		Int("matches", result.Matches.Len()).
		Int("exhausted", len(result.Exhausted())).
		Msg("sport fetch complete")

	return result, nil
}

// marketKeys returns the listed market keys without duplicates, or the default
// list when the provider has none
func (o *Orchestrator) marketKeys(descriptors []models.MarketDescriptor) []string {
	seen := make(map[string]bool, len(descriptors))
	keys := make([]string, 0, len(descriptors))

	for _, d := range descriptors {
		if d.Key == "" || seen[d.Key] {
			continue
		}
		seen[d.Key] = true
		keys = append(keys, d.Key)
	}

	if len(keys) == 0 {
		return append([]string(nil), o.defaultMarkets...)
	}
	return keys
}
