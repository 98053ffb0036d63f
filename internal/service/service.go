// Package service implements the odds use cases behind the HTTP surface:
// cache lookups, provider fetches and best-effort persistence.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/skyventures840/skybet/internal/metrics"
	"github.com/skyventures840/skybet/internal/orchestrator"
	"github.com/skyventures840/skybet/internal/registry"
	"github.com/skyventures840/skybet/pkg/contracts"
	"github.com/skyventures840/skybet/pkg/models"
)

const defaultPersistTimeout = 15 * time.Second

// Config holds service settings
type Config struct {
	OddsTTL         time.Duration
	ScoresTTL       time.Duration
	MergedTTL       time.Duration
	PersistTimeout  time.Duration
	DefaultDaysFrom int
	QueryDefaults   QueryDefaults
}

// Deps are the collaborators of the service. Archive and Snapshots may be nil.
type Deps struct {
	Providers    contracts.ProviderFactory
	Orchestrator *orchestrator.Orchestrator
	Cache        contracts.Cache
	Archive      contracts.FetchArchive
	Snapshots    contracts.SnapshotWriter
	Registry     *registry.SportRegistry
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

// Result is an encoded payload ready to be served
type Result struct {
	Data   json.RawMessage
	Cached bool
}

// OddsService serves odds, scores and sports
type OddsService struct {
	cfg          Config
	providers    contracts.ProviderFactory
	orchestrator *orchestrator.Orchestrator
	cache        contracts.Cache
	archive      contracts.FetchArchive
	snapshots    contracts.SnapshotWriter
	registry     *registry.SportRegistry
	metrics      *metrics.Metrics
	logger       zerolog.Logger

	persistWG sync.WaitGroup
}

// New creates the odds service
func New(cfg Config, deps Deps) *OddsService {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	if cfg.DefaultDaysFrom <= 0 {
		cfg.DefaultDaysFrom = 3
	}
	if cfg.QueryDefaults.DefaultRegion == "" {
		cfg.QueryDefaults.DefaultRegion = "us"
	}

	return &OddsService{
		cfg:          cfg,
		providers:    deps.Providers,
		orchestrator: deps.Orchestrator,
		cache:        deps.Cache,
		archive:      deps.Archive,
		snapshots:    deps.Snapshots,
		registry:     deps.Registry,
		metrics:      deps.Metrics,
		logger:       deps.Logger.With().Str("component", "service").Logger(),
	}
}

// PrematchLiveOdds returns odds for one sport/market/bookmaker selection
func (s *OddsService) PrematchLiveOdds(ctx context.Context, req OddsRequest) (*Result, error) {
	if err := requireAPIKey(req.APIKey); err != nil {
		return nil, err
	}

	query, err := ResolveOddsQuery(req, s.registry, s.cfg.QueryDefaults)
	if err != nil {
		return nil, err
	}

	provider := s.provider(req.APIKey)
	return s.getOrFetch(ctx, models.FetchKindOdds, query.Sport, query.CacheKey(), s.cfg.OddsTTL,
		func(ctx context.Context) (interface{}, error) {
			matches, err := provider.GetOdds(ctx, query)
			if err != nil {
				return nil, err
			}
			s.persistFetch(models.FetchKindOdds, query.Sport, query.CacheKey(), matches)
			return matches, nil
		})
}

// Scores returns live and recently completed scores
func (s *OddsService) Scores(ctx context.Context, req ScoresRequest) (*Result, error) {
	if err := requireAPIKey(req.APIKey); err != nil {
		return nil, err
	}

	sport := strings.TrimSpace(req.Sport)
	if sport == "" {
		return nil, contracts.BadRequestf("sport is required")
	}

	daysFrom := req.DaysFrom
	if daysFrom <= 0 {
		daysFrom = s.cfg.DefaultDaysFrom
	}

	key := ScoresCacheKey(sport, daysFrom)
	provider := s.provider(req.APIKey)
	return s.getOrFetch(ctx, models.FetchKindScores, sport, key, s.cfg.ScoresTTL,
		func(ctx context.Context) (interface{}, error) {
			scores, err := provider.GetScores(ctx, sport, daysFrom)
			if err != nil {
				return nil, err
			}
			s.persistFetch(models.FetchKindScores, sport, key, scores)
			return scores, nil
		})
}

// Sports lists the provider's sports. Never cached.
func (s *OddsService) Sports(ctx context.Context, apiKey string) (*Result, error) {
	if err := requireAPIKey(apiKey); err != nil {
		return nil, err
	}

	sports, err := s.provider(apiKey).ListSports(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(sports)
	if err != nil {
		return nil, fmt.Errorf("encode sports: %w", err)
	}
	return &Result{Data: data}, nil
}

// MergedOdds returns the merged odds for every market of a sport, served from
// cache when fresh
func (s *OddsService) MergedOdds(ctx context.Context, sport, apiKey string) (*Result, error) {
	if err := requireAPIKey(apiKey); err != nil {
		return nil, err
	}

	sport = strings.TrimSpace(sport)
	if sport == "" {
		return nil, contracts.BadRequestf("sport is required")
	}

	provider := s.provider(apiKey)
	return s.getOrFetch(ctx, models.FetchKindMerged, sport, MergedCacheKey(sport), s.cfg.MergedTTL,
		func(ctx context.Context) (interface{}, error) {
			return s.fetchMerged(ctx, provider, sport)
		})
}

// RefreshMerged runs a full fetch for sport and overwrites its cached merged
// odds. Used by the prefetch scheduler.
func (s *OddsService) RefreshMerged(ctx context.Context, sport, apiKey string) error {
	if err := requireAPIKey(apiKey); err != nil {
		return err
	}

	matches, err := s.fetchMerged(ctx, s.provider(apiKey), sport)
	if err != nil {
		return err
	}

	data, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("encode merged odds: %w", err)
	}

	s.cacheSet(ctx, MergedCacheKey(sport), data, s.cfg.MergedTTL)
	return nil
}

// Close waits for in-flight persistence to finish or ctx to expire
func (s *OddsService) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.persistWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for persistence: %w", ctx.Err())
	}
}

// ScoresCacheKey builds the scores cache key
// Format: {sport}_{daysFrom}
func ScoresCacheKey(sport string, daysFrom int) string {
	return sport + "_" + strconv.Itoa(daysFrom)
}

// MergedCacheKey builds the merged odds cache key
// Format: {sport}_merged
func MergedCacheKey(sport string) string {
	return sport + "_merged"
}

func (s *OddsService) fetchMerged(ctx context.Context, provider contracts.OddsProvider, sport string) (*models.MatchSet, error) {
	result, err := s.orchestrator.FetchAll(ctx, provider, sport)
	if err != nil {
		return nil, err
	}

	if len(result.Raw) > 0 {
		s.persistFetch(models.FetchKindMerged, sport, MergedCacheKey(sport), result.Raw)
		s.persistSnapshot(models.Snapshot{
			ID:        uuid.NewString(),
			Sport:     sport,
			FetchedAt: time.Now().UTC(),
			Matches:   result.Matches.Matches(),
		})
	}

	return result.Matches, nil
}

// getOrFetch serves key from cache, or runs fetch, caches the encoded payload
// and returns it
func (s *OddsService) getOrFetch(
	ctx context.Context,
	kind, sport, key string,
	ttl time.Duration,
	fetch func(context.Context) (interface{}, error),
) (*Result, error) {
	if data, ok := s.cacheGet(ctx, kind, key); ok {
		return &Result{Data: data, Cached: true}, nil
	}

	payload, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}

	s.cacheSet(ctx, key, data, ttl)

	s.logger.Debug().Str("kind", kind).Str("sport", sport).Str("cache_key", key).Msg("served from provider")
	return &Result{Data: data}, nil
}

// cacheGet treats cache errors as misses
func (s *OddsService) cacheGet(ctx context.Context, kind, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("cache get failed")
		ok = false
	}

	s.metrics.RecordCacheLookup(kind, ok)
	return data, ok
}

func (s *OddsService) cacheSet(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("cache set failed")
	}
}

func (s *OddsService) provider(apiKey string) contracts.OddsProvider {
	return instrument(s.providers(apiKey), s.metrics)
}

// persistFetch appends a raw fetch to the archive in the background
func (s *OddsService) persistFetch(kind, sport, key string, payload interface{}) {
	if s.archive == nil {
		return
	}

	record := models.FetchRecord{
		ID:        uuid.NewString(),
		Sport:     sport,
		Kind:      kind,
		CacheKey:  key,
		FetchedAt: time.Now().UTC(),
		Payload:   payload,
	}

	s.runPersist("archive", func(ctx context.Context) error {
		return s.archive.Append(ctx, record)
	})
}

// persistSnapshot writes a merged snapshot in the background
func (s *OddsService) persistSnapshot(snapshot models.Snapshot) {
	if s.snapshots == nil {
		return
	}

	s.runPersist("snapshots", func(ctx context.Context) error {
		return s.snapshots.WriteSnapshot(ctx, snapshot)
	})
}

// runPersist runs write on its own goroutine and deadline, detached from the
// request. Failures are logged and counted, never returned.
func (s *OddsService) runPersist(sink string, write func(context.Context) error) {
	s.persistWG.Add(1)
	go func() {
		defer s.persistWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistTimeout)
		defer cancel()

		if err := write(ctx); err != nil {
			s.metrics.RecordPersistFailure(sink)
			s.logger.Error().Err(err).Str("sink", sink).Msg("persist failed")
		}
	}()
}

func requireAPIKey(apiKey string) error {
	if strings.TrimSpace(apiKey) == "" {
		return contracts.BadRequestf("api_key is required")
	}
	return nil
}
