package testutil

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/skyventures840/skybet/pkg/contracts"
	"github.com/skyventures840/skybet/pkg/models"
)

// NewTestMatch creates a match with no bookmakers
func NewTestMatch(id, homeTeam, awayTeam string, hoursUntilStart float64) models.Match {
	return models.Match{
		ID:           id,
		SportKey:     "basketball_nba",
		League:       "NBA",
		CommenceTime: time.Date(2026, 10, 20, 23, 30, 0, 0, time.UTC).Add(time.Duration(hoursUntilStart * float64(time.Hour))),
		HomeTeam:     homeTeam,
		AwayTeam:     awayTeam,
		Bookmakers:   []models.Bookmaker{},
	}
}

// WithBookmakers returns m with the given bookmakers attached
func WithBookmakers(m models.Match, books ...models.Bookmaker) models.Match {
	m.Bookmakers = books
	return m
}

// NewTestBookmaker creates a bookmaker entry
func NewTestBookmaker(key string, mkts ...models.Market) models.Bookmaker {
	return models.Bookmaker{
		Key:     key,
		Title:   strings.ToUpper(key[:1]) + key[1:],
		Markets: mkts,
	}
}

// NewTestMarket creates a market entry
func NewTestMarket(key string, outcomes ...models.Outcome) models.Market {
	return models.Market{
		Key:      key,
		Outcomes: outcomes,
	}
}

// NewTestOutcome creates an outcome; pass nil point for h2h-style markets
func NewTestOutcome(name string, price float64, point *float64) models.Outcome {
	return models.Outcome{
		Name:  name,
		Price: price,
		Point: point,
	}
}

// PtrFloat64 creates a pointer to float64
func PtrFloat64(val float64) *float64 {
	return &val
}

// GoldenMatches returns a small NBA slate quoted by two bookmakers
func GoldenMatches() []models.Match {
	return []models.Match{
		WithBookmakers(NewTestMatch("game1", "Boston Celtics", "Los Angeles Lakers", 0),
			NewTestBookmaker("fanduel",
				NewTestMarket("h2h",
					NewTestOutcome("Boston Celtics", 1.65, nil),
					NewTestOutcome("Los Angeles Lakers", 2.30, nil),
				),
				NewTestMarket("spreads",
					NewTestOutcome("Boston Celtics", 1.91, PtrFloat64(-4.5)),
					NewTestOutcome("Los Angeles Lakers", 1.91, PtrFloat64(4.5)),
				),
			),
		),
		WithBookmakers(NewTestMatch("game2", "Denver Nuggets", "Phoenix Suns", 24),
			NewTestBookmaker("draftkings",
				NewTestMarket("totals",
					NewTestOutcome("Over", 1.87, PtrFloat64(229.5)),
					NewTestOutcome("Under", 1.95, PtrFloat64(229.5)),
				),
			),
		),
	}
}

// OddsCall records one GetOdds invocation
type OddsCall struct {
	Sport      string
	Markets    []string
	Bookmakers []string
	Regions    []string
}

// MockProvider is a test provider that returns predetermined data and records
// every GetOdds call
type MockProvider struct {
	ListSportsFunc  func() ([]models.Sport, error)
	ListMarketsFunc func(sport string) ([]models.MarketDescriptor, error)
	GetOddsFunc     func(query *models.OddsQuery) ([]models.Match, error)
	GetScoresFunc   func(sport string, daysFrom int) ([]models.Score, error)

	mu    sync.Mutex
	calls []OddsCall
}

var _ contracts.OddsProvider = (*MockProvider)(nil)

func (m *MockProvider) ListSports(ctx context.Context) ([]models.Sport, error) {
	if m.ListSportsFunc != nil {
		return m.ListSportsFunc()
	}
	return []models.Sport{}, nil
}

func (m *MockProvider) ListMarkets(ctx context.Context, sport string) ([]models.MarketDescriptor, error) {
	if m.ListMarketsFunc != nil {
		return m.ListMarketsFunc(sport)
	}
	return []models.MarketDescriptor{}, nil
}

func (m *MockProvider) GetOdds(ctx context.Context, query *models.OddsQuery) ([]models.Match, error) {
	m.mu.Lock()
	m.calls = append(m.calls, OddsCall{
		Sport:      query.Sport,
		Markets:    append([]string(nil), query.Markets...),
		Bookmakers: append([]string(nil), query.Bookmakers...),
		Regions:    append([]string(nil), query.Regions...),
	})
	m.mu.Unlock()

	if m.GetOddsFunc != nil {
		return m.GetOddsFunc(query)
	}
	return []models.Match{}, nil
}

func (m *MockProvider) GetScores(ctx context.Context, sport string, daysFrom int) ([]models.Score, error) {
	if m.GetScoresFunc != nil {
		return m.GetScoresFunc(sport, daysFrom)
	}
	return []models.Score{}, nil
}

func (m *MockProvider) GetRateLimits() *models.RateLimits {
	return &models.RateLimits{
		RequestsRemaining: 500,
		RequestsUsed:      0,
	}
}

// OddsCalls returns the recorded GetOdds calls in order
func (m *MockProvider) OddsCalls() []OddsCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]OddsCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// MemoryArchive collects appended fetch records
type MemoryArchive struct {
	mu      sync.Mutex
	Records []models.FetchRecord
	Err     error
}

func (a *MemoryArchive) Append(ctx context.Context, record models.FetchRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Err != nil {
		return a.Err
	}
	a.Records = append(a.Records, record)
	return nil
}

// Len returns the number of stored records
func (a *MemoryArchive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Records)
}

// MemorySnapshots collects written snapshots
type MemorySnapshots struct {
	mu        sync.Mutex
	Snapshots []models.Snapshot
	Err       error
}

func (s *MemorySnapshots) WriteSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	s.Snapshots = append(s.Snapshots, snapshot)
	return nil
}

// Len returns the number of stored snapshots
func (s *MemorySnapshots) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Snapshots)
}
