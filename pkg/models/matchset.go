package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// MatchSet maps match id to Match while remembering first-insertion order
type MatchSet struct {
	order []string
	byID  map[string]*Match
}

// NewMatchSet creates an empty match set
func NewMatchSet() *MatchSet {
	return &MatchSet{
		byID: make(map[string]*Match),
	}
}

// Get returns the match stored under id
func (s *MatchSet) Get(id string) (*Match, bool) {
	m, ok := s.byID[id]
	return m, ok
}

// GetOrCreate returns the stored match for m.ID, creating it from m's top-level
// fields (without bookmakers) when absent
func (s *MatchSet) GetOrCreate(m Match) *Match {
	if existing, ok := s.byID[m.ID]; ok {
		return existing
	}

	created := &Match{
		ID:           m.ID,
		SportKey:     m.SportKey,
		League:       m.League,
		CommenceTime: m.CommenceTime,
		HomeTeam:     m.HomeTeam,
		AwayTeam:     m.AwayTeam,
		Bookmakers:   []Bookmaker{},
	}
	s.byID[m.ID] = created
	s.order = append(s.order, m.ID)
	return created
}

// Len returns the number of matches
func (s *MatchSet) Len() int {
	return len(s.order)
}

// IDs returns match ids in insertion order
func (s *MatchSet) IDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Matches returns the matches in insertion order
func (s *MatchSet) Matches() []Match {
	out := make([]Match, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// MarshalJSON encodes the set as a JSON object keyed by match id, preserving
// insertion order
func (s *MatchSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, id := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := json.Marshal(s.byID[id])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Fetch kinds recorded in the raw archive
const (
	FetchKindOdds   = "odds"
	FetchKindScores = "scores"
	FetchKindMerged = "merged"
)

// FetchRecord is an append-only archive entry for one successful provider fetch
type FetchRecord struct {
	ID        string      `bson:"id" json:"id"`
	Sport     string      `bson:"sport" json:"sport"`
	Kind      string      `bson:"kind" json:"kind"`
	CacheKey  string      `bson:"cache_key" json:"cache_key"`
	FetchedAt time.Time   `bson:"fetched_at" json:"fetched_at"`
	Payload   interface{} `bson:"payload" json:"payload"`
}

// Snapshot is one merged fetch cycle for a sport. Snapshots are never updated;
// every cycle writes a new one.
type Snapshot struct {
	ID        string
	Sport     string
	FetchedAt time.Time
	Matches   []Match
}
