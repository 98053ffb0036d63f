package models

import (
	"strings"
	"time"
)

// Sport is a sport listed by the odds provider
type Sport struct {
	Key          string `json:"key" bson:"key"`
	Group        string `json:"group" bson:"group"`
	Title        string `json:"title" bson:"title"`
	Description  string `json:"description" bson:"description"`
	Active       bool   `json:"active" bson:"active"`
	HasOutrights bool   `json:"has_outrights" bson:"has_outrights"`
}

// MarketDescriptor describes a market the provider offers for a sport
type MarketDescriptor struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
}

// Outcome is a single priced selection inside a market (decimal odds)
type Outcome struct {
	Name        string   `json:"name" bson:"name"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Price       float64  `json:"price" bson:"price"`
	Point       *float64 `json:"point,omitempty" bson:"point,omitempty"` // For spreads/totals
}

// Market groups the outcomes a bookmaker quotes for one market key
type Market struct {
	Key        string    `json:"key" bson:"key"`
	LastUpdate time.Time `json:"last_update" bson:"last_update"`
	Outcomes   []Outcome `json:"outcomes" bson:"outcomes"`
}

// Bookmaker is one bookmaker's quotes for a match
type Bookmaker struct {
	Key        string    `json:"key" bson:"key"`
	Title      string    `json:"title" bson:"title"`
	LastUpdate time.Time `json:"last_update" bson:"last_update"`
	Markets    []Market  `json:"markets" bson:"markets"`
}

// Match is a sporting event with the bookmaker quotes collected for it.
// League carries the provider's sport title (e.g. "NBA", "EPL").
type Match struct {
	ID           string      `json:"id" bson:"id"`
	SportKey     string      `json:"sport_key" bson:"sport_key"`
	League       string      `json:"sport_title" bson:"sport_title"`
	CommenceTime time.Time   `json:"commence_time" bson:"commence_time"`
	HomeTeam     string      `json:"home_team" bson:"home_team"`
	AwayTeam     string      `json:"away_team" bson:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers" bson:"bookmakers"`
}

// TeamScore is a team's score inside a Score entry
type TeamScore struct {
	Name  string `json:"name" bson:"name"`
	Score string `json:"score" bson:"score"`
}

// Score is a live or completed game score
type Score struct {
	ID           string      `json:"id" bson:"id"`
	SportKey     string      `json:"sport_key" bson:"sport_key"`
	League       string      `json:"sport_title" bson:"sport_title"`
	CommenceTime time.Time   `json:"commence_time" bson:"commence_time"`
	Completed    bool        `json:"completed" bson:"completed"`
	HomeTeam     string      `json:"home_team" bson:"home_team"`
	AwayTeam     string      `json:"away_team" bson:"away_team"`
	Scores       []TeamScore `json:"scores" bson:"scores"`
	LastUpdate   *time.Time  `json:"last_update" bson:"last_update"`
}

// OddsQuery contains parameters for a single odds call.
// Bookmakers takes precedence over Regions when both are set.
type OddsQuery struct {
	Sport      string
	Markets    []string
	Regions    []string
	Bookmakers []string
}

// Selector returns the comma-joined bookmaker list, or the region list when no
// bookmakers are selected
func (q *OddsQuery) Selector() string {
	if len(q.Bookmakers) > 0 {
		return strings.Join(q.Bookmakers, ",")
	}
	return strings.Join(q.Regions, ",")
}

// CacheKey builds the cache key for this query
// Format: {sport}_{markets}_{bookmakers or regions}
func (q *OddsQuery) CacheKey() string {
	return q.Sport + "_" + strings.Join(q.Markets, ",") + "_" + q.Selector()
}

// RateLimits contains rate limiting information
type RateLimits struct {
	RequestsRemaining int
	RequestsUsed      int
	ResetTime         time.Time
}

// Clone returns a deep copy of the match
func (m Match) Clone() Match {
	out := m
	if m.Bookmakers != nil {
		out.Bookmakers = make([]Bookmaker, len(m.Bookmakers))
		for i, b := range m.Bookmakers {
			out.Bookmakers[i] = b.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the bookmaker entry
func (b Bookmaker) Clone() Bookmaker {
	out := b
	if b.Markets != nil {
		out.Markets = make([]Market, len(b.Markets))
		for i, m := range b.Markets {
			out.Markets[i] = m.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the market
func (m Market) Clone() Market {
	out := m
	if m.Outcomes != nil {
		out.Outcomes = make([]Outcome, len(m.Outcomes))
		for i, o := range m.Outcomes {
			out.Outcomes[i] = o.Clone()
		}
	}
	return out
}

// Clone returns a copy of the outcome that does not share its point
func (o Outcome) Clone() Outcome {
	out := o
	if o.Point != nil {
		point := *o.Point
		out.Point = &point
	}
	return out
}
