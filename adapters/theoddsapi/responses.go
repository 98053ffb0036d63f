package theoddsapi

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/skyventures840/skybet/pkg/models"
)

// API response structures matching The Odds API JSON format

type oddsResponse struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime string      `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []bookmaker `json:"bookmakers"`
}

type bookmaker struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	LastUpdate string   `json:"last_update"`
	Markets    []market `json:"markets"`
}

type market struct {
	Key        string    `json:"key"`
	LastUpdate string    `json:"last_update"`
	Outcomes   []outcome `json:"outcomes"`
}

type outcome struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	Point       *float64 `json:"point,omitempty"`
}

type scoreResponse struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime string      `json:"commence_time"`
	Completed    bool        `json:"completed"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Scores       []teamScore `json:"scores"`
	LastUpdate   *string     `json:"last_update"`
}

type teamScore struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// oddsResponseList decodes element by element so one malformed match does not
// discard the whole payload
type oddsResponseList []oddsResponse

func (l *oddsResponseList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make([]oddsResponse, 0, len(raw))
	for _, item := range raw {
		var evt oddsResponse
		if err := json.Unmarshal(item, &evt); err != nil {
			continue // Skip malformed match
		}
		out = append(out, evt)
	}

	*l = out
	return nil
}

// parseOddsResponse converts the API response into validated matches.
// Entries without identifiers and outcomes without a usable price are dropped.
func parseOddsResponse(apiResp []oddsResponse) []models.Match {
	matches := make([]models.Match, 0, len(apiResp))

	for _, evt := range apiResp {
		if evt.ID == "" {
			continue
		}

		match := models.Match{
			ID:           evt.ID,
			SportKey:     evt.SportKey,
			League:       evt.SportTitle,
			CommenceTime: parseTime(evt.CommenceTime),
			HomeTeam:     evt.HomeTeam,
			AwayTeam:     evt.AwayTeam,
			Bookmakers:   make([]models.Bookmaker, 0, len(evt.Bookmakers)),
		}

		for _, bm := range evt.Bookmakers {
			if bm.Key == "" {
				continue
			}

			book := models.Bookmaker{
				Key:        bm.Key,
				Title:      bm.Title,
				LastUpdate: parseTime(bm.LastUpdate),
				Markets:    make([]models.Market, 0, len(bm.Markets)),
			}

			for _, mkt := range bm.Markets {
				if mkt.Key == "" {
					continue
				}

				m := models.Market{
					Key:        mkt.Key,
					LastUpdate: parseTime(mkt.LastUpdate),
					Outcomes:   make([]models.Outcome, 0, len(mkt.Outcomes)),
				}

				for _, o := range mkt.Outcomes {
					if !validOutcome(o) {
						continue
					}

					out := models.Outcome{
						Name:        o.Name,
						Description: o.Description,
						Price:       o.Price,
					}
					if o.Point != nil {
						point := *o.Point
						out.Point = &point
					}
					m.Outcomes = append(m.Outcomes, out)
				}

				book.Markets = append(book.Markets, m)
			}

			match.Bookmakers = append(match.Bookmakers, book)
		}

		matches = append(matches, match)
	}

	return matches
}

// validOutcome checks decimal odds invariants: named, finite, price >= 1.0
func validOutcome(o outcome) bool {
	if o.Name == "" {
		return false
	}
	if math.IsNaN(o.Price) || math.IsInf(o.Price, 0) || o.Price < 1.0 {
		return false
	}
	if o.Point != nil && (math.IsNaN(*o.Point) || math.IsInf(*o.Point, 0)) {
		return false
	}
	return true
}

// parseScoresResponse converts the API response into scores
func parseScoresResponse(apiResp []scoreResponse) []models.Score {
	scores := make([]models.Score, 0, len(apiResp))

	for _, s := range apiResp {
		if s.ID == "" {
			continue
		}

		score := models.Score{
			ID:           s.ID,
			SportKey:     s.SportKey,
			League:       s.SportTitle,
			CommenceTime: parseTime(s.CommenceTime),
			Completed:    s.Completed,
			HomeTeam:     s.HomeTeam,
			AwayTeam:     s.AwayTeam,
			Scores:       make([]models.TeamScore, 0, len(s.Scores)),
		}

		for _, ts := range s.Scores {
			score.Scores = append(score.Scores, models.TeamScore{Name: ts.Name, Score: ts.Score})
		}

		if s.LastUpdate != nil {
			if t := parseTime(*s.LastUpdate); !t.IsZero() {
				score.LastUpdate = &t
			}
		}

		scores = append(scores, score)
	}

	return scores
}

// parseMarketsResponse accepts either a list of market objects or a list of keys
func parseMarketsResponse(body []byte) ([]models.MarketDescriptor, error) {
	var descriptors []models.MarketDescriptor
	if err := json.Unmarshal(body, &descriptors); err == nil {
		return filterDescriptors(descriptors), nil
	}

	var keys []string
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("parse markets response: %w", err)
	}

	descriptors = make([]models.MarketDescriptor, 0, len(keys))
	for _, k := range keys {
		descriptors = append(descriptors, models.MarketDescriptor{Key: k})
	}
	return filterDescriptors(descriptors), nil
}

func filterDescriptors(in []models.MarketDescriptor) []models.MarketDescriptor {
	out := make([]models.MarketDescriptor, 0, len(in))
	for _, d := range in {
		if d.Key != "" {
			out = append(out, d)
		}
	}
	return out
}

// parseTime parses an ISO-8601 timestamp, returning the zero time on failure
func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
