package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StringList accepts either a JSON array of strings or a single
// comma-joined string
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("expected array of strings: %w", err)
		}
		*l = items
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("expected string or array of strings: %w", err)
	}
	if joined == "" {
		*l = nil
		return nil
	}
	*l = strings.Split(joined, ",")
	return nil
}

// OddsRequestBody is the body of POST /prematch_live_odds
type OddsRequestBody struct {
	Sport      string     `json:"sport"`
	Regions    StringList `json:"regions"`
	Markets    StringList `json:"markets"`
	Bookmakers StringList `json:"bookmakers"`
	APIKey     string     `json:"api_key"`
}

// ScoresRequestBody is the body of POST /scores
type ScoresRequestBody struct {
	Sport    string `json:"sport"`
	DaysFrom int    `json:"days_from"`
	APIKey   string `json:"api_key"`
}

// MergedRequestBody is the body of POST /merged_odds
type MergedRequestBody struct {
	Sport  string `json:"sport"`
	APIKey string `json:"api_key"`
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
