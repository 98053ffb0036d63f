// Package markets maps vendor market identifiers onto the canonical market
// vocabulary used by the merge engine.
package markets

import "strings"

// Canonical market keys
const (
	H2H              = "h2h"
	Spreads          = "spreads"
	Totals           = "totals"
	DoubleChance     = "double_chance"
	DrawNoBet        = "draw_no_bet"
	BothTeamsToScore = "both_teams_to_score"
)

// synonyms is keyed by lower-cased, lay-stripped vendor keys.
// Every canonical key maps to itself so Normalize is idempotent.
var synonyms = map[string]string{
	"h2h":       H2H,
	"moneyline": H2H,

	"spreads":        Spreads,
	"handicap":       Spreads,
	"asian_handicap": Spreads,
	"point_spread":   Spreads,

	"totals":       Totals,
	"over_under":   Totals,
	"points_total": Totals,

	"double_chance": DoubleChance,
	"draw_no_bet":   DrawNoBet,

	"both_teams_to_score": BothTeamsToScore,
	"btts":                BothTeamsToScore,
}

// DefaultFetchMarkets is used when the vendor returns no market metadata for a sport
func DefaultFetchMarkets() []string {
	return []string{"h2h", "spreads", "totals", "outrights", "player_props", "game_props"}
}

// Normalize maps a vendor market key to its canonical key.
// Input is lower-cased and a trailing "_lay"/"lay" (exchange lay markets) is
// stripped before the synonym lookup. Unknown keys pass through in that
// lower-cased, stripped form.
func Normalize(rawKey string) string {
	key := stripLay(strings.ToLower(rawKey))

	if canonical, ok := synonyms[key]; ok {
		return canonical
	}
	return key
}

// IsCanonical reports whether key belongs to the canonical vocabulary
func IsCanonical(key string) bool {
	canonical, ok := synonyms[key]
	return ok && canonical == key
}

// stripLay removes trailing lay suffixes but never strips a key down to nothing
func stripLay(key string) string {
	for {
		switch {
		case len(key) > len("_lay") && strings.HasSuffix(key, "_lay"):
			key = strings.TrimSuffix(key, "_lay")
		case len(key) > len("lay") && strings.HasSuffix(key, "lay"):
			key = strings.TrimSuffix(key, "lay")
		default:
			return key
		}
	}
}
