package service

import (
	"strings"

	"github.com/skyventures840/skybet/internal/registry"
	"github.com/skyventures840/skybet/pkg/contracts"
	"github.com/skyventures840/skybet/pkg/markets"
	"github.com/skyventures840/skybet/pkg/models"
)

// AllMarkets is the markets value that expands to every supported market
const AllMarkets = "all"

// OddsRequest is a caller's odds request. Empty lists mean "not given".
type OddsRequest struct {
	Sport      string
	Regions    []string
	Markets    []string
	Bookmakers []string
	APIKey     string
}

// ScoresRequest is a caller's scores request. DaysFrom <= 0 selects the default.
type ScoresRequest struct {
	Sport    string
	DaysFrom int
	APIKey   string
}

// QueryDefaults are the values ResolveOddsQuery falls back on
type QueryDefaults struct {
	AllMarkets    []string
	DefaultRegion string
}

// ResolveOddsQuery turns a request into the provider query:
//   - markets "all" expands to the full supported list, no markets means h2h
//   - no bookmakers means the sport's default bookmakers, if it has any
//   - when bookmakers are in effect regions are dropped, so they are not part
//     of the cache key either
//   - with neither, the default region is used
func ResolveOddsQuery(req OddsRequest, sports *registry.SportRegistry, defaults QueryDefaults) (*models.OddsQuery, error) {
	sport := strings.TrimSpace(req.Sport)
	if sport == "" {
		return nil, contracts.BadRequestf("sport is required")
	}

	query := &models.OddsQuery{Sport: sport}

	mkts := cleanList(req.Markets)
	switch {
	case len(mkts) == 1 && strings.EqualFold(mkts[0], AllMarkets):
		query.Markets = append([]string(nil), defaults.AllMarkets...)
	case len(mkts) == 0:
		query.Markets = []string{markets.H2H}
	default:
		query.Markets = mkts
	}

	query.Bookmakers = cleanList(req.Bookmakers)
	if len(query.Bookmakers) == 0 && sports != nil {
		query.Bookmakers = sports.DefaultBookmakers(sport)
	}

	if len(query.Bookmakers) == 0 {
		query.Regions = cleanList(req.Regions)
		if len(query.Regions) == 0 {
			query.Regions = []string{defaults.DefaultRegion}
		}
	}

	return query, nil
}

// cleanList trims entries, splits embedded commas and drops empties
func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
