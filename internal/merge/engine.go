// Package merge folds per-bookmaker match payloads from many provider calls
// into one record per match with canonical market keys.
package merge

import (
	"github.com/shopspring/decimal"
	"github.com/skyventures840/skybet/pkg/markets"
	"github.com/skyventures840/skybet/pkg/models"
)

// Merge builds a MatchSet from raw payloads in input order.
//
// Matches are keyed by id and keep first-appearance order. Within a match a
// bookmaker key appears once, and within a bookmaker a canonical market key
// appears once. When an outcome name is seen again, its price and point are
// replaced only if the new price is strictly lower.
//
// raw is never modified; entries missing an id, bookmaker key, market key or
// outcome name are skipped.
func Merge(raw []models.Match) *models.MatchSet {
	set := models.NewMatchSet()

	for _, m := range raw {
		if m.ID == "" {
			continue
		}

		merged := set.GetOrCreate(m)

		for _, bm := range m.Bookmakers {
			if bm.Key == "" {
				continue
			}

			incoming := normalizeBookmaker(bm)

			idx := indexOfBookmaker(merged.Bookmakers, incoming.Key)
			if idx < 0 {
				merged.Bookmakers = append(merged.Bookmakers, incoming)
				continue
			}

			existing := &merged.Bookmakers[idx]
			if incoming.LastUpdate.After(existing.LastUpdate) {
				existing.LastUpdate = incoming.LastUpdate
			}
			for _, mkt := range incoming.Markets {
				mergeMarket(existing, mkt)
			}
		}
	}

	return set
}

// normalizeBookmaker returns a copy of bm whose markets carry canonical keys,
// with markets that share a canonical key folded together
func normalizeBookmaker(bm models.Bookmaker) models.Bookmaker {
	out := models.Bookmaker{
		Key:        bm.Key,
		Title:      bm.Title,
		LastUpdate: bm.LastUpdate,
		Markets:    make([]models.Market, 0, len(bm.Markets)),
	}

	for _, mkt := range bm.Markets {
		if mkt.Key == "" {
			continue
		}
		mergeMarket(&out, models.Market{
			Key:        markets.Normalize(mkt.Key),
			LastUpdate: mkt.LastUpdate,
			Outcomes:   mkt.Outcomes,
		})
	}

	return out
}

// mergeMarket folds mkt into the bookmaker's market with the same key, or
// appends a copy of it
func mergeMarket(bm *models.Bookmaker, mkt models.Market) {
	idx := indexOfMarket(bm.Markets, mkt.Key)
	if idx < 0 {
		bm.Markets = append(bm.Markets, models.Market{
			Key:        mkt.Key,
			LastUpdate: mkt.LastUpdate,
			Outcomes:   make([]models.Outcome, 0, len(mkt.Outcomes)),
		})
		idx = len(bm.Markets) - 1
	}

	target := &bm.Markets[idx]
	if mkt.LastUpdate.After(target.LastUpdate) {
		target.LastUpdate = mkt.LastUpdate
	}

	for _, o := range mkt.Outcomes {
		mergeOutcome(target, o)
	}
}

func mergeOutcome(mkt *models.Market, o models.Outcome) {
	if o.Name == "" {
		return
	}

	for i := range mkt.Outcomes {
		existing := &mkt.Outcomes[i]
		if existing.Name != o.Name {
			continue
		}

		if lowerPrice(o.Price, existing.Price) {
			replacement := o.Clone()
			existing.Price = replacement.Price
			existing.Point = replacement.Point
		}
		return
	}

	mkt.Outcomes = append(mkt.Outcomes, o.Clone())
}

// lowerPrice reports whether candidate < current, compared as decimals so
// float representation noise never counts as an improvement
func lowerPrice(candidate, current float64) bool {
	return decimal.NewFromFloat(candidate).LessThan(decimal.NewFromFloat(current))
}

func indexOfBookmaker(books []models.Bookmaker, key string) int {
	for i := range books {
		if books[i].Key == key {
			return i
		}
	}
	return -1
}

func indexOfMarket(mkts []models.Market, key string) int {
	for i := range mkts {
		if mkts[i].Key == key {
			return i
		}
	}
	return -1
}
