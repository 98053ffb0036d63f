package merge_test

import (
	"testing"

	"github.com/skyventures840/skybet/internal/merge"
	"github.com/skyventures840/skybet/pkg/models"
	"github.com/skyventures840/skybet/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spreadPayload(id, book, marketKey, name string, price, point float64) models.Match {
	return testutil.WithBookmakers(testutil.NewTestMatch(id, "TeamA", "TeamB", 0),
		testutil.NewTestBookmaker(book,
			testutil.NewTestMarket(marketKey,
				testutil.NewTestOutcome(name, price, testutil.PtrFloat64(point)),
			),
		),
	)
}

func h2hPayload(id, book, name string, price float64) models.Match {
	return testutil.WithBookmakers(testutil.NewTestMatch(id, "TeamA", "TeamB", 0),
		testutil.NewTestBookmaker(book,
			testutil.NewTestMarket("h2h", testutil.NewTestOutcome(name, price, nil)),
		),
	)
}

func outcomeOf(t *testing.T, set *models.MatchSet, matchID, book, market, name string) models.Outcome {
	t.Helper()

	m, ok := set.Get(matchID)
	require.True(t, ok, "match %s missing", matchID)

	for _, b := range m.Bookmakers {
		if b.Key != book {
			continue
		}
		for _, mkt := range b.Markets {
			if mkt.Key != market {
				continue
			}
			for _, o := range mkt.Outcomes {
				if o.Name == name {
					return o
				}
			}
		}
	}

	t.Fatalf("outcome %s/%s/%s/%s missing", matchID, book, market, name)
	return models.Outcome{}
}

func TestMerge_HandicapSynonymsFoldIntoSpreads(t *testing.T) {
	raw := []models.Match{
		spreadPayload("abc123", "draftkings", "handicap", "TeamA", 1.80, -1.5),
		spreadPayload("abc123", "draftkings", "asian_handicap", "TeamA", 1.75, -1.5),
	}

	set := merge.Merge(raw)
	require.Equal(t, 1, set.Len())

	m, _ := set.Get("abc123")
	require.Len(t, m.Bookmakers, 1)
	assert.Equal(t, "draftkings", m.Bookmakers[0].Key)
	require.Len(t, m.Bookmakers[0].Markets, 1)
	assert.Equal(t, "spreads", m.Bookmakers[0].Markets[0].Key)

	outcomes := m.Bookmakers[0].Markets[0].Outcomes
	require.Len(t, outcomes, 1)
	assert.Equal(t, "TeamA", outcomes[0].Name)
	assert.Equal(t, 1.75, outcomes[0].Price)
	require.NotNil(t, outcomes[0].Point)
	assert.Equal(t, -1.5, *outcomes[0].Point)
}

func TestMerge_LowerPriceReplaces(t *testing.T) {
	tests := []struct {
		name     string
		first    float64
		second   float64
		expected float64
	}{
		{"lower second price wins", 2.10, 1.95, 1.95},
		{"higher second price ignored", 2.10, 2.50, 2.10},
		{"equal price keeps first", 2.10, 2.10, 2.10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := merge.Merge([]models.Match{
				h2hPayload("g1", "fanduel", "TeamA", tt.first),
				h2hPayload("g1", "fanduel", "TeamA", tt.second),
			})

			assert.Equal(t, tt.expected, outcomeOf(t, set, "g1", "fanduel", "h2h", "TeamA").Price)
		})
	}
}

func TestMerge_ReplacementCarriesPoint(t *testing.T) {
	set := merge.Merge([]models.Match{
		spreadPayload("g1", "betmgm", "spreads", "TeamA", 1.95, -3.5),
		spreadPayload("g1", "betmgm", "point_spread", "TeamA", 1.90, -2.5),
		spreadPayload("g1", "betmgm", "spreads", "TeamA", 1.99, -5.5),
	})

	o := outcomeOf(t, set, "g1", "betmgm", "spreads", "TeamA")
	assert.Equal(t, 1.90, o.Price)
	require.NotNil(t, o.Point)
	assert.Equal(t, -2.5, *o.Point)
}

func TestMerge_OutcomesKeyedByNameNotPoint(t *testing.T) {
	set := merge.Merge([]models.Match{
		spreadPayload("g1", "betmgm", "spreads", "TeamA", 1.95, -3.5),
		spreadPayload("g1", "betmgm", "spreads", "TeamA", 2.05, -4.5),
	})

	m, ok := set.Get("g1")
	require.True(t, ok)
	require.Len(t, m.Bookmakers, 1)
	require.Len(t, m.Bookmakers[0].Markets, 1)

	// A different line for the same name does not add a second outcome, and
	// the higher price leaves the first line in place
	outcomes := m.Bookmakers[0].Markets[0].Outcomes
	require.Len(t, outcomes, 1)
	assert.Equal(t, 1.95, outcomes[0].Price)
	require.NotNil(t, outcomes[0].Point)
	assert.Equal(t, -3.5, *outcomes[0].Point)
}

func TestMerge_FoldsSynonymMarketsInsideOnePayload(t *testing.T) {
	raw := []models.Match{
		testutil.WithBookmakers(testutil.NewTestMatch("g1", "Home", "Away", 0),
			testutil.NewTestBookmaker("betfair_ex_uk",
				testutil.NewTestMarket("h2h", testutil.NewTestOutcome("Home", 2.40, nil)),
				testutil.NewTestMarket("h2h_lay",
					testutil.NewTestOutcome("Home", 2.44, nil),
					testutil.NewTestOutcome("Away", 3.10, nil),
				),
				testutil.NewTestMarket("MONEYLINE", testutil.NewTestOutcome("Draw", 3.30, nil)),
			),
		),
	}

	set := merge.Merge(raw)
	m, _ := set.Get("g1")
	require.Len(t, m.Bookmakers, 1)
	require.Len(t, m.Bookmakers[0].Markets, 1)

	mkt := m.Bookmakers[0].Markets[0]
	assert.Equal(t, "h2h", mkt.Key)
	require.Len(t, mkt.Outcomes, 3)
	assert.Equal(t, "Home", mkt.Outcomes[0].Name)
	assert.Equal(t, 2.40, mkt.Outcomes[0].Price)
	assert.Equal(t, "Away", mkt.Outcomes[1].Name)
	assert.Equal(t, "Draw", mkt.Outcomes[2].Name)
}

func TestMerge_Deterministic(t *testing.T) {
	raw := append(testutil.GoldenMatches(),
		spreadPayload("game1", "fanduel", "handicap", "Boston Celtics", 1.88, -4.0),
		h2hPayload("game3", "caesars", "Miami Heat", 2.05),
		h2hPayload("game2", "draftkings", "Denver Nuggets", 1.50),
	)

	first := merge.Merge(raw)
	second := merge.Merge(raw)

	assert.Equal(t, first.IDs(), second.IDs())
	assert.Equal(t, first.Matches(), second.Matches())

	firstJSON, err := first.MarshalJSON()
	require.NoError(t, err)
	secondJSON, err := second.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestMerge_FirstAppearanceOrder(t *testing.T) {
	set := merge.Merge([]models.Match{
		h2hPayload("z", "fanduel", "A", 2.0),
		h2hPayload("a", "fanduel", "A", 2.0),
		h2hPayload("z", "draftkings", "A", 2.0),
		h2hPayload("m", "fanduel", "A", 2.0),
	})

	assert.Equal(t, []string{"z", "a", "m"}, set.IDs())

	z, _ := set.Get("z")
	require.Len(t, z.Bookmakers, 2)
	assert.Equal(t, "fanduel", z.Bookmakers[0].Key)
	assert.Equal(t, "draftkings", z.Bookmakers[1].Key)
}

func TestMerge_UniquenessAndNoDataLoss(t *testing.T) {
	raw := []models.Match{
		spreadPayload("g1", "fanduel", "spreads", "A", 1.90, -1.5),
		spreadPayload("g1", "fanduel", "handicap", "B", 1.90, 1.5),
		spreadPayload("g1", "draftkings", "asian_handicap", "A", 1.85, -1.5),
		h2hPayload("g1", "fanduel", "A", 1.70),
		h2hPayload("g1", "fanduel", "B", 2.20),
		h2hPayload("g2", "fanduel", "A", 1.40),
		{
			ID: "g2",
			Bookmakers: []models.Bookmaker{
				testutil.NewTestBookmaker("betmgm",
					testutil.NewTestMarket("btts",
						testutil.NewTestOutcome("Yes", 1.80, nil),
						testutil.NewTestOutcome("No", 1.95, nil),
					),
					testutil.NewTestMarket("over_under_lay",
						testutil.NewTestOutcome("Over", 1.91, testutil.PtrFloat64(2.5)),
					),
				),
			},
		},
	}

	type tuple struct{ match, book, market, outcome string }
	want := map[tuple]bool{}
	for _, tp := range []tuple{
		{"g1", "fanduel", "spreads", "A"},
		{"g1", "fanduel", "spreads", "B"},
		{"g1", "draftkings", "spreads", "A"},
		{"g1", "fanduel", "h2h", "A"},
		{"g1", "fanduel", "h2h", "B"},
		{"g2", "fanduel", "h2h", "A"},
		{"g2", "betmgm", "both_teams_to_score", "Yes"},
		{"g2", "betmgm", "both_teams_to_score", "No"},
		{"g2", "betmgm", "totals", "Over"},
	} {
		want[tp] = true
	}

	set := merge.Merge(raw)

	got := map[tuple]bool{}
	for _, m := range set.Matches() {
		books := map[string]bool{}
		for _, b := range m.Bookmakers {
			assert.False(t, books[b.Key], "duplicate bookmaker %s in %s", b.Key, m.ID)
			books[b.Key] = true

			mkts := map[string]bool{}
			for _, mkt := range b.Markets {
				assert.False(t, mkts[mkt.Key], "duplicate market %s under %s", mkt.Key, b.Key)
				mkts[mkt.Key] = true

				names := map[string]bool{}
				for _, o := range mkt.Outcomes {
					assert.False(t, names[o.Name], "duplicate outcome %s", o.Name)
					names[o.Name] = true
					got[tuple{m.ID, b.Key, mkt.Key, o.Name}] = true
				}
			}
		}
	}

	assert.Equal(t, want, got)
}

func TestMerge_SkipsMalformedEntries(t *testing.T) {
	raw := []models.Match{
		h2hPayload("", "fanduel", "A", 2.0),
		{
			ID: "g1",
			Bookmakers: []models.Bookmaker{
				testutil.NewTestBookmaker("fanduel",
					testutil.NewTestMarket("", testutil.NewTestOutcome("A", 2.0, nil)),
					testutil.NewTestMarket("h2h",
						testutil.NewTestOutcome("", 1.5, nil),
						testutil.NewTestOutcome("A", 2.0, nil),
					),
				),
				{Key: "", Markets: []models.Market{testutil.NewTestMarket("h2h", testutil.NewTestOutcome("B", 3.0, nil))}},
			},
		},
	}

	set := merge.Merge(raw)
	require.Equal(t, []string{"g1"}, set.IDs())

	m, _ := set.Get("g1")
	require.Len(t, m.Bookmakers, 1)
	require.Len(t, m.Bookmakers[0].Markets, 1)
	require.Len(t, m.Bookmakers[0].Markets[0].Outcomes, 1)
	assert.Equal(t, "A", m.Bookmakers[0].Markets[0].Outcomes[0].Name)
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	raw := []models.Match{
		spreadPayload("abc123", "draftkings", "handicap", "TeamA", 1.80, -1.5),
		spreadPayload("abc123", "draftkings", "asian_handicap", "TeamA", 1.75, -2.5),
	}

	snapshot := make([]models.Match, len(raw))
	for i, m := range raw {
		snapshot[i] = m.Clone()
	}

	set := merge.Merge(raw)
	assert.Equal(t, snapshot, raw)

	// Output must not alias input points
	o := outcomeOf(t, set, "abc123", "draftkings", "spreads", "TeamA")
	*o.Point = 99
	assert.Equal(t, -1.5, *raw[0].Bookmakers[0].Markets[0].Outcomes[0].Point)
	assert.Equal(t, -2.5, *raw[1].Bookmakers[0].Markets[0].Outcomes[0].Point)
}

func TestMerge_Empty(t *testing.T) {
	set := merge.Merge(nil)
	assert.Equal(t, 0, set.Len())

	data, err := set.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
