package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Len(t, cfg.Fetch.BookmakerGroups, 5)
	books := 0
	for _, g := range cfg.Fetch.BookmakerGroups {
		assert.GreaterOrEqual(t, len(g), 2)
		assert.LessOrEqual(t, len(g), 3)
		books += len(g)
	}
	assert.Equal(t, 15, books)

	assert.Equal(t, []string{"h2h", "spreads", "totals", "outrights", "player_props", "game_props"}, cfg.Fetch.DefaultMarkets)
	assert.Equal(t, time.Second, cfg.Fetch.PaceInterval)
	assert.Equal(t, 300*time.Second, cfg.Cache.OddsTTL)
	assert.Equal(t, 120*time.Second, cfg.Cache.ScoresTTL)
	assert.Equal(t, 3, cfg.Fetch.DefaultDaysFrom)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 5.0, cfg.Provider.RequestsPerSecond)
	assert.Equal(t, []string{"draftkings", "fanduel", "betmgm"}, cfg.SportBookmakers()["basketball_nba"])

	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skybet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cache:
  odds_ttl: 60s
fetch:
  bookmaker_groups:
    - [pinnacle, betfair_ex_uk]
sports:
  - key: soccer_epl
    bookmakers: [pinnacle]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Cache.OddsTTL)
	assert.Equal(t, 120*time.Second, cfg.Cache.ScoresTTL)
	assert.Equal(t, [][]string{{"pinnacle", "betfair_ex_uk"}}, cfg.Fetch.BookmakerGroups)
	assert.Equal(t, map[string][]string{"soccer_epl": {"pinnacle"}}, cfg.SportBookmakers())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ODDS_API_KEY", "server-key")
	t.Setenv("PORT", "9090")
	t.Setenv("ODDS_CACHE_TTL", "90")
	t.Setenv("SCORES_CACHE_TTL", "1m")
	t.Setenv("PREFETCH_SPORTS", "basketball_nba, soccer_epl,")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("FETCH_PACE_INTERVAL", "250ms")
	t.Setenv("ODDS_API_RPS", "2.5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "server-key", cfg.Provider.APIKey)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 90*time.Second, cfg.Cache.OddsTTL)
	assert.Equal(t, time.Minute, cfg.Cache.ScoresTTL)
	assert.Equal(t, []string{"basketball_nba", "soccer_epl"}, cfg.Prefetch.Sports)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Cache.RedisURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Fetch.PaceInterval)
	assert.Equal(t, 2.5, cfg.Provider.RequestsPerSecond)
}

func TestLoad_InvalidRequestsPerSecond(t *testing.T) {
	t.Setenv("ODDS_API_RPS", "fast")

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("ODDS_CACHE_TTL", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ODDS_CACHE_TTL")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no groups", func(c *Config) { c.Fetch.BookmakerGroups = nil }},
		{"empty group", func(c *Config) { c.Fetch.BookmakerGroups = [][]string{{"a"}, {}} }},
		{"duplicate sport", func(c *Config) {
			c.Sports = []SportConfig{{Key: "soccer_epl"}, {Key: "soccer_epl"}}
		}},
		{"zero ttl", func(c *Config) { c.Cache.ScoresTTL = 0 }},
		{"zero days", func(c *Config) { c.Fetch.DefaultDaysFrom = 0 }},
		{"prefetch without interval", func(c *Config) {
			c.Prefetch.Sports = []string{"basketball_nba"}
			c.Prefetch.Interval = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Default()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
