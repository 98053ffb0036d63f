package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/skyventures840/skybet/internal/handlers"
	"github.com/skyventures840/skybet/internal/service"
	"github.com/skyventures840/skybet/pkg/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService implements handlers.OddsService for testing
type fakeService struct {
	result *service.Result
	err    error

	oddsReq   service.OddsRequest
	scoresReq service.ScoresRequest
	apiKey    string
	sport     string
}

func (f *fakeService) PrematchLiveOdds(ctx context.Context, req service.OddsRequest) (*service.Result, error) {
	f.oddsReq = req
	return f.result, f.err
}

func (f *fakeService) Scores(ctx context.Context, req service.ScoresRequest) (*service.Result, error) {
	f.scoresReq = req
	return f.result, f.err
}

func (f *fakeService) Sports(ctx context.Context, apiKey string) (*service.Result, error) {
	f.apiKey = apiKey
	return f.result, f.err
}

func (f *fakeService) MergedOdds(ctx context.Context, sport, apiKey string) (*service.Result, error) {
	f.sport = sport
	f.apiKey = apiKey
	return f.result, f.err
}

func newServer(svc handlers.OddsService, checks map[string]handlers.HealthCheck) http.Handler {
	h := handlers.NewHandler(svc, checks, zerolog.Nop())
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "skybet_up 1")
	})
	return handlers.NewRouter(h, handlers.RouterConfig{Metrics: metrics}, zerolog.Nop())
}

func do(t *testing.T, srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestPrematchLiveOdds_FlexibleLists(t *testing.T) {
	svc := &fakeService{result: &service.Result{Data: json.RawMessage(`[{"id":"g1"}]`)}}
	srv := newServer(svc, nil)

	rec := do(t, srv, http.MethodPost, "/prematch_live_odds",
		`{"sport":"basketball_nba","markets":"h2h,spreads","bookmakers":["fanduel","draftkings"],"api_key":"k"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"id":"g1"}]`, rec.Body.String())

	assert.Equal(t, "basketball_nba", svc.oddsReq.Sport)
	assert.Equal(t, []string{"h2h", "spreads"}, svc.oddsReq.Markets)
	assert.Equal(t, []string{"fanduel", "draftkings"}, svc.oddsReq.Bookmakers)
	assert.Empty(t, svc.oddsReq.Regions)
	assert.Equal(t, "k", svc.oddsReq.APIKey)
}

func TestPrematchLiveOdds_CacheHitHeader(t *testing.T) {
	svc := &fakeService{result: &service.Result{Data: json.RawMessage(`[]`), Cached: true}}
	rec := do(t, newServer(svc, nil), http.MethodPost, "/prematch_live_odds", `{"sport":"x","api_key":"k"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
}

func TestInvalidBody(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed json", "/prematch_live_odds", `{"sport":`},
		{"markets wrong type", "/prematch_live_odds", `{"sport":"x","markets":5}`},
		{"days_from wrong type", "/scores", `{"sport":"x","days_from":"soon"}`},
		{"empty merged body", "/merged_odds", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newServer(&fakeService{}, nil), http.MethodPost, tt.path, tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "invalid request body", resp.Message)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "validation",
			err:     contracts.BadRequestf("api_key is required"),
			status:  http.StatusBadRequest,
			message: "api_key is required",
		},
		{
			name:    "upstream bad request",
			err:     fmt.Errorf("get odds: %w", &contracts.UpstreamError{Kind: contracts.ErrBadRequest, StatusCode: 422, Body: "INVALID_MARKET"}),
			status:  http.StatusBadRequest,
			message: "invalid sport/market/bookmaker combination",
		},
		{
			name:    "rate limited",
			err:     &contracts.UpstreamError{Kind: contracts.ErrRateLimited, StatusCode: 429},
			status:  http.StatusTooManyRequests,
			message: "upstream rate limit exceeded",
		},
		{
			name:    "upstream status passthrough",
			err:     &contracts.UpstreamError{Kind: contracts.ErrUpstream, StatusCode: 401, Body: `{"message":"invalid key"}`},
			status:  http.StatusUnauthorized,
			message: `{"message":"invalid key"}`,
		},
		{
			name:    "deadline",
			err:     fmt.Errorf("fetch: %w", context.DeadlineExceeded),
			status:  http.StatusGatewayTimeout,
			message: "upstream request timed out",
		},
		{
			name:    "anything else",
			err:     errors.New("connection reset by peer"),
			status:  http.StatusBadGateway,
			message: "upstream request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{err: tt.err}
			rec := do(t, newServer(svc, nil), http.MethodPost, "/merged_odds", `{"sport":"basketball_nba","api_key":"k"}`)

			require.Equal(t, tt.status, rec.Code)
			var resp handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, http.StatusText(tt.status), resp.Error)
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}

func TestScores(t *testing.T) {
	svc := &fakeService{result: &service.Result{Data: json.RawMessage(`[]`)}}
	rec := do(t, newServer(svc, nil), http.MethodPost, "/scores", `{"sport":"soccer_epl","days_from":2,"api_key":"k"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ScoresRequest{Sport: "soccer_epl", DaysFrom: 2, APIKey: "k"}, svc.scoresReq)
}

func TestSports_APIKeyFromQuery(t *testing.T) {
	svc := &fakeService{result: &service.Result{Data: json.RawMessage(`[{"key":"basketball_nba"}]`)}}
	rec := do(t, newServer(svc, nil), http.MethodGet, "/sports?api_key=abc", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", svc.apiKey)
	assert.Contains(t, rec.Body.String(), "basketball_nba")
}

func TestMergedOdds(t *testing.T) {
	svc := &fakeService{result: &service.Result{Data: json.RawMessage(`{"g1":{}}`), Cached: true}}
	rec := do(t, newServer(svc, nil), http.MethodPost, "/merged_odds", `{"sport":"basketball_nba","api_key":"k"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "basketball_nba", svc.sport)
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		checks := map[string]handlers.HealthCheck{
			"redis": func(context.Context) error { return nil },
		}
		rec := do(t, newServer(&fakeService{}, checks), http.MethodGet, "/health", "")

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("degraded", func(t *testing.T) {
		checks := map[string]handlers.HealthCheck{
			"redis":    func(context.Context) error { return nil },
			"postgres": func(context.Context) error { return errors.New("refused") },
		}
		rec := do(t, newServer(&fakeService{}, checks), http.MethodGet, "/health", "")

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body struct {
			Status       string            `json:"status"`
			Dependencies map[string]string `json:"dependencies"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "unhealthy", body.Dependencies["postgres"])
		assert.Equal(t, "healthy", body.Dependencies["redis"])
	})
}

func TestMetricsRoute(t *testing.T) {
	rec := do(t, newServer(&fakeService{}, nil), http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "skybet_up 1")
}

func TestUnknownMethod(t *testing.T) {
	rec := do(t, newServer(&fakeService{}, nil), http.MethodGet, "/prematch_live_odds", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStringList(t *testing.T) {
	tests := []struct {
		input string
		want  handlers.StringList
		err   bool
	}{
		{`"h2h"`, handlers.StringList{"h2h"}, false},
		{`"h2h,spreads"`, handlers.StringList{"h2h", "spreads"}, false},
		{`["h2h","totals"]`, handlers.StringList{"h2h", "totals"}, false},
		{`""`, nil, false},
		{`null`, nil, false},
		{`[1,2]`, nil, true},
		{`{}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got handlers.StringList
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
