package writer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skyventures840/skybet/pkg/contracts"
	"github.com/skyventures840/skybet/pkg/models"
)

const (
	streamKeyFormat = "odds.merged.%s" // odds.merged.basketball_nba
	streamMaxLen    = 10000
)

// Schema creates the snapshot tables. Snapshot rows are append-only; the
// matches table holds the latest descriptive fields per match.
const Schema = `
CREATE TABLE IF NOT EXISTS matches (
	match_id      TEXT PRIMARY KEY,
	sport_key     TEXT NOT NULL,
	league        TEXT NOT NULL DEFAULT '',
	home_team     TEXT NOT NULL DEFAULT '',
	away_team     TEXT NOT NULL DEFAULT '',
	commence_time TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS odds_snapshots (
	snapshot_id  UUID NOT NULL,
	sport_key    TEXT NOT NULL,
	match_id     TEXT NOT NULL,
	book_key     TEXT NOT NULL,
	market_key   TEXT NOT NULL,
	outcome_name TEXT NOT NULL,
	price        NUMERIC(10, 3) NOT NULL,
	point        NUMERIC(10, 2),
	fetched_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS odds_snapshots_sport_fetched_idx ON odds_snapshots (sport_key, fetched_at DESC);
`

// Writer persists merged snapshots to Postgres and publishes them to Redis
// Streams. Postgres is the source of truth; stream failures are logged only.
type Writer struct {
	db     *sql.DB
	redis  *redis.Client
	logger zerolog.Logger
	now    func() time.Time
}

var _ contracts.SnapshotWriter = (*Writer)(nil)

// StreamMessage is published once per match of a snapshot
type StreamMessage struct {
	SnapshotID string       `json:"snapshot_id"`
	SportKey   string       `json:"sport_key"`
	FetchedAt  time.Time    `json:"fetched_at"`
	Match      models.Match `json:"match"`
}

// NewWriter creates a snapshot writer. redisClient may be nil to skip stream
// publishing.
func NewWriter(db *sql.DB, redisClient *redis.Client, logger zerolog.Logger) *Writer {
	return &Writer{
		db:     db,
		redis:  redisClient,
		logger: logger.With().Str("component", "writer").Logger(),
		now:    time.Now,
	}
}

// EnsureSchema creates the snapshot tables if they do not exist
func (w *Writer) EnsureSchema(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// WriteSnapshot appends one merged snapshot in a single transaction, then
// publishes it to the sport's stream
func (w *Writer) WriteSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	if len(snapshot.Matches) == 0 {
		return nil
	}

	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = w.now().UTC()
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Step 1: Upsert match descriptors
	if err := w.upsertMatches(ctx, tx, snapshot); err != nil {
		return fmt.Errorf("upsert matches: %w", err)
	}

	// Step 2: Append snapshot rows
	rows, err := w.insertSnapshotRows(ctx, tx, snapshot)
	if err != nil {
		return fmt.Errorf("insert snapshot rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	// Step 3: Publish to Redis Streams (after successful DB write)
	if err := w.publishToStream(ctx, snapshot); err != nil {
		w.logger.Warn().Err(err).Str("sport", snapshot.Sport).Msg("publish snapshot to stream failed")
	}

	w.logger.Debug().
		Str("sport", snapshot.Sport).
		Str("snapshot_id", snapshot.ID).
		Int("matches", len(snapshot.Matches)).
		Int("rows", rows).
		Msg("snapshot written")

	return nil
}

// upsertMatches inserts or updates the descriptive match fields
func (w *Writer) upsertMatches(ctx context.Context, tx *sql.Tx, snapshot models.Snapshot) error {
	query := `
		INSERT INTO matches (
			match_id, sport_key, league, home_team, away_team, commence_time
		)
		SELECT UNNEST($1::text[]), UNNEST($2::text[]), UNNEST($3::text[]),
		       UNNEST($4::text[]), UNNEST($5::text[]), UNNEST($6::timestamptz[])
		ON CONFLICT (match_id)
		DO UPDATE SET
			league = EXCLUDED.league,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			commence_time = EXCLUDED.commence_time
	`

	n := len(snapshot.Matches)
	matchIDs := make([]string, n)
	sportKeys := make([]string, n)
	leagues := make([]string, n)
	homeTeams := make([]string, n)
	awayTeams := make([]string, n)
	commenceTimes := make([]time.Time, n)

	for i, m := range snapshot.Matches {
		matchIDs[i] = m.ID
		sportKeys[i] = snapshot.Sport
		leagues[i] = m.League
		homeTeams[i] = m.HomeTeam
		awayTeams[i] = m.AwayTeam
		commenceTimes[i] = m.CommenceTime
	}

	_, err := tx.ExecContext(ctx, query,
		pq.Array(matchIDs), pq.Array(sportKeys), pq.Array(leagues),
		pq.Array(homeTeams), pq.Array(awayTeams), pq.Array(commenceTimes),
	)
	return err
}

// insertSnapshotRows flattens the snapshot to one row per outcome and inserts
// them with UNNEST. Returns the number of rows.
func (w *Writer) insertSnapshotRows(ctx context.Context, tx *sql.Tx, snapshot models.Snapshot) (int, error) {
	var (
		matchIDs     []string
		bookKeys     []string
		marketKeys   []string
		outcomeNames []string
		prices       []float64
		points       []*float64
	)

	for _, m := range snapshot.Matches {
		for _, b := range m.Bookmakers {
			for _, mkt := range b.Markets {
				for _, o := range mkt.Outcomes {
					matchIDs = append(matchIDs, m.ID)
					bookKeys = append(bookKeys, b.Key)
					marketKeys = append(marketKeys, mkt.Key)
					outcomeNames = append(outcomeNames, o.Name)
					prices = append(prices, o.Price)
					points = append(points, o.Point)
				}
			}
		}
	}

	if len(matchIDs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO odds_snapshots (
			snapshot_id, sport_key, fetched_at,
			match_id, book_key, market_key, outcome_name, price, point
		)
		SELECT $1::uuid, $2::text, $3::timestamptz, u.*
		FROM UNNEST(
			$4::text[], $5::text[], $6::text[], $7::text[], $8::numeric[], $9::numeric[]
		) AS u
	`

	_, err := tx.ExecContext(ctx, query,
		snapshot.ID, snapshot.Sport, snapshot.FetchedAt,
		pq.Array(matchIDs), pq.Array(bookKeys), pq.Array(marketKeys), pq.Array(outcomeNames),
		pq.Array(prices), pq.Array(points),
	)
	if err != nil {
		return 0, err
	}

	return len(matchIDs), nil
}

// publishToStream publishes one message per match to odds.merged.{sport}
func (w *Writer) publishToStream(ctx context.Context, snapshot models.Snapshot) error {
	if w.redis == nil {
		return nil
	}

	streamKey := fmt.Sprintf(streamKeyFormat, snapshot.Sport)
	pipe := w.redis.Pipeline()

	for _, m := range snapshot.Matches {
		msgJSON, err := json.Marshal(StreamMessage{
			SnapshotID: snapshot.ID,
			SportKey:   snapshot.Sport,
			FetchedAt:  snapshot.FetchedAt,
			Match:      m,
		})
		if err != nil {
			return fmt.Errorf("marshal stream message: %w", err)
		}

		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: streamKey,
			MaxLen: streamMaxLen,
			Approx: true,
			Values: map[string]interface{}{
				"data": msgJSON,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline exec for stream: %w", err)
	}

	return nil
}

// StreamKey returns the stream a sport's snapshots are published to
func StreamKey(sport string) string {
	return fmt.Sprintf(streamKeyFormat, sport)
}
