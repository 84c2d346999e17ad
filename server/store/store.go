package store

import (
	"context"
	"embed"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   Players & ratings
------------------------------*/

// UpsertPlayer registers a player by name and returns its id. Kind is the
// channel spec the player ran as ("basic", "lua:greedy", "cmd:./bot").
func (db *DB) UpsertPlayer(ctx context.Context, name, kind string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO players(name, kind)
        VALUES ($1,$2)
        ON CONFLICT (name) DO UPDATE SET kind = EXCLUDED.kind
        RETURNING id
    `, name, kind).Scan(&id)
	return id, err
}

// GetOrInitRating ensures a rating row exists and fetches it.
func (db *DB) GetOrInitRating(ctx context.Context, playerID int64) (elo float64, matches, wins int, err error) {
	if _, e := db.Exec(ctx, `INSERT INTO player_ratings(player_id) VALUES ($1) ON CONFLICT (player_id) DO NOTHING`, playerID); e != nil {
		return 0, 0, 0, e
	}
	err = db.QueryRow(ctx, `
		SELECT elo, matches, wins FROM player_ratings WHERE player_id = $1
	`, playerID).Scan(&elo, &matches, &wins)
	return
}

func (db *DB) UpdateRating(ctx context.Context, playerID int64, elo float64, won bool) error {
	w := 0
	if won {
		w = 1
	}
	_, err := db.Exec(ctx, `
		UPDATE player_ratings
		   SET elo = $2,
		       matches = matches + 1,
		       wins = wins + $3,
		       updated_at = now()
		 WHERE player_id = $1
	`, playerID, elo, w)
	return err
}

/* -----------------------------
   Match recording
------------------------------*/

type SeatRecord struct {
	Seat      int
	PlayerID  int64
	Score     int
	Forfeited bool
}

type RoundRecord struct {
	Round      int
	WinnerSeat int // -1 for a scoreless round
	Commodity  string
	Delta      int
}

type ActionRecord struct {
	Round   int
	TurnID  int64
	Seat    int
	Kind    string
	OfferID int64
	Qty     int
}

type MatchRecord struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Rounds     int
	WinnerSeat int // -1 for an aborted match
	Reason     string
	Seats      []SeatRecord
	RoundLog   []RoundRecord
	ActionLog  []ActionRecord
}

// RecordMatch persists a finished match atomically.
func (db *DB) RecordMatch(ctx context.Context, rec MatchRecord) (int64, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var winner any
	if rec.WinnerSeat >= 0 {
		winner = rec.WinnerSeat
	}
	var matchID int64
	err = tx.QueryRow(ctx, `
        INSERT INTO matches(started_at, finished_at, rounds, winner_seat, reason)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id
    `, rec.StartedAt, rec.FinishedAt, rec.Rounds, winner, rec.Reason).Scan(&matchID)
	if err != nil {
		return 0, err
	}

	for _, s := range rec.Seats {
		if _, err := tx.Exec(ctx, `
            INSERT INTO match_seats(match_id, seat, player_id, score, forfeited)
            VALUES ($1,$2,$3,$4,$5)
        `, matchID, s.Seat, s.PlayerID, s.Score, s.Forfeited); err != nil {
			return 0, err
		}
	}
	for _, r := range rec.RoundLog {
		var ws any
		if r.WinnerSeat >= 0 {
			ws = r.WinnerSeat
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO round_results(match_id, round, winner_seat, commodity, delta)
            VALUES ($1,$2,$3,$4,$5)
        `, matchID, r.Round, ws, r.Commodity, r.Delta); err != nil {
			return 0, err
		}
	}
	if len(rec.ActionLog) > 0 {
		rows := make([][]any, 0, len(rec.ActionLog))
		for _, a := range rec.ActionLog {
			rows = append(rows, []any{matchID, a.Round, a.TurnID, a.Seat, a.Kind, a.OfferID, a.Qty})
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"action_logs"},
			[]string{"match_id", "round", "turn_id", "seat", "kind", "offer_id", "qty"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return matchID, nil
}

/* -----------------------------
   Read models for the API
------------------------------*/

type LeaderboardRow struct {
	Name    string  `json:"name"`
	Kind    string  `json:"kind"`
	Elo     float64 `json:"elo"`
	Matches int     `json:"matches"`
	Wins    int     `json:"wins"`
}

func (db *DB) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
        SELECT p.name, p.kind, r.elo, r.matches, r.wins
          FROM player_ratings r
          JOIN players p ON p.id = r.player_id
         ORDER BY r.elo DESC, p.name
         LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaderboardRow
	for rows.Next() {
		var lr LeaderboardRow
		if err := rows.Scan(&lr.Name, &lr.Kind, &lr.Elo, &lr.Matches, &lr.Wins); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

type MatchSummary struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	Rounds     int       `json:"rounds"`
	WinnerSeat int       `json:"winner_seat"`
	WinnerName string    `json:"winner_name"`
	Reason     string    `json:"reason"`
}

func (db *DB) RecentMatches(ctx context.Context, limit int) ([]MatchSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(ctx, `
        SELECT m.id, m.started_at, m.rounds,
               COALESCE(m.winner_seat, -1),
               COALESCE(p.name, ''),
               m.reason
          FROM matches m
          LEFT JOIN match_seats s ON s.match_id = m.id AND s.seat = m.winner_seat
          LEFT JOIN players p ON p.id = s.player_id
         ORDER BY m.id DESC
         LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchSummary
	for rows.Next() {
		var ms MatchSummary
		if err := rows.Scan(&ms.ID, &ms.StartedAt, &ms.Rounds, &ms.WinnerSeat, &ms.WinnerName, &ms.Reason); err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

type MatchSeatRow struct {
	Seat      int    `json:"seat"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Forfeited bool   `json:"forfeited"`
}

func (db *DB) MatchSeats(ctx context.Context, matchID int64) ([]MatchSeatRow, error) {
	rows, err := db.Query(ctx, `
        SELECT s.seat, p.name, s.score, s.forfeited
          FROM match_seats s
          JOIN players p ON p.id = s.player_id
         WHERE s.match_id = $1
         ORDER BY s.seat
    `, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchSeatRow
	for rows.Next() {
		var sr MatchSeatRow
		if err := rows.Scan(&sr.Seat, &sr.Name, &sr.Score, &sr.Forfeited); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// LastMatch returns the newest finished match, or nil when the table is
// empty.
func (db *DB) LastMatch(ctx context.Context) (*MatchSummary, []MatchSeatRow, error) {
	ms, err := db.RecentMatches(ctx, 1)
	if err != nil {
		return nil, nil, err
	}
	if len(ms) == 0 {
		return nil, nil, nil
	}
	seats, err := db.MatchSeats(ctx, ms[0].ID)
	if err != nil {
		return nil, nil, err
	}
	return &ms[0], seats, nil
}
