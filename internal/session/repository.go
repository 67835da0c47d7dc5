package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/larkvale/budgetchess-server/internal/engine"
)

// Repository archives finished games to postgres. The redis copy expires;
// this one does not.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, g *engine.Game, method string) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}

	moves, err := json.Marshal(g.MoveHistory)
	if err != nil {
		return fmt.Errorf("marshal move history: %w", err)
	}
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO budget_games (
	    game_id, white_id, white_name, black_id, black_name,
	    winner_side, result, result_method,
	    fog_of_war, move_time_limit, moves,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11::jsonb,$12,$13,$14
	  ) ON CONFLICT (game_id) DO UPDATE SET
	    winner_side=EXCLUDED.winner_side,
	    result=EXCLUDED.result,
	    result_method=EXCLUDED.result_method,
	    moves=EXCLUDED.moves,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		g.ID,
		g.WhiteID, g.WhiteName,
		g.BlackID, g.BlackName,
		winnerSide(g.Status), string(g.Status), strings.TrimSpace(method),
		g.FogOfWar, g.MoveTimeLimit, string(moves),
		g.CreatedAt, g.UpdatedAt, duration,
	)
	return err
}

func winnerSide(st engine.Status) string {
	switch st {
	case engine.StatusWhiteWins:
		return string(engine.SideWhite)
	case engine.StatusBlackWins:
		return string(engine.SideBlack)
	default:
		return ""
	}
}
