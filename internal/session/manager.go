package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/larkvale/budgetchess-server/internal/engine"
	"github.com/larkvale/budgetchess-server/internal/obslog"
	"github.com/larkvale/budgetchess-server/internal/presets"
)

const clockLeaseTTL = 3 * time.Second

// Manager owns the durable copy of every session. The engine owns the
// in-memory copy for the duration of one transaction.
type Manager struct {
	rdb          *redis.Client
	catalog      *presets.Catalog
	repo         *Repository
	ttl          time.Duration
	maxOpen      int
	defaultLimit int // seconds per move when a game does not set one
}

func NewManager(redisURL string, catalog *presets.Catalog, ttl time.Duration, maxOpen int) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for session manager")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxOpen <= 0 {
		maxOpen = 200
	}
	return &Manager{rdb: rdb, catalog: catalog, ttl: ttl, maxOpen: maxOpen}, nil
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachRepository wires a database repository for archiving finished games.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// SetDefaultMoveLimit sets the per-move limit used when a create request
// does not carry one. Zero keeps new games untimed.
func (m *Manager) SetDefaultMoveLimit(sec int) {
	if m != nil && sec > 0 {
		m.defaultLimit = sec
	}
}

func gameKey(id string) string             { return "bc:game:" + strings.TrimSpace(id) }
func codeKey(code string) string           { return "bc:code:" + strings.TrimSpace(code) }
func idxUserKey(userID string) string      { return "bc:index:user:" + strings.TrimSpace(userID) }
func layoutKey(userID, name string) string { return "bc:layout:" + userID + ":" + name }
func eventsKey(id string) string           { return "bc:events:" + strings.TrimSpace(id) }
func clockKey(id string) string            { return "bc:clock:" + strings.TrimSpace(id) }

const lobbyKey = "bc:lobby"

// Create opens a session in the waiting phase. The creator takes the white
// seat; the returned join code seats the opponent.
func (m *Manager) Create(ctx context.Context, hostID, hostName string, opts engine.Options) (*engine.Game, string, error) {
	if m == nil || m.rdb == nil {
		return nil, "", fmt.Errorf("session manager not initialized")
	}
	if strings.TrimSpace(hostID) == "" {
		return nil, "", fmt.Errorf("invalid host")
	}
	if n, err := m.rdb.SCard(ctx, lobbyKey).Result(); err == nil && int(n) >= m.maxOpen {
		return nil, "", ErrTooManyOpen
	}
	if opts.MoveTimeLimit <= 0 {
		opts.MoveTimeLimit = m.defaultLimit
	}

	g := engine.NewGame(uuid.NewString(), opts)
	g.WhiteID = strings.TrimSpace(hostID)
	g.WhiteName = strings.TrimSpace(hostName)
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	code, err := m.reserveCode(ctx, g.ID)
	if err != nil {
		return nil, "", err
	}
	if err := m.save(ctx, g); err != nil {
		return nil, "", err
	}
	if err := m.rdb.SAdd(ctx, lobbyKey, g.ID).Err(); err != nil {
		return nil, "", err
	}
	_ = m.rdb.Expire(ctx, lobbyKey, m.ttl).Err()
	if err := m.indexParticipant(ctx, g.ID, g.WhiteID); err != nil {
		return nil, "", err
	}

	obslog.L().Info("game_create",
		zap.String("game_id", g.ID),
		zap.String("code", code),
		zap.String("host_id", g.WhiteID),
		zap.Bool("fog", g.FogOfWar),
		zap.Int("move_time_limit", g.MoveTimeLimit),
	)
	return g, code, nil
}

// reserveCode allocates a fresh 6-character join code mapped to the game.
func (m *Manager) reserveCode(ctx context.Context, id string) (string, error) {
	for i := 0; i < 5; i++ {
		code, err := codeGen()
		if err != nil {
			return "", err
		}
		ok, err := m.rdb.SetNX(ctx, codeKey(code), id, m.ttl).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a join code")
}

// Join seats the second player and starts the draft.
func (m *Manager) Join(ctx context.Context, code, userID, userName string) (*engine.Game, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("invalid user")
	}
	id, err := m.rdb.Get(ctx, codeKey(code)).Result()
	if err == redis.Nil {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}

	g, err := m.update(ctx, id, func(g *engine.Game) error {
		if g.Seat(userID) != "" {
			// Rejoin by a seated player is a no-op on state.
			return nil
		}
		if g.BlackID != "" {
			return ErrGameFull
		}
		if err := g.AttachOpponent(); err != nil {
			return err
		}
		g.BlackID = userID
		g.BlackName = strings.TrimSpace(userName)
		return nil
	})
	if err != nil {
		return nil, err
	}
	_ = m.rdb.SRem(ctx, lobbyKey, id).Err()
	if err := m.indexParticipant(ctx, id, userID); err != nil {
		return nil, err
	}
	obslog.L().Info("game_join",
		zap.String("game_id", id),
		zap.String("user_id", userID),
		zap.String("phase", string(g.Phase)),
	)
	return g, nil
}

// Get loads a game by id.
func (m *Manager) Get(ctx context.Context, id string) (*engine.Game, error) {
	return m.get(ctx, id)
}

// GetByCode resolves a join code to its game.
func (m *Manager) GetByCode(ctx context.Context, code string) (*engine.Game, error) {
	id, err := m.rdb.Get(ctx, codeKey(code)).Result()
	if err == redis.Nil {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.get(ctx, id)
}

// ListOpen returns games still waiting for an opponent, newest first.
func (m *Manager) ListOpen(ctx context.Context) ([]*engine.Game, error) {
	ids, err := m.rdb.SMembers(ctx, lobbyKey).Result()
	if err != nil {
		return nil, err
	}
	var out []*engine.Game
	for _, id := range ids {
		g, err := m.get(ctx, id)
		if err != nil {
			continue // expired entries fall out of the index lazily
		}
		if g.Phase == engine.PhaseWaiting {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// GamesByUser returns the user's games, most recently updated first.
func (m *Manager) GamesByUser(ctx context.Context, userID string) ([]*engine.Game, error) {
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var out []*engine.Game
	for _, id := range ids {
		if g, err := m.get(ctx, id); err == nil {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// Place buys and places a piece during the user's draft turn.
func (m *Manager) Place(ctx context.Context, id, userID string, pos engine.Position, kind engine.Kind) (*engine.Game, error) {
	return m.update(ctx, id, func(g *engine.Game) error {
		side, err := seatOf(g, userID)
		if err != nil {
			return err
		}
		return g.PlacePiece(side, pos, kind)
	})
}

// Remove takes one of the user's pieces off the board, refunding its cost.
func (m *Manager) Remove(ctx context.Context, id, userID string, pos engine.Position) (*engine.Game, error) {
	return m.update(ctx, id, func(g *engine.Game) error {
		side, err := seatOf(g, userID)
		if err != nil {
			return err
		}
		return g.RemovePiece(side, pos)
	})
}

// MoveSetupPiece relocates a drafted piece inside the user's zone.
func (m *Manager) MoveSetupPiece(ctx context.Context, id, userID string, from, to engine.Position) (*engine.Game, error) {
	return m.update(ctx, id, func(g *engine.Game) error {
		side, err := seatOf(g, userID)
		if err != nil {
			return err
		}
		return g.MoveSetupPiece(side, from, to)
	})
}

// ApplyPreset applies a built-in preset or one of the user's saved layouts,
// built-ins taking precedence on a name clash.
func (m *Manager) ApplyPreset(ctx context.Context, id, userID, name string) (*engine.Game, error) {
	layout, ok := engine.Layout{}, false
	if m.catalog != nil {
		layout, ok = m.catalog.Get(name)
	}
	if !ok {
		raw, err := m.rdb.Get(ctx, layoutKey(strings.TrimSpace(userID), strings.TrimSpace(name))).Bytes()
		if err == redis.Nil {
			return nil, ErrLayoutNotFound
		}
		if err != nil {
			return nil, err
		}
		if jerr := json.Unmarshal(raw, &layout); jerr != nil {
			return nil, fmt.Errorf("decode saved layout: %w", jerr)
		}
	}
	return m.update(ctx, id, func(g *engine.Game) error {
		side, err := seatOf(g, userID)
		if err != nil {
			return err
		}
		return g.ApplyLayout(side, layout)
	})
}

// SaveLayout stores the user's current placement under a name, with the
// points spent recorded as the layout's cost.
func (m *Manager) SaveLayout(ctx context.Context, id, userID, name string) error {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return fmt.Errorf("layout name required")
	}
	g, err := m.get(ctx, id)
	if err != nil {
		return err
	}
	side, err := seatOf(g, userID)
	if err != nil {
		return err
	}
	l := g.CurrentLayout(side)
	l.Name = name
	raw, err := json.Marshal(&l)
	if err != nil {
		return err
	}
	if err := m.rdb.Set(ctx, layoutKey(strings.TrimSpace(userID), name), raw, 0).Err(); err != nil {
		return err
	}
	obslog.L().Info("layout_save",
		zap.String("game_id", id),
		zap.String("user_id", userID),
		zap.String("name", name),
		zap.Int("cost", l.Cost),
	)
	return nil
}

// FinishSetup freezes the user's draft; when both drafts are frozen the
// game enters play.
func (m *Manager) FinishSetup(ctx context.Context, id, userID string) (*engine.Game, error) {
	g, err := m.update(ctx, id, func(g *engine.Game) error {
		side, err := seatOf(g, userID)
		if err != nil {
			return err
		}
		return g.FinishSetup(side)
	})
	if err != nil {
		return nil, err
	}
	if g.Phase == engine.PhasePlaying {
		obslog.L().Info("game_start",
			zap.String("game_id", id),
			zap.Bool("fog", g.FogOfWar),
			zap.Int("move_time_limit", g.MoveTimeLimit),
		)
	}
	return g, nil
}

// ResetSide clears the user's draft back to a lone king and a full budget.
func (m *Manager) ResetSide(ctx context.Context, id, userID string) (*engine.Game, error) {
	return m.update(ctx, id, func(g *engine.Game) error {
		side, err := seatOf(g, userID)
		if err != nil {
			return err
		}
		return g.ResetSide(side)
	})
}

// Move applies a playing-phase move for the user and archives the game if
// the move ended it.
func (m *Manager) Move(ctx context.Context, id, userID string, from, to engine.Position) (*engine.Game, engine.MoveResult, error) {
	var res engine.MoveResult
	g, err := m.update(ctx, id, func(g *engine.Game) error {
		side, err := seatOf(g, userID)
		if err != nil {
			return err
		}
		r, err := g.Move(side, from, to)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, engine.MoveResult{}, err
	}
	obslog.L().Info("game_move",
		zap.String("game_id", id),
		zap.String("user_id", strings.TrimSpace(userID)),
		zap.String("notation", res.Notation),
		zap.Bool("probe", res.Probe),
		zap.Bool("game_over", res.GameOver),
	)
	if res.GameOver {
		_ = m.persistIfFinal(ctx, g, "king_captured")
	}
	return g, res, nil
}

// Resign ends the game in the opponent's favor.
func (m *Manager) Resign(ctx context.Context, id, userID string) (*engine.Game, error) {
	g, err := m.update(ctx, id, func(g *engine.Game) error {
		side, err := seatOf(g, userID)
		if err != nil {
			return err
		}
		return g.Resign(side)
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("game_resign",
		zap.String("game_id", id),
		zap.String("user_id", strings.TrimSpace(userID)),
		zap.String("status", string(g.Status)),
	)
	_ = m.persistIfFinal(ctx, g, "resignation")
	return g, nil
}

// Tick advances the game clock by one second.
func (m *Manager) Tick(ctx context.Context, id string) (*engine.Game, engine.TickResult, error) {
	var res engine.TickResult
	g, err := m.update(ctx, id, func(g *engine.Game) error {
		res = g.TickSecond()
		if !res.Ticked {
			return errSkipPublish
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errSkipPublish) {
			return nil, engine.TickResult{}, nil
		}
		return nil, engine.TickResult{}, err
	}
	if res.Expired {
		obslog.L().Info("clock_expired",
			zap.String("game_id", id),
			zap.String("side", string(res.ExpiredSide)),
		)
	}
	return g, res, nil
}

// RunClock drives a game's 1 Hz countdown. A short redis lease makes sure
// only one process ticks a given game; the loop exits when the game ends,
// disappears, or ctx is cancelled.
func (m *Manager) RunClock(ctx context.Context, id string) {
	lease := clockKey(id)
	holder := uuid.NewString()
	ok, err := m.rdb.SetNX(ctx, lease, holder, clockLeaseTTL).Result()
	if err != nil || !ok {
		return
	}
	defer m.rdb.Del(context.WithoutCancel(ctx), lease)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = m.rdb.Expire(ctx, lease, clockLeaseTTL).Err()
			g, err := m.get(ctx, id)
			if err != nil {
				return
			}
			if g.Phase == engine.PhaseGameOver {
				return
			}
			if g.Phase != engine.PhasePlaying || g.MoveTimeLimit <= 0 {
				continue
			}
			if _, _, err := m.Tick(ctx, id); err != nil && !errors.Is(err, ErrConflict) {
				obslog.L().Warn("clock_tick_error", zap.String("game_id", id), zap.Error(err))
			}
		}
	}
}

// Subscribe returns the pub/sub feed of accepted snapshots for a game.
func (m *Manager) Subscribe(ctx context.Context, id string) *redis.PubSub {
	return m.rdb.Subscribe(ctx, eventsKey(id))
}

// errSkipPublish aborts an update without treating it as a failure; used
// when a transaction turns out to be a no-op.
var errSkipPublish = errf("nothing to publish")

// update runs fn against the freshly loaded game inside a WATCH
// transaction, bumps the version, saves, and broadcasts the new snapshot.
// Engine rejections abort the transaction and surface unchanged.
func (m *Manager) update(ctx context.Context, id string, fn func(*engine.Game) error) (*engine.Game, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("session manager not initialized")
	}
	gameK := gameKey(id)
	var out *engine.Game
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, gameK).Bytes()
		if err == redis.Nil {
			return ErrGameNotFound
		}
		if err != nil {
			return err
		}
		g, err := engine.Hydrate(raw)
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
		g.Version++
		g.UpdatedAt = time.Now().UTC()
		newRaw, err := g.Snapshot()
		if err != nil {
			return err
		}
		pipe := tx.TxPipeline()
		pipe.Set(ctx, gameK, newRaw, m.ttl)
		pipe.Publish(ctx, eventsKey(id), string(newRaw))
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		out = g
		return nil
	}, gameK)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return out, nil
}

func (m *Manager) save(ctx context.Context, g *engine.Game) error {
	raw, err := g.Snapshot()
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, gameKey(g.ID), raw, m.ttl).Err()
}

func (m *Manager) get(ctx context.Context, id string) (*engine.Game, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return engine.Hydrate(raw)
}

func (m *Manager) indexParticipant(ctx context.Context, id, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	key := idxUserKey(userID)
	if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil {
		return err
	}
	return m.rdb.Expire(ctx, key, m.ttl).Err()
}

// persistIfFinal archives a finished game when a repository is attached.
func (m *Manager) persistIfFinal(ctx context.Context, g *engine.Game, method string) error {
	if m == nil || m.repo == nil || g == nil {
		return nil
	}
	if g.Phase != engine.PhaseGameOver {
		return nil
	}
	if err := m.repo.SaveResult(ctx, g, method); err != nil {
		obslog.L().Error("game_archive_error", zap.String("game_id", g.ID), zap.Error(err))
		return err
	}
	obslog.L().Info("game_archive",
		zap.String("game_id", g.ID),
		zap.String("status", string(g.Status)),
		zap.String("method", method),
	)
	return nil
}

func seatOf(g *engine.Game, userID string) (engine.Side, error) {
	side := g.Seat(strings.TrimSpace(userID))
	if side == "" {
		return "", ErrNotParticipant
	}
	return side, nil
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

// codeGen returns a 6-character upper alnum join code.
func codeGen() (string, error) {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}
