package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/larkvale/budgetchess-server/internal/engine"
	"github.com/larkvale/budgetchess-server/internal/obslog"
	"github.com/larkvale/budgetchess-server/internal/session"
	"github.com/larkvale/budgetchess-server/pkg/gamedto"
)

const writeTimeout = 5 * time.Second

// WSHandler serves GET /ws?game=<id>&user=<user_id>. The connection gets
// the current snapshot, then every accepted snapshot as it is broadcast;
// frames are redacted per seat while fog of war is active. Client commands
// come back over the same connection.
func WSHandler(mgr *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := strings.TrimSpace(r.URL.Query().Get("game"))
		userID := strings.TrimSpace(r.URL.Query().Get("user"))
		if gameID == "" || userID == "" {
			http.Error(w, "game and user are required", http.StatusBadRequest)
			return
		}

		g, err := mgr.Get(r.Context(), gameID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		seat := g.Seat(userID)
		if seat == "" {
			http.Error(w, "user is not seated in this game", http.StatusForbidden)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "closing")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		if err := writeSnapshotFrame(ctx, conn, g, seat); err != nil {
			return
		}

		// One clock driver per game; the redis lease keeps extras idle.
		go mgr.RunClock(ctx, gameID)

		sub := mgr.Subscribe(ctx, gameID)
		defer sub.Close()
		go func() {
			defer cancel()
			for msg := range sub.Channel() {
				snap, err := engine.Hydrate([]byte(msg.Payload))
				if err != nil {
					obslog.L().Warn("broadcast_decode_error", zap.String("game_id", gameID), zap.Error(err))
					continue
				}
				if err := writeSnapshotFrame(ctx, conn, snap, seat); err != nil {
					return
				}
			}
		}()

		for {
			var cm gamedto.ClientMessage
			if err := wsjson.Read(ctx, conn, &cm); err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					conn.Close(websocket.StatusNormalClosure, "bye")
				}
				return
			}
			if err := dispatch(ctx, mgr, gameID, userID, cm); err != nil {
				if werr := writeErrorFrame(ctx, conn, err); werr != nil {
					return
				}
			}
		}
	}
}

// dispatch maps one client command onto a manager operation. Rejections
// come back as errors; accepted commands answer via the broadcast feed.
func dispatch(ctx context.Context, mgr *session.Manager, gameID, userID string, cm gamedto.ClientMessage) error {
	switch cm.Type {
	case "place":
		pos, err := engine.ParsePosition(cm.Square)
		if err != nil {
			return err
		}
		_, err = mgr.Place(ctx, gameID, userID, pos, engine.Kind(strings.ToLower(cm.Kind)))
		return err
	case "remove":
		pos, err := engine.ParsePosition(cm.Square)
		if err != nil {
			return err
		}
		_, err = mgr.Remove(ctx, gameID, userID, pos)
		return err
	case "move_setup":
		from, to, err := parseFromTo(cm)
		if err != nil {
			return err
		}
		_, err = mgr.MoveSetupPiece(ctx, gameID, userID, from, to)
		return err
	case "apply_preset":
		_, err := mgr.ApplyPreset(ctx, gameID, userID, cm.Name)
		return err
	case "save_layout":
		return mgr.SaveLayout(ctx, gameID, userID, cm.Name)
	case "finish_setup":
		_, err := mgr.FinishSetup(ctx, gameID, userID)
		return err
	case "reset":
		_, err := mgr.ResetSide(ctx, gameID, userID)
		return err
	case "move":
		from, to, err := parseFromTo(cm)
		if err != nil {
			return err
		}
		_, _, err = mgr.Move(ctx, gameID, userID, from, to)
		return err
	case "resign":
		_, err := mgr.Resign(ctx, gameID, userID)
		return err
	default:
		return errors.New("unknown message type")
	}
}

func parseFromTo(cm gamedto.ClientMessage) (engine.Position, engine.Position, error) {
	from, err := engine.ParsePosition(cm.From)
	if err != nil {
		return engine.Position{}, engine.Position{}, err
	}
	to, err := engine.ParsePosition(cm.To)
	if err != nil {
		return engine.Position{}, engine.Position{}, err
	}
	return from, to, nil
}

func writeSnapshotFrame(ctx context.Context, conn *websocket.Conn, g *engine.Game, seat engine.Side) error {
	raw, err := g.ViewFor(seat).Snapshot()
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, gamedto.ServerMessage{Type: "snapshot", Version: g.Version, State: raw})
}

func writeErrorFrame(ctx context.Context, conn *websocket.Conn, err error) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, gamedto.ServerMessage{Type: "error", Error: err.Error()})
}
