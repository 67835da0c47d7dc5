// Package gateway exposes the session manager to clients: a fasthttp REST
// surface for lobby operations and snapshots, and a websocket endpoint for
// live play.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/larkvale/budgetchess-server/internal/engine"
	"github.com/larkvale/budgetchess-server/internal/obslog"
	"github.com/larkvale/budgetchess-server/internal/render"
	"github.com/larkvale/budgetchess-server/internal/session"
	"github.com/larkvale/budgetchess-server/pkg/gamedto"
)

type API struct {
	mgr  *session.Manager
	rend *render.Renderer
}

func NewAPI(mgr *session.Manager, rend *render.Renderer) *API {
	return &API{mgr: mgr, rend: rend}
}

// Handler routes:
//
//	GET  /healthz
//	POST /games            create a session
//	POST /games/join       take the black seat by code
//	GET  /games            list open sessions
//	GET  /games/{id}       current snapshot
//	GET  /games/{id}/board.png?seat=white|black
func (a *API) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		switch {
		case path == "/healthz" && method == fasthttp.MethodGet:
			ctx.SetStatusCode(fasthttp.StatusOK)
		case path == "/games" && method == fasthttp.MethodPost:
			a.createGame(ctx)
		case path == "/games/join" && method == fasthttp.MethodPost:
			a.joinGame(ctx)
		case path == "/games" && method == fasthttp.MethodGet:
			a.listGames(ctx)
		case strings.HasPrefix(path, "/games/") && method == fasthttp.MethodGet:
			rest := strings.TrimPrefix(path, "/games/")
			if id, ok := strings.CutSuffix(rest, "/board.png"); ok {
				a.boardPNG(ctx, strings.TrimSuffix(id, "/"))
				return
			}
			a.getGame(ctx, rest)
		default:
			writeError(ctx, fasthttp.StatusNotFound, "not found")
		}
	}
}

func (a *API) createGame(ctx *fasthttp.RequestCtx) {
	var req gamedto.CreateGameRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad json")
		return
	}
	if strings.TrimSpace(req.HostID) == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "host_id required")
		return
	}
	g, code, err := a.mgr.Create(requestCtx(ctx), req.HostID, req.HostName, engine.Options{
		FogOfWar:      req.FogOfWar,
		MoveTimeLimit: req.MoveTimeLimit,
	})
	if err != nil {
		writeManagerError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusCreated, gamedto.CreateGameResponse{GameID: g.ID, Code: code})
}

func (a *API) joinGame(ctx *fasthttp.RequestCtx) {
	var req gamedto.JoinGameRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad json")
		return
	}
	g, err := a.mgr.Join(requestCtx(ctx), req.Code, req.UserID, req.UserName)
	if err != nil {
		writeManagerError(ctx, err)
		return
	}
	writeSnapshot(ctx, g)
}

func (a *API) listGames(ctx *fasthttp.RequestCtx) {
	games, err := a.mgr.ListOpen(requestCtx(ctx))
	if err != nil {
		writeManagerError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, games)
}

func (a *API) getGame(ctx *fasthttp.RequestCtx, id string) {
	g, err := a.mgr.Get(requestCtx(ctx), id)
	if err != nil {
		writeManagerError(ctx, err)
		return
	}
	writeSnapshot(ctx, g)
}

func (a *API) boardPNG(ctx *fasthttp.RequestCtx, id string) {
	g, err := a.mgr.Get(requestCtx(ctx), id)
	if err != nil {
		writeManagerError(ctx, err)
		return
	}
	seat := engine.Side(strings.ToLower(string(ctx.QueryArgs().Peek("seat"))))
	png, err := a.rend.RenderPNG(g, seat)
	if err != nil {
		obslog.L().Error("board_render_error", zap.String("game_id", id), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "render failed")
		return
	}
	ctx.SetContentType("image/png")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(png)
}

func writeSnapshot(ctx *fasthttp.RequestCtx, g *engine.Game) {
	raw, err := g.Snapshot()
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "snapshot failed")
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBody(raw)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "encode failed")
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(raw)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	raw, _ := json.Marshal(gamedto.ErrorResponse{Error: msg})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(raw)
}

// writeManagerError maps session and engine sentinels onto HTTP statuses.
// Gameplay rejections are client errors, not server failures.
func writeManagerError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, session.ErrGameNotFound), errors.Is(err, session.ErrCodeNotFound):
		writeError(ctx, fasthttp.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrConflict):
		writeError(ctx, fasthttp.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotParticipant):
		writeError(ctx, fasthttp.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrInvalidSnapshot):
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
	default:
		writeError(ctx, fasthttp.StatusUnprocessableEntity, err.Error())
	}
}

func requestCtx(ctx *fasthttp.RequestCtx) context.Context { return ctx }
