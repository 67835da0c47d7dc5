package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/larkvale/budgetchess-server/internal/engine"
	"github.com/larkvale/budgetchess-server/internal/presets"
	"github.com/larkvale/budgetchess-server/internal/render"
	"github.com/larkvale/budgetchess-server/internal/session"
	"github.com/larkvale/budgetchess-server/pkg/gamedto"
)

// newTestServer runs the REST handler over an in-memory listener and
// returns a client wired to it.
func newTestServer(t *testing.T) *http.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	catalog, err := presets.New("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	mgr, err := session.NewManager("redis://"+mr.Addr(), catalog, time.Hour, 10)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })

	api := NewAPI(mgr, render.NewRenderer())
	ln := fasthttputil.NewInmemoryListener()
	go fasthttp.Serve(ln, api.Handler()) //nolint:errcheck
	t.Cleanup(func() { ln.Close() })

	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(context.Context, string, string) (net.Conn, error) {
				return ln.Dial()
			},
		},
	}
}

func postJSON(t *testing.T, c *http.Client, url string, body, out any) int {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := c.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	c := newTestServer(t)
	resp, err := c.Get("http://bc/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestGameLifecycleOverREST(t *testing.T) {
	c := newTestServer(t)

	var created gamedto.CreateGameResponse
	status := postJSON(t, c, "http://bc/games",
		gamedto.CreateGameRequest{HostID: "alice", HostName: "Alice", FogOfWar: true}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create status = %d", status)
	}
	if created.GameID == "" || len(created.Code) != 6 {
		t.Fatalf("create response = %+v", created)
	}

	// The open lobby lists the fresh game.
	resp, err := c.Get("http://bc/games")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var open []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&open); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	resp.Body.Close()
	if len(open) != 1 {
		t.Fatalf("open games = %d", len(open))
	}

	var joined map[string]any
	status = postJSON(t, c, "http://bc/games/join",
		gamedto.JoinGameRequest{Code: created.Code, UserID: "bob", UserName: "Bob"}, &joined)
	if status != http.StatusOK {
		t.Fatalf("join status = %d", status)
	}
	if joined["phase"] != string(engine.PhaseSetup) {
		t.Fatalf("joined phase = %v", joined["phase"])
	}

	resp, err = c.Get(fmt.Sprintf("http://bc/games/%s", created.GameID))
	if err != nil {
		t.Fatalf("get game: %v", err)
	}
	var snap map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	resp.Body.Close()
	if snap["id"] != created.GameID || snap["fog_of_war_enabled"] != true {
		t.Fatalf("snapshot = %v", snap)
	}

	resp, err = c.Get(fmt.Sprintf("http://bc/games/%s/board.png?seat=white", created.GameID))
	if err != nil {
		t.Fatalf("board png: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("board png: status=%d type=%s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}

func TestRESTErrorMapping(t *testing.T) {
	c := newTestServer(t)

	resp, err := c.Get("http://bc/games/nonesuch")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown game status = %d", resp.StatusCode)
	}

	if status := postJSON(t, c, "http://bc/games",
		gamedto.CreateGameRequest{HostName: "NoID"}, nil); status != http.StatusBadRequest {
		t.Fatalf("missing host_id status = %d", status)
	}

	if status := postJSON(t, c, "http://bc/games/join",
		gamedto.JoinGameRequest{Code: "ZZZZZZ", UserID: "bob"}, nil); status != http.StatusNotFound {
		t.Fatalf("unknown code status = %d", status)
	}
}
