package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	appcfg "github.com/larkvale/budgetchess-server/internal/config"
	"github.com/larkvale/budgetchess-server/internal/gateway"
	"github.com/larkvale/budgetchess-server/internal/obslog"
	"github.com/larkvale/budgetchess-server/internal/presets"
	"github.com/larkvale/budgetchess-server/internal/render"
	"github.com/larkvale/budgetchess-server/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.L().Sync() //nolint:errcheck

	catalog, err := presets.New(cfg.PresetDir)
	if err != nil {
		obslog.L().Fatal("preset catalog init error", zap.Error(err))
	}

	mgr, err := session.NewManager(cfg.RedisURL, catalog, time.Duration(cfg.GameTTLSec)*time.Second, cfg.MaxOpenGames)
	if err != nil {
		obslog.L().Fatal("session manager init error", zap.Error(err))
	}
	defer mgr.Close()
	mgr.SetDefaultMoveLimit(cfg.DefaultMoveTimeLimit)

	if cfg.DatabaseURL != "" {
		repo, err := session.NewRepository(cfg.DatabaseURL)
		if err != nil {
			obslog.L().Fatal("archive repository init error", zap.Error(err))
		}
		defer repo.Close()
		mgr.AttachRepository(repo)
	} else {
		obslog.L().Warn("DATABASE_URL not set, finished games will not be archived")
	}

	api := gateway.NewAPI(mgr, render.NewRenderer())
	apiSrv := &fasthttp.Server{
		Handler:      api.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		obslog.L().Info("api listening", zap.String("addr", cfg.APIAddr))
		if err := apiSrv.ListenAndServe(cfg.APIAddr); err != nil {
			obslog.L().Fatal("api server error", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", gateway.WSHandler(mgr))
	wsSrv := &http.Server{Addr: cfg.WSAddr, Handler: mux}
	go func() {
		obslog.L().Info("ws listening", zap.String("addr", cfg.WSAddr))
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obslog.L().Fatal("ws server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	obslog.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = wsSrv.Shutdown(shutdownCtx)
	_ = apiSrv.ShutdownWithContext(shutdownCtx)
}
