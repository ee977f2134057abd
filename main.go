package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	config "github.com/sybui2004/SeaU-sub001/global/config"
	"github.com/sybui2004/SeaU-sub001/logger"
	mid "github.com/sybui2004/SeaU-sub001/middleware"
	"github.com/sybui2004/SeaU-sub001/service/natsx"
	"github.com/sybui2004/SeaU-sub001/service/relay"
	"github.com/sybui2004/SeaU-sub001/service/relay/handlers"
	"github.com/sybui2004/SeaU-sub001/service/storage"
	redissrv "github.com/sybui2004/SeaU-sub001/service/storage/redis"
	"github.com/sybui2004/SeaU-sub001/tools/ids"
)

func main() {
	cfg := config.Load()
	ids.SetNodeID(cfg.SnowflakeNode)

	// 1) Presence table: in-memory by default, redis when configured.
	var store storage.Store = storage.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		if err := redissrv.InitRedis(redissrv.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}); err != nil {
			logger.Errorf("[boot] redis init failed: %v", err)
			os.Exit(1)
		}
		store = storage.NewRedisStore(redissrv.GetRedis(), "presence:"+cfg.NodeID)
		logger.Infof("[boot] presence store: redis addr=%s", cfg.Redis.Addr)
	}

	// 2) Gateway instance + inbound event handlers.
	srv := relay.NewServer(cfg.NodeID, store, relay.ServerConf{})
	handlers.RegisterAll(srv)

	// 3) Optional presence feed.
	var pub *natsx.Publisher
	if cfg.Nats.URL != "" {
		p, err := natsx.NewPublisher(natsx.Config{
			URL:     cfg.Nats.URL,
			Subject: cfg.Nats.Subject,
			Name:    cfg.NodeID,
		})
		if err != nil {
			logger.Errorf("[boot] nats connect failed: %v", err)
			os.Exit(1)
		}
		pub = p
		srv.SetPublisher(p)
		logger.Infof("[boot] presence feed: nats subject=%s", cfg.Nats.Subject)
	}

	// 4) HTTP + WebSocket.
	mid.Manager().Add(mid.Origin(cfg.AllowedOrigins))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mid.Manager().Use())

	r.GET("/socket", relay.NewWSHandler(srv, mid.OriginChecker(cfg.AllowedOrigins)))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"node": cfg.NodeID, "connections": srv.Reg().Count()})
	})

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logger.Infof("[boot] node=%s listening on :%d", cfg.NodeID, cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("[boot] http server failed: %v", err)
			os.Exit(1)
		}
	}()

	// 5) Shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("[boot] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	srv.Close()
	if pub != nil {
		pub.Close()
	}
	if cfg.Redis.Addr != "" {
		_ = redissrv.CloseRedis()
	}
}
