package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/lolparty/partywatch/internal/chat"
	"github.com/lolparty/partywatch/internal/common/config"
	"github.com/lolparty/partywatch/internal/inject"
	"github.com/lolparty/partywatch/internal/lcu"
	"github.com/lolparty/partywatch/internal/share"
	"github.com/lolparty/partywatch/internal/status"
	"github.com/lolparty/partywatch/internal/watcher"
	"github.com/lolparty/partywatch/pkg/logger"
	"go.uber.org/zap"
)

var configPath = flag.String("conf", "", "path to configuration file")

func getConfigPath() string {
	// 1. Command line flag
	if *configPath != "" {
		return *configPath
	}
	// 2. Environment variable
	if envPath := os.Getenv("PARTYWATCH_CONF"); envPath != "" {
		return envPath
	}
	// 3. Default to HOME/.partywatch
	home := os.Getenv("HOME")
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".partywatch", "config.yaml")
}

// lcuConnection builds the connection from config with environment
// overrides, since the external discovery helper usually exports the pair
// as environment variables.
func lcuConnection(cfg *config.Config) lcu.Connection {
	conn := lcu.Connection{Port: cfg.LCU.Port, Token: cfg.LCU.Token}
	if v := os.Getenv("PARTYWATCH_LCU_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			conn.Port = port
		}
	}
	if v := os.Getenv("PARTYWATCH_LCU_TOKEN"); v != "" {
		conn.Token = v
	}
	return conn
}

func main() {
	flag.Parse()

	path := getConfigPath()
	cfg, cfgErr := config.LoadConfig(path)

	zlog, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer zlog.Sync()

	if cfgErr != nil {
		zlog.Warn("running with default configuration",
			zap.String("path", path),
			zap.Error(cfgErr))
	}

	conn := lcuConnection(cfg)
	if conn.Port == 0 || conn.Token == "" {
		zlog.Fatal("no LCU connection configured; set lcu.port/lcu.token or PARTYWATCH_LCU_PORT/PARTYWATCH_LCU_TOKEN")
	}

	client := lcu.NewClient(zlog, conn, cfg.LCU.RequestTimeout)

	cache, err := share.NewCache(zlog, &cfg.Cache)
	if err != nil {
		zlog.Fatal("failed to initialize share cache", zap.Error(err))
	}

	codec := share.NewCodec()
	deduper := share.NewDeduper()
	seen := share.NewSeenMessages()
	transport := chat.NewTransport(zlog, client, codec, seen)
	decider := inject.NewDecider(zlog, inject.NewInjector(zlog, cfg.Injector))
	metrics := status.NewMetrics("partywatch")

	w := watcher.New(watcher.Options{
		Logger:  zlog,
		Client:  client,
		Config:  cfg.Watcher,
		Cache:   cache,
		Deduper: deduper,
		Decider: decider,
		Chat:    transport,
		Metrics: metrics,
	})
	w.Start(context.Background())
	zlog.Info("partywatch running",
		zap.Int("lcuPort", conn.Port),
		zap.Duration("pollInterval", cfg.Watcher.PollInterval))

	var statusSrv *status.Server
	if cfg.Status.Enabled {
		statusSrv = status.NewServer(zlog, cfg.Status.Addr, w.Snapshot, metrics)
		statusSrv.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	w.Shutdown()
	if statusSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statusSrv.Shutdown(ctx); err != nil {
			zlog.Error("failed to shutdown status server", zap.Error(err))
		}
	}
}
