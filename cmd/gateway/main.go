// Command gateway runs the funding-gated upload gateway: an HTTP service that
// authenticates callers by detached signature, keeps the gateway's bundler
// account funded, and uploads images, remote blobs, and JSON documents to
// permanent storage on the callers' behalf.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/wordcelclub/upload-gateway/internal/server"
	"github.com/wordcelclub/upload-gateway/pkg/auth"
	"github.com/wordcelclub/upload-gateway/pkg/bundlr"
	"github.com/wordcelclub/upload-gateway/pkg/cdn"
	"github.com/wordcelclub/upload-gateway/pkg/config"
	"github.com/wordcelclub/upload-gateway/pkg/directory"
	"github.com/wordcelclub/upload-gateway/pkg/funding"
	"github.com/wordcelclub/upload-gateway/pkg/keys"
	"github.com/wordcelclub/upload-gateway/pkg/upload"
)

func main() {
	configPath := flag.String("config", "", "optional path to a YAML config file")
	flag.Parse()

	initLogger(false)
	defer func() { _ = zap.L().Sync() }()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.L().Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.Debug {
		initLogger(true)
	}

	// The keypair stays in memory only; it is never persisted or logged.
	keypair, err := keys.ParseSecretKey(os.Getenv(cfg.SecretKeyEnv))
	if err != nil {
		zap.L().Fatal("failed to load gateway keypair",
			zap.String("env", cfg.SecretKeyEnv), zap.Error(err))
	}

	node := bundlr.NewClient(cfg.NodeURL, cfg.Chain, keypair, cfg.Timeouts.Node)
	funder := funding.NewManager(node, keypair.Address())
	uploader := upload.New(funder, node, cfg.GatewayURL)
	users := directory.NewClient(cfg.DirectoryURL, cfg.Timeouts.Directory)
	warmer := cdn.NewClient(cfg.CacheEndpoint, cfg.Timeouts.CacheWarm)
	fetcher := server.NewBlobFetcher(cfg.Timeouts.Fetch)

	srv := server.New(cfg, auth.New(cfg.Challenge), uploader, users, warmer, fetcher)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	go func() {
		zap.L().Info("gateway listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("node", cfg.NodeURL),
			zap.String("chain", cfg.Chain),
			zap.String("address", keypair.Address()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zap.L().Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zap.L().Error("graceful shutdown failed", zap.Error(err))
	}
}

// initLogger installs the global zap logger. Console encoding keeps local
// runs readable; debug lowers the level and enables caller annotations.
func initLogger(debug bool) {
	c := zap.Config{
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if debug {
		c.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		c.Development = true
	}

	logger, err := c.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}
