package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"leadgen-engine/internal/cache"
	"leadgen-engine/internal/config"
	"leadgen-engine/internal/events"
	"leadgen-engine/internal/httpapi"
	"leadgen-engine/internal/orchestrator"
	"leadgen-engine/internal/scrape/proxy"
	"leadgen-engine/internal/secrets"
	"leadgen-engine/internal/store"
)

func main() {
	// Engine data dir: use env if provided (the desktop shell passes
	// one), else local folder.
	dataDir := os.Getenv("LEADGEN_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One engine per data dir; two processes sharing the sqlite file
	// would corrupt job state.
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("instance lock failed: %v", err)
	}
	if !locked {
		log.Fatalf("another engine is already running on %s", dataDir)
	}
	defer func() { _ = lock.Unlock() }()

	userCfgPath, err := config.EnsureUserConfig(dataDir)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	// Load config and keep it reloadable
	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	cfg, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfgVal.Store(cfg)

	db, err := store.Open(filepath.Join(dataDir, "leadgen.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := store.Migrate(db.Pool); err != nil {
		log.Fatal(err)
	}

	hub := events.NewHub()

	if _, err := secrets.GetProxyAPIKey(); err != nil {
		// The engine still starts; jobs fail with a clear message
		// until a key is stored via POST /api/secrets/proxy. The key
		// is re-resolved on every fetch, so no restart is needed.
		log.Printf("[main] warning: %v", err)
	}

	limiter := proxy.NewHostLimiter(cfg.Scraper.RatePerSec, cfg.Scraper.RateBurst)
	fetcher := proxy.New(proxy.Options{
		BaseURL:   cfg.Scraper.ProxyBaseURL,
		KeySource: secrets.GetProxyAPIKey,
		Country:   cfg.Scraper.Country,
		Premium:   cfg.Scraper.Premium,
		Render:    cfg.Scraper.Render,
		Timeout:   cfg.ScrapeTimeout(),
	}, limiter)

	var docCache orchestrator.Cache
	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache.RedisURL, time.Duration(cfg.Cache.TTLMinutes)*time.Minute)
		if err != nil {
			log.Printf("[main] cache disabled: %v", err)
		} else {
			defer c.Close()
			docCache = c
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.New(orchestrator.Deps{
		DB:          db.Pool,
		Fetch:       fetcher,
		Cache:       docCache,
		Hub:         hub,
		Workers:     cfg.Orchestrator.Workers,
		QueueSize:   cfg.Orchestrator.QueueSize,
		MaxQuantity: cfg.Orchestrator.MaxQuantity,
		BatchPause:  cfg.BatchPause(),
	})
	if err := orch.Start(ctx); err != nil {
		log.Fatalf("orchestrator start failed: %v", err)
	}
	defer orch.Stop()

	go orch.RunJanitor(ctx, time.Minute,
		time.Duration(cfg.Orchestrator.StaleAfterMinutes)*time.Minute)

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db.Pool,
		Hub:         hub,
		Orch:        orch,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
	})

	handler := httpapi.Chain(mux,
		httpapi.RequestID,
		httpapi.Recover,
		httpapi.AccessLog,
		httpapi.Cors,
	)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.App.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (data=%s)", addr, dataDir)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Println("engine stopped")
}
