package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/dicebot/dice/client"
	"github.com/betbot/dicebot/internal/controlplane/server"
	"github.com/betbot/dicebot/internal/domain"
	"github.com/betbot/dicebot/internal/engine"
	"github.com/betbot/dicebot/internal/journal"
	"github.com/betbot/dicebot/internal/metrics"
	"github.com/betbot/dicebot/pkg/config"
	"github.com/betbot/dicebot/pkg/keyring"
	"github.com/betbot/dicebot/pkg/logger"
	"github.com/betbot/dicebot/pkg/ratelimit"
	"github.com/betbot/dicebot/pkg/shutdown"

	// import the strategy set to trigger init() registration
	_ "github.com/betbot/dicebot/internal/strategies/all"
)

const gracefulShutdownPeriod = 10 * time.Second

// simulatedStartBalance seeds the dry-run simulator. Large enough for
// thousands of standard stakes.
var simulatedStartBalance = decimal.RequireFromString("0.00100000")

func firstExistingFile(paths ...string) (string, bool) {
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "config file path (.yaml/.yml/.json)")
	flag.Parse()

	if err := logger.InitDefault(); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}

	path := *configPath
	if path == "" {
		found, ok := firstExistingFile("config.yaml", "config.yml", "config.json")
		if ok {
			path = found
		} else {
			logrus.Warn("no config file found, running on defaults and DICEBOT_* env vars")
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		logrus.Errorf("load config failed: %v", err)
		os.Exit(1)
	}

	// Reinitialize logging with the configured level and file.
	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	}); err != nil {
		logrus.Errorf("reinit logger failed: %v", err)
		os.Exit(1)
	}

	logrus.Info("🚀 starting dice betting bot...")

	// root context: cancelled on the stop signal, which winds down the
	// control plane and the debug server.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	apiKey, err := resolveAPIKey(cfg)
	if err != nil {
		logrus.Errorf("resolve api key failed: %v", err)
		os.Exit(1)
	}

	var jnl *journal.Journal
	if cfg.JournalPath != "" {
		jnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			logrus.Errorf("open bet journal failed: %v", err)
			os.Exit(1)
		}
		logrus.Infof("bet journal: %s", cfg.JournalPath)
	}

	opts, err := engineOptions(cfg, jnl)
	if err != nil {
		logrus.Errorf("build engine options failed: %v", err)
		os.Exit(1)
	}

	eng := engine.New(opts)
	if err := eng.Initialize(); err != nil {
		logrus.Errorf("initialize engine failed: %v", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logrus.Warn("📝 dry run enabled: bets settle against a local simulator, nothing reaches the provider")
	}

	if err := eng.Configure(cfg.Site, apiKey, cfg.Currency, cfg.Strategy); err != nil {
		logrus.Errorf("configure session failed: %v", err)
		os.Exit(1)
	}
	logrus.Infof("✅ session configured: site=%s currency=%s strategy=%s balance=%s",
		cfg.Site, strings.ToUpper(cfg.Currency), cfg.Strategy, eng.GetBalance())
	if cfg.DisableLoop {
		logrus.Info("autonomous loop disabled, bets only go through the control plane")
	}

	ctl, err := server.New(server.Config{Addr: cfg.ControlAddr}, eng, jnl)
	if err != nil {
		logrus.Errorf("init control plane failed: %v", err)
		os.Exit(1)
	}
	ctlSrv, err := ctl.Start(rootCtx)
	if err != nil {
		logrus.Errorf("start control plane failed: %v", err)
		os.Exit(1)
	}
	logrus.Infof("control plane listening on %s", cfg.ControlAddr)

	var debugSrv *http.Server
	if cfg.DebugAddr != "" {
		if srv, err := metrics.StartAsync(rootCtx, cfg.DebugAddr); err != nil {
			logrus.Errorf("metrics/pprof start failed: %v", err)
		} else {
			debugSrv = srv
			logrus.Infof("📊 metrics/pprof enabled: listen=%s (expvar:/debug/vars, pprof:/debug/pprof)", cfg.DebugAddr)
		}
	}

	logrus.Info("✅ bot is running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logrus.Info("stop signal received, shutting down...")
	rootCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownPeriod)
	defer shutdownCancel()

	// 1. Stop the session first. Cleanup waits for the in-flight bet to
	//    settle and apply, so the journal sees every completed bet.
	if err := eng.Cleanup(); err != nil {
		logrus.Errorf("session cleanup failed: %v", err)
	}

	// 2. Close the outer surfaces and the journal together.
	mgr := shutdown.NewManager()
	mgr.OnShutdown(func(ctx context.Context) {
		_ = ctlSrv.Shutdown(ctx)
	})
	if debugSrv != nil {
		mgr.OnShutdown(func(ctx context.Context) {
			_ = debugSrv.Shutdown(ctx)
		})
	}
	if jnl != nil {
		mgr.OnShutdown(func(ctx context.Context) {
			if err := jnl.Close(); err != nil {
				logrus.Errorf("close journal failed: %v", err)
			}
		})
	}
	mgr.Shutdown(shutdownCtx)

	logrus.Info("✅ bot stopped")
}

// resolveAPIKey prefers the explicit key (config file or env) and falls
// back to the encrypted keyring when one is configured. Dry runs never
// talk to the provider, so any non-empty key satisfies the session.
func resolveAPIKey(cfg *config.Config) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	if cfg.DryRun {
		return "dry-run", nil
	}
	if cfg.KeyringDir == "" {
		return "", fmt.Errorf("api key is not set")
	}

	master, err := keyring.ParseMasterKey(os.Getenv("DICEBOT_KEYRING_MASTER_KEY"))
	if err != nil {
		return "", fmt.Errorf("parse keyring master key: %w", err)
	}
	kr, err := keyring.Open(keyring.OpenOptions{
		Path:      cfg.KeyringDir,
		MasterKey: master,
		ReadOnly:  true,
	})
	if err != nil {
		return "", fmt.Errorf("open keyring %s: %w", cfg.KeyringDir, err)
	}
	defer kr.Close()

	key, ok, err := kr.APIKey(cfg.Site)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("keyring has no api key for site %q (run key-import first)", cfg.Site)
	}
	logrus.Infof("api key loaded from keyring: %s", cfg.KeyringDir)
	return key, nil
}

// engineOptions maps the file/env config onto an engine.Options,
// choosing the real or simulated provider client.
func engineOptions(cfg *config.Config, jnl *journal.Journal) (engine.Options, error) {
	standard, err := decimal.NewFromString(cfg.Stakes.Standard)
	if err != nil {
		return engine.Options{}, fmt.Errorf("parse standard stake: %w", err)
	}
	confident, err := decimal.NewFromString(cfg.Stakes.Confident)
	if err != nil {
		return engine.Options{}, fmt.Errorf("parse confident stake: %w", err)
	}

	opts := engine.Options{
		CycleInterval:   cfg.CycleInterval.Duration,
		MaxRatePause:    cfg.MaxRatePause.Duration,
		BackoffCeiling:  cfg.BackoffCeiling.Duration,
		FaultThreshold:  cfg.APIErrorFaultThreshold,
		SeedRotateEvery: cfg.SeedRotateEvery,
		DisableLoop:     cfg.DisableLoop,
		UseFaucet:       cfg.UseFaucet,
		Stakes:          domain.StakeTiers{Standard: standard, Confident: confident},
	}

	if cfg.DryRun {
		opts.NewClient = func(sc domain.SessionConfig) engine.Client {
			return client.NewSimulated(sc.Currency, simulatedStartBalance, time.Now().UnixNano())
		}
	} else {
		requestTimeout := cfg.RequestTimeout.Duration
		baseURL := cfg.BaseURL
		opts.NewClient = func(sc domain.SessionConfig) engine.Client {
			// Client-side pacing on top of the provider's own 429s:
			// a short burst, then one request every other second.
			clientOpts := []client.Option{
				client.WithThrottle(ratelimit.NewTokenBucket(3, 0.5)),
			}
			if baseURL != "" {
				clientOpts = append(clientOpts, client.WithBaseURL(baseURL))
			}
			if requestTimeout > 0 {
				clientOpts = append(clientOpts, client.WithTimeout(requestTimeout))
			}
			return client.New(sc.APIKey, clientOpts...)
		}
	}

	if jnl != nil {
		opts.OnResult = func(r domain.BetResult) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := jnl.Record(ctx, r); err != nil {
				logrus.Warnf("journal record failed: %v", err)
			}
		}
	}
	return opts, nil
}
