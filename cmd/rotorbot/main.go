package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"rotorbot/config"
	"rotorbot/internal/api"
	"rotorbot/internal/execution"
	"rotorbot/internal/gate"
	"rotorbot/internal/indicator"
	"rotorbot/internal/logger"
	"rotorbot/internal/market"
	"rotorbot/internal/metrics"
	"rotorbot/internal/model"
	"rotorbot/internal/notification"
	"rotorbot/internal/orchestrator"
	"rotorbot/internal/risk"
	tradesignal "rotorbot/internal/signal"
	redisstore "rotorbot/internal/store/redis"
	"rotorbot/internal/venue"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("rotorbot", slog.LevelInfo)
	log.Println("[rotorbot] starting...")

	// ---- Load config from env ----
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[rotorbot] %v", err)
	}
	universe := cfg.ParseUniverse()
	allocation := cfg.ParseAllocation()
	log.Printf("[rotorbot] mode=%s universe=%v stable=%s", cfg.Mode, universe, cfg.StableAsset)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, prom, health)
	metricsSrv.Start()

	// ---- Context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("[rotorbot] received %s, shutting down", sig)
		cancel()
	}()

	// ---- Notifier ----
	var channels notification.Multi
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		channels = append(channels, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
		log.Println("[rotorbot] telegram notifications enabled")
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, notification.NewWebhookNotifier(cfg.WebhookURL))
		log.Println("[rotorbot] webhook notifications enabled")
	}
	var notifier notification.Notifier
	if len(channels) > 0 {
		notifier = channels
	} else {
		notifier = notification.NewLogNotifier()
		log.Println("[rotorbot] no notification channel configured, logging only")
	}

	// ---- Venue + market data client ----
	binance := venue.New(venue.Config{
		APIKey:    cfg.BinanceAPIKey,
		APISecret: cfg.BinanceAPISecret,
		RootURL:   cfg.BinanceRootURL,
	})
	mkt := market.NewClient(binance, notifier, market.Config{
		Interval:    cfg.Interval,
		HistoryBars: cfg.HistoryBars,
	})
	mkt.OnRetry = func(op string) { prom.VenueRetries.Inc() }
	mkt.OnDegraded = func(op string) {
		prom.VenueDegradations.Inc()
		health.SetVenueOK(false)
	}
	mkt.Breaker().OnStateChange = func(from, to market.State) {
		prom.BreakerState.Set(float64(to))
	}
	health.SetVenueOK(true)

	// ---- Trade journal (SQLite) ----
	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		log.Fatalf("[rotorbot] journal dir: %v", err)
	}
	journal, err := execution.NewJournal(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[rotorbot] journal init failed: %v", err)
	}
	defer journal.Close()
	log.Println("[rotorbot] trade journal ready")

	// ---- Book snapshots (Redis, optional) ----
	var snapshots orchestrator.BookStore
	var rdb *goredis.Client
	if cfg.RedisAddr != "" {
		store, err := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			log.Printf("[rotorbot] WARNING: redis init failed: %v (continuing without snapshots)", err)
		} else {
			snapshots = store
			rdb = store.Client()
		}
	}
	health.StartLivenessChecker(ctx, rdb, journal.DB(), 10*time.Second)

	// ---- Execution + risk ----
	exec := execution.NewExecutor(mkt, notifier, journal, cfg.StableAsset)
	exec.OnTrade = func(res execution.Result) {
		if res.Success {
			prom.TradesTotal.Inc()
		} else {
			prom.TradeFailures.Inc()
		}
	}

	limits := risk.Limits{
		StopLoss:      cfg.StopLoss,
		TakeProfit:    cfg.TakeProfit,
		RebalanceBand: cfg.RebalanceBand,
	}
	riskMgr := risk.NewManager(mkt, exec, universe, cfg.StableAsset, allocation, limits)
	riskMgr.OnTrigger = func(kind, asset string) {
		prom.RiskTriggers.WithLabelValues(kind).Inc()
	}
	log.Printf("[rotorbot] risk limits: %s", limits.Describe())

	// ---- Approval gates by mode ----
	var gates gate.Chain
	if cfg.Mode == config.ModeAutoAdvisor || cfg.Mode == config.ModeSupervisedAdvisor {
		gates = append(gates, gate.NewAdvisorGate(cfg.AdvisorURL, cfg.AdvisorAPIKey, cfg.AdvisorModel))
		log.Println("[rotorbot] advisor gate enabled")
	}
	if cfg.Mode == config.ModeSupervised || cfg.Mode == config.ModeSupervisedAdvisor {
		gates = append(gates, gate.NewConfirmGate(cfg.ConfirmTOTPSecret))
		log.Println("[rotorbot] operator confirmation gate enabled")
	}

	// ---- Orchestrator ----
	loop := orchestrator.New(orchestrator.Config{
		Universe:      universe,
		Stable:        cfg.StableAsset,
		CycleInterval: cfg.CycleInterval,
		ErrorCooldown: cfg.ErrorCooldown,
	}, orchestrator.Deps{
		Market:    mkt,
		Engine:    indicator.NewEngine(),
		Evaluator: tradesignal.NewEvaluator(),
		Executor:  exec,
		Risk:      riskMgr,
		Gates:     gates,
		Notifier:  notifier,
		Journal:   journal,
		Snapshots: snapshots,
	})
	loop.OnCycle = func(elapsed time.Duration, failed bool) {
		prom.CyclesTotal.Inc()
		prom.CycleDuration.Observe(elapsed.Seconds())
		if failed {
			prom.CycleErrors.Inc()
		} else {
			health.SetVenueOK(true)
		}
		health.SetLastCycleTime(time.Now())
	}
	loop.OnDecision = func(action model.Action) {
		prom.DecisionsTotal.WithLabelValues(string(action)).Inc()
	}
	loop.OnGateHold = func() {
		prom.GateHolds.Inc()
	}

	// ---- Read-only HTTP API (optional) ----
	if cfg.APIAddr != "" {
		router := api.NewRouter(journal, func() model.Book { return loop.Book() })
		apiSrv := &http.Server{Addr: cfg.APIAddr, Handler: router}
		go func() {
			log.Printf("[rotorbot] api listening on %s", cfg.APIAddr)
			if err := apiSrv.ListenAndServe(); err != http.ErrServerClosed {
				log.Printf("[rotorbot] api server error: %v", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			apiSrv.Shutdown(sctx)
		}()
	}

	loop.Run(ctx)

	// ---- Drain ----
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	log.Println("[rotorbot] bye")
}
