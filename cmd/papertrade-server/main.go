package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papertrade/internal/config"
	"papertrade/internal/engine"
	"papertrade/internal/httpapi"
	"papertrade/internal/market"
	"papertrade/internal/rewards"
	"papertrade/internal/store"
	"papertrade/internal/util"
)

func main() {
	cfgPath := "config/papertrade.yaml"
	if p := os.Getenv("PAPERTRADE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	provider := market.NewAlpacaProvider(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Market.RateLimitPerMin,
		cfg.Market.FetchRetries,
		logger,
	)
	quotes := market.NewCache(provider, st, time.Duration(cfg.Market.QuoteTTLSecs)*time.Second, logger)

	eng := engine.NewEngine(quotes, st, st, st, cfg.Trading.StartingBalance, logger)
	rewardsSvc := rewards.NewService(st, cfg.Rewards.PointsPerCorrect, cfg.Rewards.BalancePerPoint, cfg.Trading.StartingBalance, logger)

	srv := httpapi.NewServer(eng, quotes, st, st, st, rewardsSvc, cfg.Market.DefaultSymbols, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("papertrade server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down papertrade server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
