package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"banking/internal/account"
	"banking/internal/config"
	"banking/internal/gateway"
	"banking/internal/httpapi"
	"banking/internal/ledger"
	"banking/internal/logging"
	"banking/internal/metrics"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	demo := flag.Bool("demo", false, "run concurrent transfers against the gateway and verify the result")
	flag.Parse()

	if err := run(*envFile, *demo); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(envFile string, demo bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, _, err := logging.New(cfg.Logging())
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	account.ConfigureLockDiagnostics(account.Diagnostics{
		Enabled:   cfg.LockDiagnostics,
		Timeout:   cfg.LockTimeout,
		LockOrder: cfg.LockDiagnostics,
	}, logger)

	collector := metrics.NewCollector("ledger")
	l := ledger.MakeLedger(
		ledger.WithLogger(logger),
		ledger.WithRecorder(collector),
		ledger.WithFee(cfg.Fee),
	)

	port := cfg.GatewayPort
	if demo {
		port = 0
	}
	gw := gateway.NewServer(cfg.GatewayHost, port, l, logger)
	if err := gw.Start(); err != nil {
		return err
	}
	defer gw.Stop()

	if demo {
		return runDemo(gw.Addr(), l)
	}

	var admin *http.Server
	if cfg.HTTPAddr != "" {
		admin = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.NewRouter(l, collector.Handler(), logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("admin http listening", zap.String("addr", cfg.HTTPAddr))
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin http server failed", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", zap.String("signal", sig.String()))

	if admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := admin.Shutdown(ctx); err != nil {
			logger.Warn("admin http shutdown", zap.Error(err))
		}
	}

	totals := l.Totals()
	logger.Info("final totals",
		zap.Int("opened", totals.Opened),
		zap.Int("balances", totals.Balances),
		zap.Int("fees_burned", totals.FeesBurned),
		zap.Bool("balanced", totals.Balanced()),
	)
	return nil
}
