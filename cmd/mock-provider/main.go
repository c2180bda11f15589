package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"twilioasync/internal/config"
	"twilioasync/internal/httpapi"
	"twilioasync/internal/logging"
	"twilioasync/internal/mockprovider"
	"twilioasync/internal/observability"
)

func main() {
	cfg, err := config.LoadMockProvider()
	if err != nil {
		slog.Error("mock provider config load failed", "err", err)
		os.Exit(1)
	}
	logging.Init("mock-provider", cfg.LogFormat, cfg.LogLevel)

	reg := prometheus.NewRegistry()
	observability.Register(reg)

	provider := mockprovider.New(mockprovider.Config{
		AccountSID: cfg.AccountSID,
		AuthToken:  cfg.AuthToken,
		Outcomes:   cfg.Outcomes,
		Delay:      func(url.Values) time.Duration { return cfg.Delay },
	})

	apiSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httpapi.Logging(provider.Handler()),
	}
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: httpapi.New(reg).Mux,
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("mock provider listening", "port", cfg.Port, "outcomes", cfg.Outcomes)
		errCh <- apiSrv.ListenAndServe()
	}()
	go func() {
		slog.Info("mock provider metrics listening", "port", cfg.MetricsPort)
		errCh <- metricsSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("mock provider server failed", "err", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		slog.Info("mock provider shutdown", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
