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
	"go.uber.org/zap"

	"futures-dash/internal/api"
	"futures-dash/internal/events"
	"futures-dash/internal/market"
	"futures-dash/internal/monitor"
	"futures-dash/internal/persistence"
	"futures-dash/internal/realtime"
	"futures-dash/pkg/cache"
	"futures-dash/pkg/config"
	"futures-dash/pkg/db"
	"futures-dash/pkg/i18n"
	"futures-dash/pkg/logger"
	binance "futures-dash/pkg/market/binance"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, i18n.Get("ConfigLoadFailed")+"\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "futures-dash"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.SetGlobal(log)
	defer logger.Sync()

	lang := i18n.Parse(cfg.Language, i18n.LangEN)
	i18n.SetLanguage(lang)
	logger.Infof(i18n.Get("Starting"))
	logger.Infof(i18n.Get("ConfigLoaded"), cfg.Port)
	logger.Infof(i18n.Get("UsingDBPath"), cfg.DBPath)

	buildVersion := os.Getenv("APP_VERSION")
	if buildVersion == "" {
		buildVersion = "v1.0-dev"
	}
	if cfg.LogFormat != "console" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Fatalf(i18n.Get("DBInitFailed"), err)
	}
	defer database.Close()

	defaultMarket, err := realtime.ParseMarket(cfg.DefaultMarket)
	if err != nil {
		logger.Fatalf(i18n.Get("ConfigLoadFailed"), err)
	}

	// Live stream: registry owns ids, stream client owns the socket, fanout
	// shares each feed between the consumers below.
	bus := events.NewBus()
	registry := realtime.NewRegistry(nil, log.Named("registry"))
	stream := realtime.NewStreamClient(realtime.StreamOptions{
		URL:          cfg.TradingWSURL,
		Market:       defaultMarket,
		PingInterval: cfg.WSPingInterval,
		ReconnectMax: cfg.WSReconnectMax,
	}, registry, log.Named("stream"))
	stream.OnStatus(func(connected bool, attempt int, err error) {
		st := events.StreamStatus{Connected: connected, URL: cfg.TradingWSURL, Attempt: attempt, At: time.Now()}
		if err != nil {
			st.Error = err.Error()
		}
		if connected {
			logger.Infof(i18n.Get("StreamConnected"), cfg.TradingWSURL)
		} else if attempt <= 1 {
			logger.Warnf(i18n.Get("StreamDisconnected"), attempt, err)
		}
		bus.Publish(events.EventStreamStatus, st)
	})
	fanout := realtime.NewFanout(registry, bus, log.Named("fanout"))

	// Market data
	funding := market.NewFundingService(
		binance.NewFundingClient(cfg.ExchangeAPIURL, cfg.BinanceTestnet),
		cfg.FundingCacheTTL,
		log.Named("funding"),
	)
	feed := &market.Feed{
		Fanout:  fanout,
		Bus:     bus,
		Market:  defaultMarket,
		Symbols: cfg.StreamSymbols,
		Prices:  cache.NewTTLCache[market.MarkPrice](2 * cfg.WSPingInterval),
		Log:     log.Named("feed"),
	}
	feed.Start(ctx)
	exchange := binance.NewClient(cfg.ExchangeAPIURL, cfg.ProxyTimeout, log.Named("exchange"))

	// Order history
	var writer *persistence.BatchWriter
	if cfg.PersistOrderUpdates {
		writer = persistence.NewBatchWriter(database.DB, 100, time.Second, log.Named("batch"))
		defer writer.Close()
		recorder := &persistence.OrderRecorder{
			Fanout: fanout,
			Bus:    bus,
			Writer: writer,
			Market: defaultMarket,
			Log:    log.Named("orders"),
		}
		go recorder.Run(ctx)
	}

	(&monitor.Monitor{
		Bus:   bus,
		Sink:  monitor.LogSink{Log: log.Named("alert")},
		Grace: 30 * time.Second,
		Log:   log.Named("monitor"),
	}).Start(ctx)

	metrics := monitor.NewSystemMetrics()
	metrics.Register("registry", func() any { return registry.Stats() })
	metrics.Register("stream", func() any { return stream.Stats() })
	metrics.Register("funding", func() any { return funding.Stats() })
	metrics.Register("bus_dropped", func() any { return bus.Dropped() })
	metrics.Register("exchange_weight", func() any {
		used, limit, pct := exchange.Weight.Usage()
		return map[string]any{"used": used, "limit": limit, "percent": pct}
	})
	if writer != nil {
		metrics.Register("batch_writer", func() any { return writer.Metrics() })
	}

	go func() {
		if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("stream stopped", zap.Error(err))
		}
	}()

	server := api.NewServer(api.Deps{
		Bus:      bus,
		Registry: registry,
		Fanout:   fanout,
		Stream:   stream,
		DB:       database,
		Funding:  funding,
		Feed:     feed,
		Exchange: exchange,
		Metrics:  metrics,
		Log:      log.Named("api"),
	}, api.Options{
		BackendURL:    cfg.TradingBackendURL,
		ProxyTimeout:  cfg.ProxyTimeout,
		JWTSecret:     cfg.JWTSecret,
		AuthRequired:  cfg.AuthRequired,
		Language:      lang,
		DefaultMarket: defaultMarket,
		Version:       buildVersion,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof(i18n.Get("ServerListening"), cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf(i18n.Get("APIServerError"), err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Infof(i18n.Get("ShuttingDown"))

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
}
