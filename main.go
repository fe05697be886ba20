package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"golang.org/x/net/publicsuffix"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	cfg, err := Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// init database
	db, err := badger.Open(badger.DefaultOptions(cfg.DBPath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return err
	}
	defer db.Close()
	store := NewStore(db)

	// init target site client: the priming page keeps cookies in a jar, the
	// search request composes its own cookie header
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	primingHTTP := &http.Client{Timeout: cfg.InfobusTimeout, Transport: transport, Jar: jar}
	searchHTTP := &http.Client{Timeout: cfg.InfobusTimeout, Transport: transport}

	sessions := NewSessionManager(
		NewRetryClient(primingHTTP, cfg.InfobusUserAgent, cfg.InfobusMaxRetries, cfg.InfobusBackoffBase, logger),
		jar,
		cfg.InfobusBaseURL,
		cfg.InfobusClockSkew,
		logger,
	)
	infobus := NewInfobusClient(
		NewRetryClient(searchHTTP, cfg.InfobusUserAgent, cfg.InfobusMaxRetries, cfg.InfobusBackoffBase, logger),
		sessions,
		cfg.InfobusBaseURL,
		logger,
	)

	// init bot
	h := &handlers{store: store, points: points, logger: logger}
	b, err := bot.New(cfg.TelegramToken, bot.WithDefaultHandler(h.messageHandler))
	if err != nil {
		return err
	}
	h.register(b)

	monitor := NewMonitor(store, infobus, &telegramNotifier{b: b}, MonitorConfig{
		CheckEvery:   cfg.CheckEvery,
		ReportEvery:  cfg.ReportEvery,
		ScreenWidth:  cfg.ScreenWidth,
		ScreenHeight: cfg.ScreenHeight,
	}, logger)

	var monitoringWaitGroup sync.WaitGroup
	monitoringWaitGroup.Add(1)
	go func() {
		defer monitoringWaitGroup.Done()
		monitor.Run(ctx)
	}()

	var server *http.Server
	if cfg.HasStatusServer() {
		server = &http.Server{
			Addr:         cfg.StatusAddr,
			Handler:      newStatusRouter(store, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("starting status server", "addr", cfg.StatusAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server error", "error", err)
			}
		}()
	}

	logger.Info("bot started")
	b.Start(ctx)

	logger.Info("shutting down, waiting for the current tick")
	if server != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("status server shutdown error", "error", err)
		}
	}
	monitoringWaitGroup.Wait()

	logger.Info("bot stopped")
	return nil
}
