package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/api"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/config"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/exchange"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/notify"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/order"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/processor"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/push"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/storage"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/ticker"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/trader"
)

// App defines the application structure and its dependencies
type App struct {
	Config      *config.Config
	Instance    *config.Instance
	Logger      *zap.Logger
	DB          *pgxpool.Pool
	NC          *nats.Conn
	JS          nats.JetStreamContext
	Store       *storage.CandleStore
	Tickers     *ticker.Cache
	Exchanges   *exchange.Manager
	Notifier    notify.Notifier
	Trader      *trader.Trader
	PushGateway *push.PushGateway
	HTTPServer  *http.Server
}

// NewApp creates a new application instance
func NewApp() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	infrastructure.Init(cfg.LogDebug)
	logger := infrastructure.Logger

	return &App{
		Config: &cfg,
		Logger: logger,
	}, nil
}

// Init initializes all application components
func (a *App) Init(ctx context.Context) error {
	// 1. Instance file: watched pairs and capital
	instance, err := config.LoadInstance(a.Config.InstanceFile)
	if err != nil {
		return fmt.Errorf("failed to load instance: %w", err)
	}
	a.Instance = instance

	// 2. Database
	dbPool, err := pgxpool.Connect(ctx, a.Config.DB_DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = dbPool

	if err := a.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// 3. NATS
	nc, js, err := infrastructure.InitNATS(a.Config.NatsURL, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.NC = nc
	a.JS = js

	// 4. Notifier, wired first so persistence failures can alert
	if a.Config.TgToken != "" {
		tg, err := notify.NewTelegram(a.Config.TgToken, a.Config.TgChatID, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to init telegram notifier: %w", err)
		}
		a.Notifier = tg
	} else {
		a.Notifier = notify.NewLogNotifier(a.Logger)
	}

	// 5. Market state
	a.Store = storage.NewCandleStore(a.DB, a.Notifier, a.Logger)
	a.Tickers = ticker.NewCache()

	// 6. Execution venues. Paper venues are registered under the real
	// venue names so live market data drives simulated fills.
	a.Exchanges = exchange.NewManager()
	for name, specs := range a.venueSpecs() {
		a.Exchanges.Register(exchange.NewPaper(name, specs, a.Logger))
	}

	// 7. Trading pipeline
	calculator := order.NewCalculator(a.Tickers, a.Exchanges, instance, a.Logger)
	reconciler := order.NewReconciler(a.Exchanges, a.Logger)
	a.Trader = trader.New(trader.Options{
		Candles:    a.Store,
		Tickers:    a.Tickers,
		Calculator: calculator,
		Reconciler: reconciler,
		Notifier:   a.Notifier,
		JS:         js,
		Logger:     a.Logger,
		Interval:   time.Duration(a.Config.TickInterval) * time.Second,
	})
	for _, pair := range instance.WatchedPairs() {
		if err := a.Trader.Watch(pair); err != nil {
			return fmt.Errorf("failed to watch %s %s: %w", pair.Exchange, pair.Symbol, err)
		}
	}

	a.PushGateway = push.NewPushGateway(js, a.Logger)

	return nil
}

// venueSpecs collects symbol specs per exchange from the instance pairs.
func (a *App) venueSpecs() map[string]map[string]exchange.SymbolSpec {
	out := make(map[string]map[string]exchange.SymbolSpec)
	for _, pair := range a.Instance.Pairs {
		if out[pair.Exchange] == nil {
			out[pair.Exchange] = make(map[string]exchange.SymbolSpec)
		}
		out[pair.Exchange][pair.Symbol] = symbolSpecFromOptions(pair.Options)
	}
	return out
}

// Run starts the application services and the HTTP server
func (a *App) Run(ctx context.Context) error {
	// Persistence and ticker cache feed
	a.startPersistenceService()

	// Trade aggregation into candles
	candleProcessor := processor.NewCandleProcessor(a.JS, a.Logger)
	if err := candleProcessor.Run(ctx); err != nil {
		return fmt.Errorf("failed to start candle processor: %w", err)
	}

	// Market data ingestion
	a.startIngestionWorker(ctx)

	// Strategy evaluation loop
	go a.Trader.Run(ctx)

	a.Notifier.Send(ctx, notify.LevelInfo,
		fmt.Sprintf("bot started; watching %d pairs", len(a.Instance.WatchedPairs())))

	// Setup HTTP Server
	a.HTTPServer = &http.Server{
		Addr:    ":" + a.Config.Port,
		Handler: a.setupRouter(),
	}

	go func() {
		a.Logger.Info("starting http server", zap.String("port", a.Config.Port))
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	return a.waitForShutdown()
}

// waitForShutdown handles graceful shutdown signals
func (a *App) waitForShutdown() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.NC.Close()
	a.DB.Close()

	return nil
}

// initDatabase runs the database initialization script
func (a *App) initDatabase(ctx context.Context) error {
	sqlFile := "scripts/init.sql"
	content, err := os.ReadFile(sqlFile)
	if err != nil {
		return fmt.Errorf("failed to read init script: %w", err)
	}

	_, err = a.DB.Exec(ctx, string(content))
	if err != nil {
		return fmt.Errorf("failed to execute init script: %w", err)
	}

	a.Logger.Info("database initialized successfully")
	return nil
}

// setupRouter configures the Gin router and its routes
func (a *App) setupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	apiHandler := api.NewHandler(a.Store, a.Trader, a.Exchanges, a.Logger)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/pairs", apiHandler.GetPairs)
		v1.GET("/candles/:symbol", apiHandler.GetHistoryCandles)
		v1.POST("/backtest", apiHandler.RunBacktest)
	}

	r.GET("/ws", func(c *gin.Context) {
		a.PushGateway.ServeHTTP(c.Writer, c.Request)
	})

	return r
}
