package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/meeting-lobby/internal/clock"
	"github.com/iliyamo/meeting-lobby/internal/config"
	"github.com/iliyamo/meeting-lobby/internal/database"
	"github.com/iliyamo/meeting-lobby/internal/handler"
	"github.com/iliyamo/meeting-lobby/internal/livekit"
	"github.com/iliyamo/meeting-lobby/internal/lobby"
	"github.com/iliyamo/meeting-lobby/internal/middleware"
	"github.com/iliyamo/meeting-lobby/internal/queue"
	"github.com/iliyamo/meeting-lobby/internal/repository"
	"github.com/iliyamo/meeting-lobby/internal/router"
	"github.com/iliyamo/meeting-lobby/internal/service"
	"github.com/iliyamo/meeting-lobby/internal/store"
)

func main() {
	loaded, err := config.LoadDotEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogger(cfg)
	if loaded {
		log.Debug().Msg("loaded .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystem()
	checks := map[string]handler.Check{}

	// Redis holds the lobby and the rate limiter.  Without it the lobby
	// runs in process memory, which is only correct for a single instance.
	var (
		rdb *redis.Client
		st  store.Store
	)
	if rdb, err = config.NewRedisClient(cfg.Redis); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-memory lobby store")
		st = store.NewMemory(clk)
		rdb = nil
	} else {
		defer func() { _ = rdb.Close() }()
		st = store.NewRedis(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql")
	}
	defer func() { _ = db.Close() }()
	checks["mysql"] = db.PingContext

	engine := lobby.NewEngine(st, clk,
		lobby.WithKeyPrefix(cfg.Lobby.KeyPrefix),
		lobby.WithTTLs(cfg.Lobby.WaitingTTL(), cfg.Lobby.AcceptedTTL(), cfg.Lobby.DeniedTTL()),
	)
	media := livekit.NewClient(cfg.LiveKit)
	creds := livekit.NewCredentialIssuer(cfg.LiveKit)

	var notifier service.Notifier = media
	if cfg.NotificationTransport == config.TransportQueue {
		notifier = queue.NewPublisher(cfg.RabbitMQURL, clk)
		go func() {
			if err := queue.StartNotificationConsumer(ctx, cfg.RabbitMQURL, media); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("notification consumer stopped")
			}
		}()
	}

	lh := handler.NewLobbyHandler(
		service.NewLobbyService(repository.NewRoomRepo(db), engine, creds, notifier, cfg.Lobby.NotificationType),
		service.NewModerationService(engine),
		lobby.NewIssuer(),
		cfg.Lobby.CookieName,
		cfg.Env != "dev",
	)
	ph := handler.NewParticipantsHandler(service.NewParticipantsService(engine, media))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger())
	router.RegisterRoutes(e, handler.NewHealthHandler(checks))
	router.RegisterLobby(e, lh, ph, router.LobbyRoutes{
		JWTSecret: cfg.JWTSecret,
		Roles:     repository.NewRoomAccessRepo(db),
		Limiter:   middleware.NewTokenBucket(cfg.RateLimit, rdb, cfg.Lobby.CookieName),
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("notifications", cfg.NotificationTransport).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}

// setupLogger configures the global zerolog logger: human-readable output
// in dev, JSON everywhere else.
func setupLogger(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
