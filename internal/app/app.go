package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/syncbeats/server/internal/controller"
	"github.com/syncbeats/server/internal/domain"
	conninmemory "github.com/syncbeats/server/internal/repository/connection/inmemory"
	roomrepo "github.com/syncbeats/server/internal/repository/room"
	roominmemory "github.com/syncbeats/server/internal/repository/room/inmemory"
	snapshotredis "github.com/syncbeats/server/internal/repository/snapshot/redis"
	"github.com/syncbeats/server/internal/service/room"
	"github.com/syncbeats/server/pkg/ctxlogger"
	"github.com/syncbeats/server/pkg/randstr"
	"github.com/syncbeats/server/pkg/redisclient"
	"github.com/syncbeats/server/pkg/ytmedia"
)

type AppConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	LogLevel      string        `json:"log_level"`
	MembersLimit  int           `json:"members_limit"`
	QueueLimit    int           `json:"queue_limit"`
	MediaLookup   bool          `json:"media_lookup"`
	RedisHost     string        `json:"redis_host"`
	RedisPort     int           `json:"redis_port"`
	RedisPassword string        `json:"-"`
	SnapshotTTL   time.Duration `json:"snapshot_ttl"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}
	if cfg.MembersLimit < 0 {
		return fmt.Errorf("members limit must not be negative")
	}
	if cfg.QueueLimit < 0 {
		return fmt.Errorf("queue limit must not be negative")
	}
	if cfg.SnapshotTTL <= 0 {
		return fmt.Errorf("snapshot ttl must be greater than 0")
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}

	return level, nil
}

func newLogger(cfg *AppConfig) (*slog.Logger, error) {
	logLevel, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

type snapshotRepo interface {
	Save(context.Context, domain.Snapshot) error
	Get(context.Context, string) (domain.Snapshot, error)
	Delete(context.Context, string) error
	Codes(context.Context) ([]string, error)
}

type mediaInfo interface {
	Get(context.Context, string) (*ytmedia.VideoData, error)
}

// NewHandler wires repositories, the room service and the controller. The
// returned cleanup releases the Redis connection when one was opened.
func NewHandler(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (http.Handler, func(), error) {
	cleanup := func() {}

	var snapshots snapshotRepo
	if cfg.RedisHost != "" {
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		cleanup = closeRedis(logger, rc)
		snapshots = snapshotredis.NewRepo(rc, cfg.SnapshotTTL)
	} else {
		logger.InfoContext(ctx, "redis host not set, room snapshots are not mirrored")
	}

	var media mediaInfo
	if cfg.MediaLookup {
		media = ytmedia.NewClient(&ytmedia.Config{})
	}

	roomRepo := roominmemory.NewRepo(randstr.New([]byte(roomrepo.CodeAlphabet)))
	connectionRepo := conninmemory.NewRepo()
	publisher := controller.NewPublisher(logger)
	roomService := room.NewService(roomRepo, connectionRepo, snapshots, publisher, &room.Config{
		MembersLimit: cfg.MembersLimit,
		QueueLimit:   cfg.QueueLimit,
	})
	controller := controller.NewController(roomService, media, logger)

	return controller.GetMux(), cleanup, nil
}

func closeRedis(logger *slog.Logger, rc *redis.Client) func() {
	return func() {
		if err := rc.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}
}

func Run(ctx context.Context, cfg *AppConfig) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	handler, cleanup, err := NewHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: handler}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		// Hijacked websocket connections are not tracked by Shutdown.
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-serverCtx.Done()

	return nil
}
