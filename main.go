// Command chatkeeper is the main entrypoint for the chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres, runs idempotent migrations, and loads the
//     command catalog.
//   - Connects to Twitch chat, routing every inbound line through the
//     moderation, pyramid, and command pipeline.
//   - Starts broadcast loops for repeating commands.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/chatkeeper/bot"
	"github.com/onnwee/chatkeeper/catalog"
	"github.com/onnwee/chatkeeper/chat"
	"github.com/onnwee/chatkeeper/config"
	"github.com/onnwee/chatkeeper/db"
	"github.com/onnwee/chatkeeper/server"
	"github.com/onnwee/chatkeeper/telemetry"
	"github.com/onnwee/chatkeeper/twitchapi"
	"github.com/onnwee/chatkeeper/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Error("chat credentials missing", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Optional tracing; requires OTEL_EXPORTER_OTLP_ENDPOINT.
	shutdown, err := telemetry.InitTracing("chatkeeper", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	database, err := db.Connect()
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	// Migrations: versioned first, embedded SQL as fallback for deployments
	// without a schema_migrations table.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations failed, falling back to embedded SQL",
			slog.Any("err", err), slog.String("component", "db_migrate"))
		if err := db.Migrate(context.Background(), database); err != nil {
			slog.Error("failed to migrate db", slog.Any("err", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(ctx, db.NewStore(database))
	if err != nil {
		slog.Error("failed to load catalog", slog.Any("err", err))
		os.Exit(1)
	}

	// Helix collaborator for !uptime and !followage; degrades to no-op
	// without app credentials.
	var streams bot.StreamInfo
	if cfg.TwitchClientID != "" && cfg.TwitchClientSecret != "" {
		streams = twitchapi.NewHelixClient(ctx, cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchChannel)
	} else {
		slog.Info("twitch api creds not set; uptime and followage disabled")
	}

	var titles bot.TitleLookup
	if cfg.YouTubeAPIKey != "" {
		titles = youtubeapi.New(cfg.YouTubeAPIKey)
	} else {
		slog.Info("youtube api key not set; link watcher disabled")
	}

	conn := chat.NewConnector(cfg.TwitchChannel, cfg.TwitchBotUsername, cfg.TwitchOAuthToken)
	sink := chat.NewSink(conn)

	sched := bot.NewScheduler(cat, sink)
	router := bot.NewRouter(cat, bot.RouterConfig{
		Channel:         cfg.TwitchChannel,
		CacheSize:       cfg.MessageCacheSize,
		PyramidResponse: cfg.PyramidResponse,
		Streams:         streams,
		Titles:          titles,
		Scheduler:       sched,
	})
	b := bot.New(cfg.TwitchChannel, router, sink)

	sched.Start(ctx)

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		if err := server.Start(ctx, database, cat, addr); err != nil {
			slog.Error("http server exited", slog.Any("err", err))
		}
	}()

	slog.Info("joining chat", slog.String("channel", cfg.TwitchChannel))
	if err := conn.Run(ctx, b.HandleLine); err != nil {
		slog.Error("chat connection error", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}
