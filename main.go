package main

import (
	"OrderFlow/bot"
	"OrderFlow/bot/flow"
	"OrderFlow/bot/order"
	"OrderFlow/impl/core"
	"OrderFlow/internal/config"
	"OrderFlow/internal/database"
	"OrderFlow/internal/http-server/api"
	"OrderFlow/internal/lib/logger"
	"OrderFlow/internal/lib/sl"
	"OrderFlow/internal/metrics"
	"OrderFlow/internal/redisstore"
	"OrderFlow/internal/service/address"
	"OrderFlow/internal/service/backend"
	"OrderFlow/internal/service/session"
	"OrderFlow/internal/ws"
	"context"
	"flag"
	"log/slog"
	"os"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "", "path to log file directory, overrides log_path")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, conf.LogDir(*logPath))

	lg.Info("starting orderflow", slog.String("config", *configPath), slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := core.New(lg)

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.With(
			sl.Err(err),
		).Error("mongo client")
	}
	if db != nil {
		handler.SetRepository(db)
		lg.With(
			slog.String("host", conf.Mongo.Host),
			slog.String("port", conf.Mongo.Port),
			slog.String("user", conf.Mongo.User),
			slog.String("database", conf.Mongo.Database),
		).Info("mongo client initialized")
	}

	sessions, err := session.NewSessionService(conf)
	if err != nil {
		lg.Error("session service", sl.Err(err))
		os.Exit(1)
	}
	handler.SetSessionService(sessions)

	backendService := backend.NewBackendService(conf, lg)
	handler.SetBackend(backendService)
	lg.With(
		slog.String("url", conf.Backend.BaseURL),
	).Info("backend service initialized")

	if conf.AMap.Key != "" {
		handler.SetAddressService(address.NewAddressService(conf, lg))
		lg.With(
			sl.Secret("amap_key", conf.AMap.Key),
		).Info("address service initialized")
	}

	var storage flow.SnapshotStorage
	switch conf.Storage.Driver {
	case "mongo":
		if db == nil {
			lg.Error("mongo storage requested but mongo is disabled")
			os.Exit(1)
		}
		storage = flow.NewMongoSnapshotStorage(db, conf.Session.SnapshotTTL)
	case "redis":
		store, err := redisstore.New(ctx, conf, lg)
		if err != nil {
			lg.Error("redis snapshot store", sl.Err(err))
			os.Exit(1)
		}
		defer store.Close()
		storage = store
	default:
		storage = flow.NewMemoryStorage(conf.Session.SnapshotTTL)
	}
	lg.Info("snapshot storage initialized", slog.String("driver", conf.Storage.Driver))

	var collector *metrics.Collector
	opts := flow.Options{FreeOrderDelay: conf.Flow.FreeOrderDelay}
	if conf.Metrics.Enabled {
		collector = metrics.NewCollector()
		opts.Recorder = collector
	}

	orchestrator := order.NewOrchestrator(backendService, conf.Flow.SearchDelay, lg)
	manager := flow.NewManager(storage, orchestrator, opts, lg)
	defer manager.Close()
	handler.SetFlowManager(manager)

	hub := ws.NewHub(lg)
	hub.SetHandler(handler)
	go hub.Run(ctx)

	listeners := flow.Listeners{hub}

	if conf.Telegram.Enabled {
		userBot, err := bot.NewUserBot(conf.Telegram.BotName, conf.Telegram.ApiKey, lg)
		if err != nil {
			lg.Error("failed to initialize telegram bot", sl.Err(err))
		} else {
			userBot.SetCore(handler)
			listeners = append(listeners, userBot.Renderer())
			if conf.Telegram.AdminId != 0 {
				listeners = append(listeners, bot.NewAdminNotifier(userBot.API(), conf.Telegram.AdminId, lg))
			}
			lg.With(
				slog.String("bot_name", conf.Telegram.BotName),
			).Info("telegram bot initialized")

			go func() {
				if err := userBot.Start(ctx); err != nil {
					lg.Error("telegram bot error", sl.Err(err))
				}
			}()
		}
	}
	manager.SetListener(listeners)

	// *** blocking start with http server ***
	err = api.New(conf, lg, handler, hub, collector)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}
