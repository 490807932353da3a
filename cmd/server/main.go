// TaskFlow Realtime - Notification & Support Chat Messaging Server
// Copyright 2026 GraduationThesisproject
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/GraduationThesisproject/taskflow-realtime

// Command server runs the realtime notification and support-chat server.
//
// Startup order: configuration, logging, persistence, namespace hubs, event
// bus, HTTP surface, then the supervision tree. SIGINT/SIGTERM cancel the
// root context and everything winds down through suture.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/GraduationThesisproject/taskflow-realtime/internal/api"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/auth"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/config"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/eventbus"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/logging"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/realtime"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/store"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/supervisor"
	"github.com/GraduationThesisproject/taskflow-realtime/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("starting taskflow-realtime")

	// Persistence.
	st, err := store.Open(&cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Warn().Err(err).Msg("store close failed")
		}
	}()

	notifStore := store.NewNotificationStore(st, &cfg.Store)
	chatStore := store.NewChatStore(st)

	// Auth.
	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return err
	}

	// Namespace hubs and their coordinators.
	notifHub := realtime.NewHub(realtime.NamespaceNotifications, &cfg.Realtime)
	chatHub := realtime.NewHub(realtime.NamespaceChat, &cfg.Realtime)
	notifications := realtime.NewNotificationService(notifHub, notifStore, &cfg.Notifications)
	chat := realtime.NewChatService(chatHub, chatStore)

	// Event bus.
	var bus *eventbus.Bus
	var embedded *eventbus.EmbeddedServer
	if cfg.NATS.Enabled {
		url := cfg.NATS.URL
		if cfg.NATS.EmbeddedServer {
			embedded, err = eventbus.NewEmbeddedServer(&cfg.NATS)
			if err != nil {
				return err
			}
			url = embedded.ClientURL()
		}
		bus, err = eventbus.Connect(url, &cfg.NATS)
		if err != nil {
			return err
		}
		defer bus.Close()
	}

	// HTTP surface.
	handler := api.NewHandler(cfg, jwtManager, notifications, chat, notifStore, chatStore, bus)
	router := api.NewRouter(
		handler,
		auth.NewMiddleware(jwtManager),
		api.NewChiMiddleware(&cfg.Server),
		realtime.NewGateway(notifHub, jwtManager, &cfg.Security, cfg.Server.CORSOrigins),
		realtime.NewGateway(chatHub, jwtManager, &cfg.Security, cfg.Server.CORSOrigins),
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Supervision tree.
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(logging.NewSlogLogger(), treeCfg)

	tree.AddMessagingService(services.NewHubService(notifHub))
	tree.AddMessagingService(services.NewHubService(chatHub))
	if bus != nil {
		tree.AddMessagingService(realtime.NewNATSBridge(bus, notifications))
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", httpServer.Addr).Msg("listening")
	err = tree.Serve(ctx)

	if embedded != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		if serr := embedded.Shutdown(shutdownCtx); serr != nil {
			logging.Warn().Err(serr).Msg("embedded NATS shutdown failed")
		}
		cancel()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("shutdown complete")
	return nil
}
