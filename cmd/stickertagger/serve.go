// ABOUTME: Wires config, store, worker pool, conversations, Telegram and HTTP together
// ABOUTME: Shutdown stops polling first, drains handlers, then the pool, then the store

package main

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/joey-c/stickertaggerbot/internal/bot"
	"github.com/joey-c/stickertaggerbot/internal/conversation"
	"github.com/joey-c/stickertaggerbot/internal/dedupe"
	"github.com/joey-c/stickertaggerbot/internal/metrics"
	"github.com/joey-c/stickertaggerbot/internal/server"
	"github.com/joey-c/stickertaggerbot/internal/store"
	"github.com/joey-c/stickertaggerbot/internal/task"
	"github.com/joey-c/stickertaggerbot/internal/telegram"
)

func runServe(ctx context.Context) error {
	cfg, source, err := loadConfig()
	if err != nil {
		return err
	}

	printBanner(cfg, source)
	logger := setupLogger(cfg.Logging)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("closing store", "error", err)
		}
	}()

	pool := task.NewPool(cfg.Workers.MaxWorkers, logger)
	defer pool.Close()

	recorder := metrics.NewRecorder()
	registry := conversation.NewRegistry(logger, recorder)
	recorder.TrackConversations(registry.Len)

	seen := dedupe.New[int64](cfg.Dedupe.TTL, cfg.Dedupe.MaxSize)
	defer seen.Close()

	tg, err := telegram.New(cfg.Telegram.Token, telegram.Options{}, logger)
	if err != nil {
		return err
	}
	username, err := tg.Username(ctx)
	if err != nil {
		return err
	}

	dispatcher := bot.NewDispatcher(bot.Deps{
		Registry:  registry,
		Pool:      pool,
		Store:     st,
		Responder: tg,
		Seen:      seen,
		Metrics:   recorder,
		Logger:    logger,
	}, bot.Options{
		TaskTimeout:       cfg.Conversation.TaskTimeout,
		TransitionTimeout: cfg.Conversation.TransitionTimeout,
		InlineResultLimit: cfg.Telegram.InlineResultLimit,
	})
	// Runs before pool.Close and st.Close.
	defer dispatcher.Wait()

	srvOpts := server.Options{
		Addr:          cfg.Server.HTTPAddr,
		Conversations: registry.Len,
	}
	if cfg.Metrics.Enabled {
		srvOpts.MetricsPath = cfg.Metrics.Path
		srvOpts.MetricsHandler = recorder.Handler()
	}
	srv := server.New(srvOpts, st, logger)

	logger.Info("starting stickertagger",
		"bot", "@"+username,
		"http_addr", cfg.Server.HTTPAddr,
		"workers", cfg.Workers.MaxWorkers,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tg.Poll(gctx, dispatcher, cfg.Telegram.PollTimeout)
	})
	g.Go(func() error {
		return srv.Run(gctx)
	})

	err = g.Wait()
	logger.Info("waiting for in-flight updates")
	return err
}
