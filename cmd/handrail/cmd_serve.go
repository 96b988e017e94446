// Copyright 2026 Handrail Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/handrail-labs/handrail/internal/log"
	"github.com/handrail-labs/handrail/internal/version"
	"github.com/handrail-labs/handrail/pkg/chat"
	"github.com/handrail-labs/handrail/pkg/engine"
	"github.com/handrail-labs/handrail/pkg/llm/factory"
	"github.com/handrail-labs/handrail/pkg/router"
	"github.com/handrail-labs/handrail/pkg/server"
	"github.com/handrail-labs/handrail/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Handrail HTTP server",
	Long:  `Starts the troubleshooting engine: storage, LLM provider, cold-start router, and the HTTP/JSON API.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	if err := log.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	logger := log.Logger()
	defer func() { _ = log.Sync() }()

	logger.Info("starting handrail",
		zap.String("version", version.Get()),
		zap.String("data_dir", cfg.DataDir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, err := storage.New(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer backend.Close()

	if err := backend.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	provider, err := factory.New(factory.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		Endpoint:  cfg.LLM.Endpoint,
		Timeout:   time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	logger.Info("LLM provider ready",
		zap.String("provider", provider.Name()),
		zap.String("model", provider.Model()))

	executor := engine.NewExecutor(provider, engine.WithExecutorLogger(logger))
	narrator := engine.NewNarrator(provider, logger)
	eng := engine.New(backend.Workflows(), executor, narrator, logger)

	r, err := buildRouter(cfg, backend, logger)
	if err != nil {
		return err
	}

	svc := chat.NewService(backend.Sessions(), backend.Workflows(), r, eng, logger)

	janitor := chat.NewJanitor(backend.Sessions(), logger,
		chat.WithSessionTTL(cfg.Session.TTL()),
		chat.WithSchedule(cfg.Session.JanitorSchedule))
	if err := janitor.Start(); err != nil {
		return fmt.Errorf("failed to start session janitor: %w", err)
	}
	defer janitor.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(svc, addr, logger, server.CORSConfig{
		Enabled:          cfg.Server.CORS.Enabled,
		AllowedOrigins:   cfg.Server.CORS.AllowedOrigins,
		AllowedMethods:   cfg.Server.CORS.AllowedMethods,
		AllowedHeaders:   cfg.Server.CORS.AllowedHeaders,
		AllowCredentials: cfg.Server.CORS.AllowCredentials,
		MaxAge:           cfg.Server.CORS.MaxAge,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

func buildRouter(cfg *Config, backend storage.Backend, logger *zap.Logger) (router.Router, error) {
	switch cfg.Router.Kind {
	case "fuzzy", "":
		return router.NewFuzzy(backend.Workflows(),
			router.WithMinConfidence(cfg.Router.MinConfidence),
			router.WithFuzzyLogger(logger)), nil
	case "static":
		if cfg.Router.StaticWorkflow == "" {
			return nil, fmt.Errorf("static router requires router.static_workflow")
		}
		return router.NewStatic(cfg.Router.StaticWorkflow), nil
	default:
		return nil, fmt.Errorf("unknown router kind: %q (want fuzzy or static)", cfg.Router.Kind)
	}
}
