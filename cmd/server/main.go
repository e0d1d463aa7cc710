// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Pre-Gate service. Consumes parsed email records from the ingestion
// queue, computes the deterministic evidence bundle and hard quarantine
// verdict for each, persists the audit trail to Postgres, and publishes
// the bundles for the downstream reader/critic stages.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/pregate/internal/audit"
	"github.com/bcem/pregate/internal/config"
	"github.com/bcem/pregate/internal/dedup"
	"github.com/bcem/pregate/internal/evidence"
	"github.com/bcem/pregate/internal/models"
	"github.com/bcem/pregate/internal/queue"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting pre-gate service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"emails_queue", cfg.EmailsQueue,
		"verdicts_queue", cfg.VerdictsQueue,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Connect to PostgreSQL ---
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required — the service persists its audit trail to Postgres")
		os.Exit(1)
	}
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// --- Audit Store (Postgres) ---
	store, err := audit.NewStore(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise audit store", "error", err)
		os.Exit(1)
	}

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	publisher := queue.NewPublisher(rdb, cfg.VerdictsQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	consumer := queue.NewConsumer(rdb, cfg.EmailsQueue)
	filter := dedup.NewFilter(rdb)
	assembler := evidence.NewAssembler(cfg.Policy)

	// --- Health endpoint ---
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		slog.Info("health endpoint listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("health server failed", "error", err)
		}
	}()

	slog.Info("consuming email queue", "queue", cfg.EmailsQueue)

	// --- Main Loop ---
	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
			return
		default:
		}

		msg, err := consumer.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("shutting down")
				return
			}
			slog.Error("queue consume failed", "error", err)
			continue
		}
		if msg == nil {
			continue
		}

		processMessage(ctx, msg, filter, assembler, store, publisher)
	}
}

// processMessage runs one email record through the pre-gate: dedup,
// evidence assembly, audit persistence, verdict publication. Failures are
// logged and audited; the loop never stops for a single bad message.
func processMessage(
	ctx context.Context,
	msg *models.Message,
	filter *dedup.Filter,
	assembler *evidence.Assembler,
	store *audit.Store,
	publisher *queue.Publisher,
) {
	if err := msg.Validate(); err != nil {
		// The ingestion service guarantees identity fields; a violation
		// here is a contract break worth surfacing, not quietly dropping.
		slog.Error("rejecting unidentified message", "error", err)
		if err := store.Insert(ctx, audit.ErrorEvent(msg.MessageID, msg.Channel, err)); err != nil {
			slog.Warn("audit insert failed", "error", err)
		}
		return
	}

	isNew, err := filter.IsNew(ctx, msg.MessageID)
	if err != nil {
		slog.Warn("dedup check failed, processing anyway", "message_id", msg.MessageID, "error", err)
	} else if !isNew {
		slog.Info("skipping already-seen message", "message_id", msg.MessageID)
		return
	}

	bundle := assembler.Assemble(msg)

	if err := store.Insert(ctx, audit.PreGateEvent(msg.MessageID, msg.Channel,
		bundle.QuarantineTier, bundle.QuarantineReasons, bundle.LinkDomains)); err != nil {
		slog.Warn("audit insert failed", "message_id", msg.MessageID, "error", err)
	}

	if bundle.QuarantineTier == "QUARANTINE" {
		slog.Warn("message quarantined",
			"message_id", msg.MessageID,
			"sender", bundle.Sender,
			"reasons", bundle.QuarantineReasons,
		)
		if err := store.Insert(ctx, audit.NewEvent(audit.StageQuarantined, msg.MessageID, msg.Channel)); err != nil {
			slog.Warn("audit insert failed", "message_id", msg.MessageID, "error", err)
		}
	}

	if err := publisher.PublishBundle(ctx, bundle); err != nil {
		slog.Error("publish failed", "message_id", msg.MessageID, "error", err)
	}
}
