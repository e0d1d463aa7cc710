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

package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists audit events to Postgres for the long-running service.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates an audit store backed by the given Postgres pool. It
// ensures the events table exists on creation.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	slog.Info("audit store initialised")
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id                 BIGSERIAL PRIMARY KEY,
			event_id           TEXT NOT NULL UNIQUE,
			occurred_at        TIMESTAMPTZ NOT NULL,
			stage              TEXT NOT NULL,
			message_id         TEXT NOT NULL,
			channel            TEXT NOT NULL,
			quarantine_tier    TEXT DEFAULT '',
			quarantine_reasons TEXT[] DEFAULT '{}',
			link_domains       TEXT[] DEFAULT '{}',
			action             TEXT DEFAULT '',
			error              TEXT DEFAULT '',
			created_at         TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_audit_message ON audit_events(message_id);
		CREATE INDEX IF NOT EXISTS idx_audit_stage ON audit_events(stage);
		CREATE INDEX IF NOT EXISTS idx_audit_tier ON audit_events(quarantine_tier);
	`)
	return err
}

// Insert appends one event. Events are write-once; conflicts on event_id
// are ignored so redelivered messages do not duplicate rows.
func (s *Store) Insert(ctx context.Context, e Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events
			(event_id, occurred_at, stage, message_id, channel,
			 quarantine_tier, quarantine_reasons, link_domains, action, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING
	`, e.EventID, e.Timestamp, e.Stage, e.MessageID, e.Channel,
		e.QuarantineTier, e.QuarantineReasons, e.LinkDomains, e.Action, e.Error)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// TierCounts returns how many pre-gate events landed in each tier.
func (s *Store) TierCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT quarantine_tier, COUNT(*)
		FROM audit_events
		WHERE stage = $1 AND quarantine_tier <> ''
		GROUP BY quarantine_tier
	`, StagePreGate)
	if err != nil {
		return nil, fmt.Errorf("query tier counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		counts[tier] = n
	}
	return counts, rows.Err()
}
