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

// Package queue moves messages between the ingestion service and the
// pre-gate over Redis lists: inbound email records are consumed from the
// emails queue, evidence bundles are published to the verdicts queue for
// the downstream reader/critic stages.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/bcem/pregate/internal/evidence"
)

// Publisher sends evidence bundles to the verdicts queue.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// envelope wraps a bundle for transport with a delivery identity.
type envelope struct {
	ID          string           `json:"id"`
	PublishedAt string           `json:"published_at"`
	Bundle      *evidence.Bundle `json:"bundle"`
}

// PublishBundle serialises an evidence bundle and pushes it to the
// verdicts queue.
func (p *Publisher) PublishBundle(ctx context.Context, bundle *evidence.Bundle) error {
	env := envelope{
		ID:          uuid.New().String(),
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
		Bundle:      bundle,
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal bundle envelope: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, payload).Err(); err != nil {
		return fmt.Errorf("redis LPUSH: %w", err)
	}

	slog.Info("published evidence bundle",
		"envelope_id", env.ID,
		"message_id", bundle.MessageID,
		"tier", bundle.QuarantineTier,
		"queue", p.queueName,
	)

	return nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
