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

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bcem/pregate/internal/models"
)

// Consumer pops email records from the ingestion service's emails queue.
type Consumer struct {
	rdb       *redis.Client
	queueName string
	popWait   time.Duration
}

// NewConsumer creates a consumer for the given queue.
func NewConsumer(rdb *redis.Client, queueName string) *Consumer {
	return &Consumer{
		rdb:       rdb,
		queueName: queueName,
		popWait:   5 * time.Second,
	}
}

// Next blocks until a message is available or the context is done.
// Returns nil, nil when the wait timed out with an empty queue so callers
// can re-check the context and loop.
func (c *Consumer) Next(ctx context.Context) (*models.Message, error) {
	res, err := c.rdb.BRPop(ctx, c.popWait, c.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis BRPOP: %w", err)
	}

	// BRPOP returns [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of %d elements", len(res))
	}

	var msg models.Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		// A payload that is not our contract is dropped, not retried; it
		// would fail identically forever.
		slog.Warn("discarding undecodable queue payload",
			"queue", c.queueName,
			"error", err,
		)
		return nil, nil
	}

	return &msg, nil
}
