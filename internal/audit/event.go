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

// Package audit records an append-only trail of pipeline events. Each
// pipeline stage appends one event; events are never updated or deleted.
// Two backends exist: a per-run JSONL file for CLI runs, and a Postgres
// table for the long-running service.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline stages an event can record.
const (
	StageIngested       = "ingested"
	StagePreGate        = "pre_gate"
	StageQuarantined    = "quarantined"
	StageActionExecuted = "action_executed"
	StageSkipped        = "skipped"
	StageError          = "error"
)

// Event is one immutable audit record.
type Event struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Stage     string    `json:"stage"`
	MessageID string    `json:"message_id"`
	Channel   string    `json:"channel"`

	QuarantineTier    string   `json:"quarantine_tier,omitempty"`
	QuarantineReasons []string `json:"quarantine_reasons,omitempty"`
	LinkDomains       []string `json:"link_domains,omitempty"`
	Action            string   `json:"action,omitempty"`
	Error             string   `json:"error,omitempty"`
}

// NewEvent creates an event with a generated ID and the current UTC time.
func NewEvent(stage, messageID, channel string) Event {
	return Event{
		EventID:   uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		MessageID: messageID,
		Channel:   channel,
	}
}

// PreGateEvent records a completed pre-gate evaluation.
func PreGateEvent(messageID, channel, tier string, reasons, linkDomains []string) Event {
	e := NewEvent(StagePreGate, messageID, channel)
	e.QuarantineTier = tier
	e.QuarantineReasons = reasons
	e.LinkDomains = linkDomains
	return e
}

// ErrorEvent records a failure at any stage.
func ErrorEvent(messageID, channel string, err error) Event {
	e := NewEvent(StageError, messageID, channel)
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
