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

// Package triage runs the pre-gate over a batch of messages — either
// Gmail JSON fixture files on disk or a live mailbox fetch — and records
// every evaluation in a JSONL audit run.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bcem/pregate/internal/audit"
	"github.com/bcem/pregate/internal/dedup"
	"github.com/bcem/pregate/internal/evidence"
	"github.com/bcem/pregate/internal/ingest"
	"github.com/bcem/pregate/internal/models"
)

// Runner evaluates messages through the pre-gate pipeline.
type Runner struct {
	assembler *evidence.Assembler
	log       *audit.Log
	fetcher   *ingest.Fetcher // nil unless live mode is configured
	filter    *dedup.Filter   // nil when Redis is unavailable
}

// RunnerConfig holds dependencies for the triage runner.
type RunnerConfig struct {
	Assembler *evidence.Assembler
	AuditLog  *audit.Log
	Fetcher   *ingest.Fetcher
	Dedup     *dedup.Filter
}

// NewRunner creates a triage runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		assembler: cfg.Assembler,
		log:       cfg.AuditLog,
		fetcher:   cfg.Fetcher,
		filter:    cfg.Dedup,
	}
}

// Outcome is the displayable result for one processed message.
type Outcome struct {
	Source string // fixture filename or message ID
	Bundle *evidence.Bundle
	Err    error
}

// Result summarises a completed triage run.
type Result struct {
	Outcomes   []Outcome
	Processed  int
	Pass       int
	Review     int
	Quarantine int
	Skipped    int
	Errors     int
	Elapsed    time.Duration
}

// RunFixtures evaluates every *.json file in dir as a Gmail API message,
// in filename order. Unparsable fixtures are recorded as errors and do
// not stop the run.
func (r *Runner) RunFixtures(ctx context.Context, dir string) (*Result, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob fixtures: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no JSON fixture files in %s", dir)
	}
	sort.Strings(matches)

	result := &Result{}
	start := time.Now()

	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			r.recordError(result, filepath.Base(path), "", err)
			continue
		}

		msg, err := ingest.ParseMessage(raw)
		if err != nil {
			r.recordError(result, filepath.Base(path), "", err)
			continue
		}

		r.process(result, filepath.Base(path), msg)
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// RunLive fetches up to max recent messages from the user's mailbox and
// evaluates each one. Messages already seen by the dedup filter are
// skipped.
func (r *Runner) RunLive(ctx context.Context, user string, max int) (*Result, error) {
	if r.fetcher == nil {
		return nil, fmt.Errorf("live triage requires gmail credentials")
	}

	ids, err := r.fetcher.ListRecent(ctx, user, max)
	if err != nil {
		return nil, fmt.Errorf("list recent messages: %w", err)
	}

	result := &Result{}
	start := time.Now()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if r.filter != nil {
			isNew, err := r.filter.IsNew(ctx, id)
			if err != nil {
				slog.Warn("dedup check failed", "message_id", id, "error", err)
			} else if !isNew {
				result.Skipped++
				continue
			}
		}

		msg, err := r.fetcher.FetchMessage(ctx, user, id)
		if err != nil {
			r.recordError(result, id, id, err)
			continue
		}
		if msg == nil {
			result.Skipped++
			continue
		}

		r.process(result, id, msg)
	}

	result.Elapsed = time.Since(start)
	return result, nil
}

// process evaluates one parsed message and logs the audit trail.
func (r *Runner) process(result *Result, source string, msg *models.Message) {
	if err := msg.Validate(); err != nil {
		r.recordError(result, source, msg.MessageID, err)
		return
	}

	r.appendAudit(audit.NewEvent(audit.StageIngested, msg.MessageID, msg.Channel))

	bundle := r.assembler.Assemble(msg)

	r.appendAudit(audit.PreGateEvent(msg.MessageID, msg.Channel,
		bundle.QuarantineTier, bundle.QuarantineReasons, bundle.LinkDomains))

	switch bundle.QuarantineTier {
	case "REVIEW":
		result.Review++
	case "QUARANTINE":
		result.Quarantine++
		r.appendAudit(audit.NewEvent(audit.StageQuarantined, msg.MessageID, msg.Channel))
	default:
		result.Pass++
	}

	result.Processed++
	result.Outcomes = append(result.Outcomes, Outcome{Source: source, Bundle: bundle})
}

func (r *Runner) recordError(result *Result, source, messageID string, err error) {
	slog.Error("triage failed for message", "source", source, "error", err)
	r.appendAudit(audit.ErrorEvent(messageID, "gmail", err))
	result.Errors++
	result.Outcomes = append(result.Outcomes, Outcome{Source: source, Err: err})
}

func (r *Runner) appendAudit(e audit.Event) {
	if r.log == nil {
		return
	}
	if err := r.log.Append(e); err != nil {
		slog.Warn("audit append failed", "stage", e.Stage, "error", err)
	}
}
