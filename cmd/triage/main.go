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

// Pre-Gate Triage Command
//
// Standalone CLI tool that runs the pre-gate over a batch of messages and
// prints each verdict. Two modes:
//
//	go run ./cmd/triage/ --fixtures-dir testdata/linkedin_spoof/
//	go run ./cmd/triage/ --user me@example.com --max 25
//
// Fixture files are Gmail API message JSON (format=full). Live mode needs
// gmail credentials in the config.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/bcem/pregate/internal/audit"
	"github.com/bcem/pregate/internal/config"
	"github.com/bcem/pregate/internal/dedup"
	"github.com/bcem/pregate/internal/evidence"
	"github.com/bcem/pregate/internal/ingest"
	"github.com/bcem/pregate/internal/triage"
)

func main() {
	// Structured JSON logging on stderr; stdout carries the verdict report.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	fixturesFlag := flag.String("fixtures-dir", "", "Directory of Gmail JSON fixture files")
	userFlag := flag.String("user", "", "Gmail user to fetch live messages for")
	maxFlag := flag.Int("max", 25, "Maximum messages to fetch in live mode")
	flag.Parse()

	if (*fixturesFlag == "") == (*userFlag == "") {
		fmt.Fprintf(os.Stderr, "Error: exactly one of --fixtures-dir or --user is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Audit Run (JSONL) ---
	auditLog, err := audit.NewRun(cfg.AuditDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: create audit run: %v\n", err)
		os.Exit(1)
	}

	runnerCfg := triage.RunnerConfig{
		Assembler: evidence.NewAssembler(cfg.Policy),
		AuditLog:  auditLog,
	}

	// --- Live-mode dependencies ---
	if *userFlag != "" {
		if !cfg.Gmail.Configured() {
			fmt.Fprintf(os.Stderr, "Error: live mode requires gmail client_id/client_secret/refresh_token in config\n")
			os.Exit(1)
		}

		oauthCfg := &oauth2.Config{
			ClientID:     cfg.Gmail.ClientID,
			ClientSecret: cfg.Gmail.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://accounts.google.com/o/oauth2/auth",
				TokenURL: "https://oauth2.googleapis.com/token",
			},
			Scopes: []string{"https://www.googleapis.com/auth/gmail.readonly"},
		}
		httpClient := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.Gmail.RefreshToken})
		runnerCfg.Fetcher = ingest.NewFetcher(httpClient, ingest.DefaultGmailBaseURL)

		// Dedup is best-effort for the CLI; a missing Redis just means
		// reprocessing on the next run.
		if opt, err := redis.ParseURL(cfg.RedisURL); err == nil {
			rdb := redis.NewClient(opt)
			defer rdb.Close()
			if rdb.Ping(ctx).Err() == nil {
				runnerCfg.Dedup = dedup.NewFilter(rdb)
			}
		}
	}

	runner := triage.NewRunner(runnerCfg)

	// --- Run ---
	var result *triage.Result
	if *fixturesFlag != "" {
		result, err = runner.RunFixtures(ctx, *fixturesFlag)
	} else {
		result, err = runner.RunLive(ctx, *userFlag, *maxFlag)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: triage run: %v\n", err)
		os.Exit(1)
	}

	// --- Report ---
	for _, o := range result.Outcomes {
		printOutcome(o)
	}

	fmt.Printf("processed %d messages in %s: PASS %d, REVIEW %d, QUARANTINE %d",
		result.Processed, result.Elapsed.Round(time.Millisecond), result.Pass, result.Review, result.Quarantine)
	if result.Skipped > 0 {
		fmt.Printf(", skipped %d", result.Skipped)
	}
	if result.Errors > 0 {
		fmt.Printf(", errors %d", result.Errors)
	}
	fmt.Printf("\naudit log: %s\n", auditLog.RunDir())

	if result.Errors > 0 {
		os.Exit(1)
	}
}

// printOutcome writes one message's verdict block to stdout.
func printOutcome(o triage.Outcome) {
	if o.Err != nil {
		fmt.Printf("=== %s\n    ERROR: %v\n\n", o.Source, o.Err)
		return
	}

	b := o.Bundle
	subject := b.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	fmt.Printf("=== %s\n", o.Source)
	fmt.Printf("    From:    %s\n", b.Sender)
	fmt.Printf("    Subject: %s\n", subject)
	fmt.Printf("    Tier:    %s\n", b.QuarantineTier)
	if len(b.QuarantineReasons) > 0 {
		fmt.Printf("    Reasons: %s\n", strings.Join(b.QuarantineReasons, ", "))
	}
	if len(b.LinkDomains) > 0 {
		fmt.Printf("    Domains: %s\n", strings.Join(b.LinkDomains, ", "))
	}
	for _, m := range b.MismatchFlags {
		fmt.Printf("    MISMATCH: %s\n", m)
	}
	if len(b.ShortenerFlags) > 0 {
		fmt.Printf("    Shorteners: %s\n", strings.Join(b.ShortenerFlags, ", "))
	}
	if b.FirstNormalized != "" {
		fmt.Printf("    First: %q\n", b.FirstNormalized)
	}
	if b.LastNormalized != "" && b.LastNormalized != b.FirstNormalized {
		fmt.Printf("    Last:  %q\n", b.LastNormalized)
	}
	fmt.Println()
}
