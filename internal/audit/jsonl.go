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
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Log is an append-only JSONL audit log for a single pipeline run.
type Log struct {
	runDir     string
	eventsFile string
}

// NewRun creates a fresh run directory under baseDir and returns its log.
func NewRun(baseDir string) (*Log, error) {
	runDir := filepath.Join(baseDir, "pregate-"+time.Now().UTC().Format("2006-01-02-150405"))
	return OpenRun(runDir)
}

// OpenRun opens (creating if needed) the log for a specific run directory.
func OpenRun(runDir string) (*Log, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir %s: %w", runDir, err)
	}
	return &Log{
		runDir:     runDir,
		eventsFile: filepath.Join(runDir, "events.jsonl"),
	}, nil
}

// RunDir returns the directory this run logs into.
func (l *Log) RunDir() string {
	return l.runDir
}

// Append writes one event as a JSON line.
func (l *Log) Append(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	f, err := os.OpenFile(l.eventsFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ReadAll returns every event logged so far, oldest first. A run with no
// events yet yields an empty slice.
func (l *Log) ReadAll() ([]Event, error) {
	f, err := os.Open(l.eventsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	return events, nil
}

// Summary aggregates this run's events.
type Summary struct {
	RunDir      string
	TotalEvents int
	ByStage     map[string]int
	ByTier      map[string]int
	Errors      int
}

// Summarize computes counts by stage and quarantine tier for the run.
func (l *Log) Summarize() (*Summary, error) {
	events, err := l.ReadAll()
	if err != nil {
		return nil, err
	}

	s := &Summary{
		RunDir:  l.runDir,
		ByStage: make(map[string]int),
		ByTier:  map[string]int{"PASS": 0, "REVIEW": 0, "QUARANTINE": 0},
	}
	for _, e := range events {
		s.TotalEvents++
		s.ByStage[e.Stage]++
		if e.QuarantineTier != "" {
			if _, ok := s.ByTier[e.QuarantineTier]; ok {
				s.ByTier[e.QuarantineTier]++
			}
		}
		if e.Error != "" {
			s.Errors++
		}
	}
	return s, nil
}
