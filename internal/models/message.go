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

// Package models defines the data structures shared across the pre-gate
// pipeline.
package models

import (
	"errors"
	"time"
)

// ErrUnidentifiedMessage is the single fatal precondition of the pipeline:
// a message without an ID or a From header cannot be triaged and must be
// rejected by ingestion before it reaches the assembler.
var ErrUnidentifiedMessage = errors.New("message missing required identity fields")

// Message represents a fully parsed inbound email ready for pre-gate
// analysis.
//
// This struct's JSON serialisation MUST match the queue contract with the
// ingestion service. The From header is always present and non-empty; every
// other content field is optional and degrades to its zero value.
type Message struct {
	MessageID  string `json:"message_id"`
	ThreadID   string `json:"thread_id,omitempty"`
	FromHeader string `json:"from"`

	To      []string  `json:"to,omitempty"`
	Subject string    `json:"subject,omitempty"`
	Date    time.Time `json:"date"`
	ReplyTo string    `json:"reply_to,omitempty"`

	// Snippet is the provider's short preview (~100 chars), used as a body
	// of last resort when neither HTML nor plain text is available.
	Snippet  string `json:"snippet,omitempty"`
	HTMLBody string `json:"html_body,omitempty"`
	TextBody string `json:"text_body,omitempty"`

	HasAttachments  bool     `json:"has_attachments"`
	AttachmentTypes []string `json:"attachment_types,omitempty"`

	Labels  []string `json:"labels,omitempty"`
	Channel string   `json:"channel"`

	// RawHeaders keeps every header as received, for fixtures and debugging.
	RawHeaders map[string]string `json:"raw_headers,omitempty"`
}

// BodyForParsing returns the best available body content: HTML first, then
// plain text, then the provider snippet.
func (m *Message) BodyForParsing() string {
	if m.HTMLBody != "" {
		return m.HTMLBody
	}
	if m.TextBody != "" {
		return m.TextBody
	}
	return m.Snippet
}

// Validate checks the identity invariant. Everything else is optional.
func (m *Message) Validate() error {
	if m.MessageID == "" || m.FromHeader == "" {
		return ErrUnidentifiedMessage
	}
	return nil
}
