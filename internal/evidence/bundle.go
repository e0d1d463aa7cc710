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

// Package evidence assembles the deterministic evidence bundle handed to
// downstream reasoning stages. Every field except the two proposed_*
// fields is computed here, before any content-influenced stage can run,
// from fixed rules the sender cannot negotiate with.
package evidence

import (
	"time"
)

// Bundle is the immutable pre-gate snapshot for one message.
//
// This struct's JSON serialisation is the published integration contract
// consumed by the audit logger, the display layer, and the downstream
// reader/critic stages. Adding or removing a field requires updating all
// of them.
type Bundle struct {
	Channel   string    `json:"channel"`
	MessageID string    `json:"message_id"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Subject   string    `json:"subject,omitempty"`

	// Deterministic excerpts over the normalized body; their length is
	// independent of message length.
	FirstNormalized string `json:"first_200_normalized"`
	LastNormalized  string `json:"last_200_normalized"`

	// Link analysis.
	LinkDomains    []string `json:"link_domains,omitempty"`
	MismatchFlags  []string `json:"link_mismatch_flags,omitempty"`
	ShortenerFlags []string `json:"link_shortener_flags,omitempty"`

	HasAttachments  bool     `json:"has_attachments"`
	AttachmentTypes []string `json:"attachment_types,omitempty"`

	QuarantineTier    string   `json:"quarantine_tier"`
	QuarantineReasons []string `json:"quarantine_reasons,omitempty"`

	// Reserved for the downstream reader stage. The assembler always
	// leaves them empty; they are the only fields any later stage may
	// populate.
	ProposedAction     string `json:"proposed_action,omitempty"`
	ProposedReplyDraft string `json:"proposed_reply_draft,omitempty"`
}
