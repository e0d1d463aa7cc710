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

package evidence

import (
	"fmt"

	"github.com/bcem/pregate/internal/links"
	"github.com/bcem/pregate/internal/models"
	"github.com/bcem/pregate/internal/normalize"
	"github.com/bcem/pregate/internal/quarantine"
)

const (
	// excerptLen is the fixed excerpt length in runes.
	excerptLen = 200

	// mismatchTextLen caps the visible-text fragment quoted in a mismatch
	// warning string.
	mismatchTextLen = 30
)

// Assembler is the sole constructor of evidence bundles. It orchestrates
// normalization, link extraction, and hard quarantine evaluation over a
// message record. Assemblers are stateless apart from the immutable
// policy, so one instance may serve any number of goroutines.
type Assembler struct {
	evaluator *quarantine.Evaluator
}

// NewAssembler creates an assembler evaluating under the given policy.
func NewAssembler(policy *quarantine.Policy) *Assembler {
	return &Assembler{evaluator: quarantine.NewEvaluator(policy)}
}

// Assemble computes the full evidence bundle for one message. It performs
// no I/O and cannot fail for a message that passed models.Validate;
// missing optional content degrades to empty fields.
func (a *Assembler) Assemble(msg *models.Message) *Bundle {
	normalized := normalize.Text(msg.BodyForParsing())

	var extracted []links.Link
	if msg.HTMLBody != "" {
		extracted = links.Extract(msg.HTMLBody)
	}

	var domains, mismatches, shorteners []string
	seen := make(map[string]bool, len(extracted))
	for _, l := range extracted {
		if l.HrefDomain != "" && !seen[l.HrefDomain] {
			seen[l.HrefDomain] = true
			domains = append(domains, l.HrefDomain)
		}
		if l.Mismatch {
			mismatches = append(mismatches, fmt.Sprintf("'%s' links to %s (text mentions %s)",
				normalize.FirstN(l.VisibleText, mismatchTextLen), l.HrefDomain, l.TextDomain))
		}
		if l.Shortener {
			shorteners = append(shorteners, l.HrefDomain)
		}
	}

	verdict := a.evaluator.Evaluate(msg.FromHeader, msg.ReplyTo, msg.HTMLBody)

	return &Bundle{
		Channel:           msg.Channel,
		MessageID:         msg.MessageID,
		Sender:            msg.FromHeader,
		Timestamp:         msg.Date,
		Subject:           msg.Subject,
		FirstNormalized:   normalize.FirstN(normalized, excerptLen),
		LastNormalized:    normalize.LastN(normalized, excerptLen),
		LinkDomains:       domains,
		MismatchFlags:     mismatches,
		ShortenerFlags:    shorteners,
		HasAttachments:    msg.HasAttachments,
		AttachmentTypes:   msg.AttachmentTypes,
		QuarantineTier:    verdict.Tier.String(),
		QuarantineReasons: verdict.Reasons,
	}
}
