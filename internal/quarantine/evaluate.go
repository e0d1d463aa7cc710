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

// Package quarantine implements the hard quarantine rules of the pre-gate.
// These rules are non-negotiable: no downstream scoring or judgment can
// override a single QUARANTINE-level violation, because the verdict is
// computed before any content-influenced stage runs.
package quarantine

import (
	"regexp"
	"strings"

	"github.com/bcem/pregate/internal/links"
)

// Tier is the severity of a quarantine verdict, totally ordered
// PASS < REVIEW < QUARANTINE.
type Tier int

const (
	TierPass Tier = iota
	TierReview
	TierQuarantine
)

// String returns the wire form of the tier.
func (t Tier) String() string {
	switch t {
	case TierReview:
		return "REVIEW"
	case TierQuarantine:
		return "QUARANTINE"
	default:
		return "PASS"
	}
}

// ParseTier converts a wire-form tier back to its ordered value. Unknown
// strings map to PASS.
func ParseTier(s string) Tier {
	switch s {
	case "REVIEW":
		return TierReview
	case "QUARANTINE":
		return TierQuarantine
	default:
		return TierPass
	}
}

// maxTier returns the higher of two tiers.
func maxTier(a, b Tier) Tier {
	if b > a {
		return b
	}
	return a
}

// Reason codes for rule violations.
const (
	ReasonSenderNotAllowlisted = "sender_not_in_exact_allowlist"
	ReasonSenderWrongDomain    = "sender_wrong_domain"
	ReasonReplyToMismatch      = "reply_to_mismatch"
	ReasonDeepLinkWrongDomain  = "deep_link_wrong_domain"
	ReasonLinkTextHrefMismatch = "link_text_href_mismatch"
)

// Verdict is the outcome of one evaluation: the maximum severity implied
// by any triggered rule, plus the ordered, deduplicated violation reasons.
// Warnings carry advisory findings (tolerated shortener links) that do not
// affect the tier.
type Verdict struct {
	Tier     Tier
	Reasons  []string
	Warnings []string
}

// Evaluator applies the hard quarantine rule set under a fixed Policy.
type Evaluator struct {
	policy *Policy
}

// NewEvaluator creates an evaluator for the given policy.
func NewEvaluator(policy *Policy) *Evaluator {
	return &Evaluator{policy: policy}
}

var angleAddr = regexp.MustCompile(`<([^>]+)>`)

// ExtractAddress pulls the bare address out of a header that may be either
// "Display Name <addr>" or a bare address, case-folded and trimmed.
func ExtractAddress(header string) string {
	if m := angleAddr.FindStringSubmatch(header); m != nil {
		return strings.ToLower(m[1])
	}
	return strings.ToLower(strings.TrimSpace(header))
}

// Evaluate runs every rule in fixed order over the sender header, optional
// reply-to header, and optional HTML body, accumulating reasons. The tier
// never regresses: it is the maximum severity of all triggered rules.
func (e *Evaluator) Evaluate(sender, replyTo, htmlBody string) Verdict {
	tier := TierPass
	var reasons, warnings []string

	// Rule 1: three-tier sender identity.
	senderTier, senderReason := e.evaluateSender(sender)
	tier = maxTier(tier, senderTier)
	if senderReason != "" {
		reasons = append(reasons, senderReason)
	}

	// Rule 2: reply-to must match the sender when present.
	if replyToMismatch(sender, replyTo) {
		tier = TierQuarantine
		reasons = append(reasons, ReasonReplyToMismatch)
	}

	// Rules 3 and 4 only apply when there is an HTML body to carry links.
	if htmlBody != "" {
		for _, l := range links.Extract(htmlBody) {
			approved, warning := e.approvedLinkDomain(l.HrefDomain)
			if !approved {
				tier = TierQuarantine
				reasons = append(reasons, ReasonDeepLinkWrongDomain)
			}
			if warning != "" {
				warnings = append(warnings, warning)
			}

			if l.Mismatch {
				tier = TierQuarantine
				reasons = append(reasons, ReasonLinkTextHrefMismatch)
			}
		}
	}

	return Verdict{
		Tier:     tier,
		Reasons:  dedupe(reasons),
		Warnings: dedupe(warnings),
	}
}

// evaluateSender implements the three-tier sender rule: exact allow-list
// match passes, the trusted domain without an exact match is reviewed,
// anything else (including lookalike typo domains) is quarantined.
func (e *Evaluator) evaluateSender(fromHeader string) (Tier, string) {
	addr := ExtractAddress(fromHeader)

	if e.policy.exactSenders[addr] {
		return TierPass, ""
	}
	if strings.HasSuffix(addr, "@"+e.policy.trustedDomain) {
		return TierReview, ReasonSenderNotAllowlisted
	}
	return TierQuarantine, ReasonSenderWrongDomain
}

// replyToMismatch reports whether a present reply-to header names a
// different address than the sender. No reply-to header is not a violation.
func replyToMismatch(fromHeader, replyTo string) bool {
	if replyTo == "" {
		return false
	}
	return ExtractAddress(fromHeader) != ExtractAddress(replyTo)
}

// approvedLinkDomain checks one normalized link domain against the policy
// sets. An empty domain means the href never parsed, which is treated as
// not-approved. Tolerated domains pass but return an advisory warning.
func (e *Evaluator) approvedLinkDomain(domain string) (bool, string) {
	if domain == "" {
		return false, ""
	}
	if e.policy.approvedDomains[domain] || e.policy.expectedDomains[domain] {
		return true, ""
	}
	if e.policy.toleratedDomains[domain] {
		return true, "shortener_domain_" + domain
	}
	return false, ""
}

// dedupe removes duplicates while preserving first-occurrence order.
func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[lower(v)] = true
	}
	return set
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
