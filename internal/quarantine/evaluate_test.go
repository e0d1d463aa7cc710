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

package quarantine

import (
	"reflect"
	"testing"
)

// testPolicy mirrors a small trusted organization for rule tests.
func testPolicy() *Policy {
	return NewPolicy(PolicyConfig{
		TrustedDomain: "trusted.org",
		ExactSenders: []string{
			"notifications-noreply@trusted.org",
			"alerts@trusted.org",
		},
		ApprovedDomains:  []string{"trusted.org"},
		ToleratedDomains: []string{"lnkd.in"},
		ExpectedDomains:  []string{"play.google.com"},
	})
}

// TestExtractAddress verifies both header forms fold to a bare lowercase
// address.
func TestExtractAddress(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Trusted <notifications-noreply@trusted.org>", "notifications-noreply@trusted.org"},
		{"notifications-noreply@trusted.org", "notifications-noreply@trusted.org"},
		{"NOTIFICATIONS-NOREPLY@TRUSTED.ORG", "notifications-noreply@trusted.org"},
		{"  alerts@trusted.org  ", "alerts@trusted.org"},
	}

	for _, c := range cases {
		if got := ExtractAddress(c.header); got != c.want {
			t.Errorf("ExtractAddress(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}

// TestEvaluate_SenderTiers verifies the three-tier sender rule.
func TestEvaluate_SenderTiers(t *testing.T) {
	e := NewEvaluator(testPolicy())

	cases := []struct {
		name    string
		sender  string
		tier    Tier
		reasons []string
	}{
		{"exact allowlist", "notifications-noreply@trusted.org", TierPass, nil},
		{"allowlist with display name", "Trusted <alerts@trusted.org>", TierPass, nil},
		{"trusted domain, unknown sender", "unknown@trusted.org", TierReview, []string{ReasonSenderNotAllowlisted}},
		{"wrong domain", "phishing@evil.com", TierQuarantine, []string{ReasonSenderWrongDomain}},
		{"lookalike typo domain", "spoof@trusteed.org", TierQuarantine, []string{ReasonSenderWrongDomain}},
		{"trusted domain as subdomain of attacker", "x@trusted.org.evil.com", TierQuarantine, []string{ReasonSenderWrongDomain}},
	}

	for _, c := range cases {
		v := e.Evaluate(c.sender, "", "")
		if v.Tier != c.tier {
			t.Errorf("%s: tier = %v, want %v", c.name, v.Tier, c.tier)
		}
		if !reflect.DeepEqual(v.Reasons, c.reasons) {
			t.Errorf("%s: reasons = %v, want %v", c.name, v.Reasons, c.reasons)
		}
	}
}

// TestEvaluate_ReplyToMismatch verifies a differing reply-to quarantines
// and an absent one does not.
func TestEvaluate_ReplyToMismatch(t *testing.T) {
	e := NewEvaluator(testPolicy())

	v := e.Evaluate("notifications-noreply@trusted.org", "attacker@evil.com", "")
	if v.Tier != TierQuarantine {
		t.Errorf("tier = %v, want QUARANTINE", v.Tier)
	}
	if !contains(v.Reasons, ReasonReplyToMismatch) {
		t.Errorf("reasons missing %s: %v", ReasonReplyToMismatch, v.Reasons)
	}

	// Same address in a different header form is not a mismatch.
	v = e.Evaluate("Trusted <alerts@trusted.org>", "ALERTS@TRUSTED.ORG", "")
	if v.Tier != TierPass {
		t.Errorf("matching reply-to: tier = %v, want PASS", v.Tier)
	}

	// No reply-to header is never a violation.
	v = e.Evaluate("notifications-noreply@trusted.org", "", "")
	if v.Tier != TierPass || len(v.Reasons) != 0 {
		t.Errorf("absent reply-to: tier = %v, reasons = %v", v.Tier, v.Reasons)
	}
}

// TestEvaluate_LinkDomains verifies the three link domain sets: approved
// passes silently, tolerated passes with a warning, everything else
// quarantines.
func TestEvaluate_LinkDomains(t *testing.T) {
	e := NewEvaluator(testPolicy())
	sender := "notifications-noreply@trusted.org"

	// Approved domain: clean pass.
	v := e.Evaluate(sender, "", `<a href="https://trusted.org/jobs/view/123">View job</a>`)
	if v.Tier != TierPass || len(v.Reasons) != 0 || len(v.Warnings) != 0 {
		t.Errorf("approved link: verdict %+v", v)
	}

	// Expected third-party domain: clean pass.
	v = e.Evaluate(sender, "", `<a href="https://play.google.com/store/apps">Get the app</a>`)
	if v.Tier != TierPass || len(v.Reasons) != 0 {
		t.Errorf("expected third-party link: verdict %+v", v)
	}

	// Tolerated shortener: pass with advisory warning.
	v = e.Evaluate(sender, "", `<a href="https://lnkd.in/abc123">Shared post</a>`)
	if v.Tier != TierPass || len(v.Reasons) != 0 {
		t.Errorf("tolerated link: verdict %+v", v)
	}
	if !contains(v.Warnings, "shortener_domain_lnkd.in") {
		t.Errorf("missing shortener warning: %v", v.Warnings)
	}

	// Anything else: quarantine.
	v = e.Evaluate(sender, "", `<a href="https://evil.com/login">Sign in</a>`)
	if v.Tier != TierQuarantine {
		t.Errorf("unapproved link: tier = %v, want QUARANTINE", v.Tier)
	}
	if !contains(v.Reasons, ReasonDeepLinkWrongDomain) {
		t.Errorf("reasons missing %s: %v", ReasonDeepLinkWrongDomain, v.Reasons)
	}

	// Unparsable href: treated as not-approved.
	v = e.Evaluate(sender, "", `<a href="notaurl">Click</a>`)
	if v.Tier != TierQuarantine || !contains(v.Reasons, ReasonDeepLinkWrongDomain) {
		t.Errorf("unparsable link: verdict %+v", v)
	}
}

// TestEvaluate_TextHrefMismatch verifies the combined phishing shape from
// a trusted sender: both the wrong-domain and the mismatch rule fire.
func TestEvaluate_TextHrefMismatch(t *testing.T) {
	e := NewEvaluator(testPolicy())

	v := e.Evaluate("notifications-noreply@trusted.org", "",
		`<a href="https://evil.com">trusted.org/jobs</a>`)

	if v.Tier != TierQuarantine {
		t.Errorf("tier = %v, want QUARANTINE", v.Tier)
	}
	want := []string{ReasonDeepLinkWrongDomain, ReasonLinkTextHrefMismatch}
	if !reflect.DeepEqual(v.Reasons, want) {
		t.Errorf("reasons = %v, want %v", v.Reasons, want)
	}
}

// TestEvaluate_ReasonsDeduplicated verifies ten offending links produce
// each reason once, preserving first-trigger order.
func TestEvaluate_ReasonsDeduplicated(t *testing.T) {
	e := NewEvaluator(testPolicy())

	html := ""
	for i := 0; i < 10; i++ {
		html += `<a href="https://evil.com/x">trusted.org here</a>`
	}

	v := e.Evaluate("phishing@evil.com", "", html)

	want := []string{ReasonSenderWrongDomain, ReasonDeepLinkWrongDomain, ReasonLinkTextHrefMismatch}
	if !reflect.DeepEqual(v.Reasons, want) {
		t.Errorf("reasons = %v, want %v", v.Reasons, want)
	}
}

// TestEvaluate_TierMonotonic verifies the verdict tier is the maximum of
// all triggered rules and never regresses once QUARANTINE fires.
func TestEvaluate_TierMonotonic(t *testing.T) {
	e := NewEvaluator(testPolicy())

	// REVIEW-level sender plus a QUARANTINE-level link: QUARANTINE wins,
	// both reasons recorded in rule order.
	v := e.Evaluate("unknown@trusted.org", "", `<a href="https://evil.com">Sign in</a>`)
	if v.Tier != TierQuarantine {
		t.Errorf("tier = %v, want QUARANTINE", v.Tier)
	}
	want := []string{ReasonSenderNotAllowlisted, ReasonDeepLinkWrongDomain}
	if !reflect.DeepEqual(v.Reasons, want) {
		t.Errorf("reasons = %v, want %v", v.Reasons, want)
	}

	// QUARANTINE-level sender followed by clean links stays QUARANTINE.
	v = e.Evaluate("phishing@evil.com", "", `<a href="https://trusted.org">ok</a>`)
	if v.Tier != TierQuarantine {
		t.Errorf("tier = %v, want QUARANTINE", v.Tier)
	}
}

// TestTierOrdering verifies the total order PASS < REVIEW < QUARANTINE.
func TestTierOrdering(t *testing.T) {
	if !(TierPass < TierReview && TierReview < TierQuarantine) {
		t.Error("tier ordering broken")
	}
	if TierPass.String() != "PASS" || TierReview.String() != "REVIEW" || TierQuarantine.String() != "QUARANTINE" {
		t.Error("tier string forms broken")
	}
	for _, tier := range []Tier{TierPass, TierReview, TierQuarantine} {
		if ParseTier(tier.String()) != tier {
			t.Errorf("ParseTier round trip broken for %v", tier)
		}
	}
}

// TestDefaultPolicy spot-checks the compiled-in policy with its real
// sender set.
func TestDefaultPolicy(t *testing.T) {
	e := NewEvaluator(DefaultPolicy())

	v := e.Evaluate("LinkedIn <notifications-noreply@linkedin.com>", "", "")
	if v.Tier != TierPass {
		t.Errorf("known sender: tier = %v, want PASS", v.Tier)
	}

	v = e.Evaluate("someone@linkedin.com", "", "")
	if v.Tier != TierReview {
		t.Errorf("unknown org sender: tier = %v, want REVIEW", v.Tier)
	}

	v = e.Evaluate("spoof@linkedln.com", "", "")
	if v.Tier != TierQuarantine {
		t.Errorf("typo domain: tier = %v, want QUARANTINE", v.Tier)
	}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
