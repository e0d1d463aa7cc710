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

// Policy holds the static allow-list tables for one trusted sending
// organization. A Policy is immutable for the process lifetime; evaluators
// only ever read it, so a single Policy is safe to share across
// goroutines.
type Policy struct {
	// exactSenders are known-good sender addresses (exact match = PASS).
	exactSenders map[string]bool

	// trustedDomain is the organization's sending domain. Addresses on it
	// that are not in exactSenders land in REVIEW, not QUARANTINE.
	trustedDomain string

	// approvedDomains are link destinations that pass silently.
	approvedDomains map[string]bool

	// toleratedDomains pass with an advisory warning — typically the
	// shortener the organization itself uses in its mail.
	toleratedDomains map[string]bool

	// expectedDomains are third-party destinations routinely found in the
	// organization's footers (app stores, support portals).
	expectedDomains map[string]bool
}

// PolicyConfig is the external description of a Policy. All domains and
// addresses are case-folded on construction.
type PolicyConfig struct {
	TrustedDomain    string   `yaml:"trusted_domain"`
	ExactSenders     []string `yaml:"exact_senders"`
	ApprovedDomains  []string `yaml:"approved_domains"`
	ToleratedDomains []string `yaml:"tolerated_domains"`
	ExpectedDomains  []string `yaml:"expected_domains"`
}

// NewPolicy builds an immutable Policy from its configuration.
func NewPolicy(cfg PolicyConfig) *Policy {
	return &Policy{
		exactSenders:     toSet(cfg.ExactSenders),
		trustedDomain:    lower(cfg.TrustedDomain),
		approvedDomains:  toSet(cfg.ApprovedDomains),
		toleratedDomains: toSet(cfg.ToleratedDomains),
		expectedDomains:  toSet(cfg.ExpectedDomains),
	}
}

// DefaultPolicy returns the compiled-in LinkedIn policy. Link domains are
// stored in normalized form (lowercase, no "www." label) to match the
// extractor's domain normalization.
func DefaultPolicy() *Policy {
	return NewPolicy(PolicyConfig{
		TrustedDomain: "linkedin.com",
		ExactSenders: []string{
			"notifications-noreply@linkedin.com",
			"messages-noreply@linkedin.com",
			"invitations@linkedin.com",
			"jobs-noreply@linkedin.com",
			"jobalerts-noreply@linkedin.com",
		},
		ApprovedDomains:  []string{"linkedin.com"},
		ToleratedDomains: []string{"lnkd.in"},
		ExpectedDomains: []string{
			"play.google.com",
			"itunes.apple.com",
			"apps.apple.com",
			"apps.microsoft.com",
			"support.apple.com",
			"support.google.com",
		},
	})
}
