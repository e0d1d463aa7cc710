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

// Package links extracts hyperlinks from HTML email bodies and computes
// per-link security flags: visible-text/href domain mismatch (a classic
// phishing indicator) and known URL-shortener membership. Extraction never
// fails; hostile input degrades to fewer or empty results.
package links

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/idna"
)

// Link is one extracted anchor with its security metadata. Links are
// immutable after construction.
type Link struct {
	Href        string
	VisibleText string
	HrefDomain  string
	TextDomain  string // domain-shaped substring in the visible text, if any
	Mismatch    bool   // TextDomain present and != HrefDomain
	Shortener   bool   // HrefDomain is a known URL shortener
}

// knownShorteners is the fixed set of URL-shortening services. Shortened
// links hide their destination, so they are flagged for advisory review.
var knownShorteners = map[string]bool{
	"bit.ly":      true,
	"lnkd.in":     true,
	"t.co":        true,
	"goo.gl":      true,
	"tinyurl.com": true,
	"ow.ly":       true,
	"buff.ly":     true,
	"is.gd":       true,
	"tiny.cc":     true,
	"shorturl.at": true,
}

// skipSchemes are non-web href schemes that carry no navigable domain.
var skipSchemes = []string{"mailto:", "javascript:", "tel:", "sms:", "data:"}

// domainPattern conservatively matches a domain-shaped substring: labels,
// a dot, and a short alphabetic TLD. Intentionally simple — over-matching
// free text as a domain would produce false positive mismatches. Long or
// internationalized TLDs are a documented miss.
var domainPattern = regexp.MustCompile(`\b([a-zA-Z0-9][-a-zA-Z0-9]*\.)+[a-zA-Z]{2,6}\b`)

// Extract parses every anchor element with a usable href out of htmlBody
// and returns one Link per surviving anchor. Anchors with non-web schemes,
// empty hrefs, or bare fragments are skipped; anchors whose href does not
// parse to a valid domain are kept with an empty HrefDomain.
func Extract(htmlBody string) []Link {
	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	var out []Link
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if l, ok := extractAnchor(n); ok {
				out = append(out, l)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return out
}

func extractAnchor(n *html.Node) (Link, bool) {
	var href string
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			href = strings.TrimSpace(attr.Val)
			break
		}
	}

	if href == "" || href == "#" {
		return Link{}, false
	}

	lower := strings.ToLower(href)
	for _, scheme := range skipSchemes {
		if strings.HasPrefix(lower, scheme) {
			return Link{}, false
		}
	}

	// A malformed href yields an empty HrefDomain. The record is kept: the
	// quarantine evaluator treats unparsable hrefs as not-approved.
	hrefDomain := Domain(href)

	visible := visibleText(n)
	textDomain := DomainInText(visible)

	return Link{
		Href:        href,
		VisibleText: visible,
		HrefDomain:  hrefDomain,
		TextDomain:  textDomain,
		Mismatch:    hrefDomain != "" && textDomain != "" && textDomain != hrefDomain,
		Shortener:   knownShorteners[hrefDomain],
	}, true
}

// visibleText concatenates all descendant text nodes of an anchor,
// space-separated and trimmed.
func visibleText(n *html.Node) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}

// Domain extracts the normalized domain from a URL: default scheme added
// when missing, host lowercased, port stripped, punycode decoded, and the
// leading "www." label removed. Returns "" for anything that does not
// parse to a host with at least one dot.
func Domain(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http://") &&
		!strings.HasPrefix(rawURL, "https://") &&
		!strings.HasPrefix(rawURL, "//") {
		rawURL = "http://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	domain := strings.ToLower(parsed.Hostname())
	if domain == "" {
		return ""
	}

	// Require at least one dot; filters out garbage like "not a url".
	if !strings.Contains(domain, ".") {
		return ""
	}

	// Decode ASCII-compatible-encoding labels to Unicode so homograph
	// domains compare against their visible form. On decode failure the
	// encoded form is kept rather than dropped, so a failed decode never
	// matches a decoded text domain.
	if strings.Contains(domain, "xn--") {
		if decoded, err := idna.Lookup.ToUnicode(domain); err == nil {
			domain = strings.ToLower(decoded)
		}
	}

	return strings.TrimPrefix(domain, "www.")
}

// DomainInText scans free text for a domain-shaped substring and returns
// it normalized (lowercase, "www." stripped), or "" when the text names no
// domain. Absence of a domain in text is never treated as a mismatch.
func DomainInText(text string) string {
	if text == "" {
		return ""
	}
	match := domainPattern.FindString(text)
	if match == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(match), "www.")
}
