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

// Package normalize converts raw email content into a canonical form for
// deterministic risk pattern detection. The pipeline is total: it never
// fails, whatever the input, and normalizing already-normalized text is a
// no-op.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// zeroWidthReplacer strips invisible characters commonly used to split
// keywords past naive filters.
var zeroWidthReplacer = strings.NewReplacer(
	"​", "", // zero-width space
	"‌", "", // zero-width non-joiner
	"‍", "", // zero-width joiner
	"\uFEFF", "", // zero-width no-break space (BOM)
	"­", "", // soft hyphen
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Text normalizes raw (possibly HTML) content into canonical form:
//
//  1. Strip HTML, dropping <script>/<style> subtrees entirely
//  2. Unicode NFKC normalization (collapses full-width/decorated glyphs)
//  3. Strip zero-width characters
//  4. Collapse whitespace runs to single spaces, trim
//  5. Lowercase
func Text(raw string) string {
	if raw == "" {
		return ""
	}

	text := HTMLToText(raw)
	text = norm.NFKC.String(text)
	text = zeroWidthReplacer.Replace(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	return strings.ToLower(text)
}

// HTMLToText extracts the visible text of an HTML document. Adjacent
// element texts are joined with a space so inline tags never concatenate
// into "wordword" artifacts. Plain text passes through unchanged apart
// from that joining.
func HTMLToText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		// html.Parse is tolerant of arbitrary byte soup; an error here means
		// the reader failed, which cannot happen for a string. Keep the raw
		// content rather than dropping it.
		return raw
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode && n.Data != "" {
			parts = append(parts, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, " ")
}

// FirstN returns the first n runes of s, or all of s if shorter. Slicing
// runes keeps excerpts from splitting a multi-byte character.
func FirstN(s string, n int) string {
	if s == "" || n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// LastN returns the last n runes of s, or all of s if shorter.
func LastN(s string, n int) string {
	if s == "" || n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
