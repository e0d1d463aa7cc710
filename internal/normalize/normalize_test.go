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

package normalize

import "testing"

// TestText_HTMLStripped verifies that tags are removed and visible text
// survives.
func TestText_HTMLStripped(t *testing.T) {
	got := Text("<p>Hello  World</p>")
	if got != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", got)
	}
}

// TestText_ScriptAndStyleDropped verifies that script and style subtrees
// are removed entirely, not rendered as text.
func TestText_ScriptAndStyleDropped(t *testing.T) {
	html := `<html><head><style>body { color: red; }</style></head>` +
		`<body><p>Visible</p><script>var secret = "hidden";</script></body></html>`

	got := Text(html)
	if got != "visible" {
		t.Errorf("expected %q, got %q", "visible", got)
	}
}

// TestText_AdjacentInlineTags verifies a separating space is inserted
// between adjacent element texts, preventing "wordword" artifacts.
func TestText_AdjacentInlineTags(t *testing.T) {
	got := Text("<span>Click</span><span>Here</span>")
	if got != "click here" {
		t.Errorf("expected %q, got %q", "click here", got)
	}
}

// TestText_ZeroWidthStripped verifies invisible characters are removed so
// they cannot split keywords past filters.
func TestText_ZeroWidthStripped(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"zero-width space", "URGENT​MESSAGE", "urgentmessage"},
		{"zero-width non-joiner", "UR‌GENT", "urgent"},
		{"zero-width joiner", "UR‍GENT", "urgent"},
		{"BOM", "\uFEFFhello", "hello"},
		{"soft hyphen", "ver­ify", "verify"},
	}

	for _, c := range cases {
		if got := Text(c.input); got != c.want {
			t.Errorf("%s: expected %q, got %q", c.name, c.want, got)
		}
	}
}

// TestText_NFKC verifies that full-width glyphs collapse to their ASCII
// equivalents, defeating simple visual obfuscation.
func TestText_NFKC(t *testing.T) {
	got := Text("ＨＥＬＬＯ") // ＨＥＬＬＯ
	if got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
}

// TestText_WhitespaceCollapsed verifies runs of whitespace become single
// spaces with no leading/trailing residue.
func TestText_WhitespaceCollapsed(t *testing.T) {
	got := Text("  a\t\tb\n\nc  ")
	if got != "a b c" {
		t.Errorf("expected %q, got %q", "a b c", got)
	}
}

// TestText_EmptyInput verifies empty input yields the empty string.
func TestText_EmptyInput(t *testing.T) {
	if got := Text(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

// TestText_Idempotent verifies normalizing already-normalized text is a
// no-op.
func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"<p>Hello  World</p>",
		"URGENT​MESSAGE",
		"plain text already",
		"  Mixed \t CASE \n content  ",
		"<a href='https://example.com'>link text</a> trailing",
	}

	for _, input := range inputs {
		once := Text(input)
		twice := Text(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

// TestFirstN verifies prefix extraction, including short inputs and rune
// boundaries.
func TestFirstN(t *testing.T) {
	if got := FirstN("hello world", 5); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
	if got := FirstN("short", 200); got != "short" {
		t.Errorf("short input should be returned unchanged, got %q", got)
	}
	if got := FirstN("", 10); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	// Multi-byte characters must not be split.
	if got := FirstN("héllo", 2); got != "hé" {
		t.Errorf("expected %q, got %q", "hé", got)
	}
}

// TestLastN verifies suffix extraction.
func TestLastN(t *testing.T) {
	if got := LastN("hello world", 5); got != "world" {
		t.Errorf("expected %q, got %q", "world", got)
	}
	if got := LastN("short", 200); got != "short" {
		t.Errorf("short input should be returned unchanged, got %q", got)
	}
	if got := LastN("", 10); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
	if got := LastN("worldé", 2); got != "dé" {
		t.Errorf("expected %q, got %q", "dé", got)
	}
}
