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

// Package ingest parses Gmail API message JSON (format=full) into the
// canonical Message record consumed by the pre-gate pipeline. Parsing is
// the boundary where transport decoding happens: base64url bodies are
// decoded here so the core only ever sees plain text.
package ingest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bcem/pregate/internal/models"
	"github.com/bcem/pregate/internal/quarantine"
)

// linkedinDomains identify the LinkedIn notification channel from the
// sender domain.
var linkedinDomains = map[string]bool{
	"linkedin.com":       true,
	"linkedin-email.com": true,
	"e.linkedin.com":     true,
	"news.linkedin.com":  true,
}

// gmailHeader is one entry of the Gmail API headers array.
type gmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// gmailPart is a MIME part of a Gmail API payload. Parts nest arbitrarily
// for multipart messages.
type gmailPart struct {
	MimeType string        `json:"mimeType"`
	Filename string        `json:"filename"`
	Headers  []gmailHeader `json:"headers"`
	Body     struct {
		AttachmentID string `json:"attachmentId"`
		Data         string `json:"data"`
	} `json:"body"`
	Parts []gmailPart `json:"parts"`
}

// gmailMessage represents the relevant fields of a Gmail API message
// response with format=full.
type gmailMessage struct {
	ID       string     `json:"id"`
	ThreadID string     `json:"threadId"`
	Snippet  string     `json:"snippet"`
	LabelIDs []string   `json:"labelIds"`
	Payload  *gmailPart `json:"payload"`
}

// ParseMessage converts a raw Gmail API message response into a Message.
// It fails only for the fatal identity precondition (missing id, threadId,
// or payload); malformed optional content degrades to empty fields.
func ParseMessage(raw []byte) (*models.Message, error) {
	var msg gmailMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode gmail message: %w", err)
	}

	if msg.ID == "" {
		return nil, fmt.Errorf("gmail message: %w: missing id", models.ErrUnidentifiedMessage)
	}
	if msg.ThreadID == "" {
		return nil, fmt.Errorf("gmail message %s: %w: missing threadId", msg.ID, models.ErrUnidentifiedMessage)
	}
	if msg.Payload == nil {
		return nil, fmt.Errorf("gmail message %s: %w: missing payload", msg.ID, models.ErrUnidentifiedMessage)
	}

	headers := headerMap(msg.Payload.Headers)
	fromHeader := headerValue(headers, "From")
	if fromHeader == "" {
		return nil, fmt.Errorf("gmail message %s: %w: missing From header", msg.ID, models.ErrUnidentifiedMessage)
	}

	htmlBody, textBody := extractBody(msg.Payload)
	hasAttachments, attachmentTypes := detectAttachments(msg.Payload.Parts)

	return &models.Message{
		MessageID:       msg.ID,
		ThreadID:        msg.ThreadID,
		FromHeader:      fromHeader,
		To:              splitAddressList(headerValue(headers, "To")),
		Subject:         headerValue(headers, "Subject"),
		Date:            parseDate(headerValue(headers, "Date")),
		ReplyTo:         headerValue(headers, "Reply-To"),
		Snippet:         msg.Snippet,
		HTMLBody:        htmlBody,
		TextBody:        textBody,
		HasAttachments:  hasAttachments,
		AttachmentTypes: attachmentTypes,
		Labels:          msg.LabelIDs,
		Channel:         detectChannel(fromHeader),
		RawHeaders:      headers,
	}, nil
}

// headerMap converts the Gmail headers array to a map, preserving the
// original header-name case.
func headerMap(headers []gmailHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		if h.Name != "" {
			m[h.Name] = h.Value
		}
	}
	return m
}

// headerValue looks a header up by its canonical name, falling back to a
// case-insensitive scan — providers are inconsistent about header casing.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// splitAddressList splits a comma-separated address header into trimmed
// entries.
func splitAddressList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, addr := range strings.Split(raw, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// parseDate parses an RFC 2822 Date header, falling back to the current
// UTC time for malformed or absent dates.
func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}
	t, err := mail.ParseDate(raw)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

// extractBody walks the payload tree and returns the HTML and plain-text
// bodies, either of which may be empty. Attachment parts are skipped; the
// first part of each type wins on nested multipart structures.
func extractBody(payload *gmailPart) (htmlBody, textBody string) {
	if payload.Body.Data != "" && len(payload.Parts) == 0 {
		decoded := decodeBodyData(payload.Body.Data)
		switch {
		case strings.Contains(payload.MimeType, "text/html"):
			htmlBody = decoded
		default:
			// Plain text, or an unclear MIME type treated as text.
			textBody = decoded
		}
		return htmlBody, textBody
	}

	for i := range payload.Parts {
		part := &payload.Parts[i]
		if part.Body.AttachmentID != "" || part.Filename != "" {
			continue
		}

		if part.Body.Data != "" {
			decoded := decodeBodyData(part.Body.Data)
			switch {
			case strings.Contains(part.MimeType, "text/html"):
				if htmlBody == "" {
					htmlBody = decoded
				}
			case strings.Contains(part.MimeType, "text/plain"):
				if textBody == "" {
					textBody = decoded
				}
			}
		}

		if len(part.Parts) > 0 {
			nestedHTML, nestedText := extractBody(part)
			if htmlBody == "" {
				htmlBody = nestedHTML
			}
			if textBody == "" {
				textBody = nestedText
			}
		}
	}

	return htmlBody, textBody
}

// decodeBodyData decodes Gmail's base64url body encoding (URL-safe
// alphabet, padding optional). Undecodable data degrades to empty; bad
// UTF-8 sequences are replaced rather than propagated.
func decodeBodyData(data string) string {
	if data == "" {
		return ""
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return ""
	}
	return strings.ToValidUTF8(string(decoded), "�")
}

// detectAttachments scans the part tree for attachments, identified by a
// filename, an attachmentId, or a Content-Disposition: attachment header.
// Types prefer the filename extension over the MIME type.
func detectAttachments(parts []gmailPart) (bool, []string) {
	var types []string

	var scan func(parts []gmailPart)
	scan = func(parts []gmailPart) {
		for i := range parts {
			part := &parts[i]

			isAttachment := part.Filename != "" || part.Body.AttachmentID != ""
			for _, h := range part.Headers {
				if strings.EqualFold(h.Name, "Content-Disposition") &&
					strings.Contains(strings.ToLower(h.Value), "attachment") {
					isAttachment = true
				}
			}

			if isAttachment {
				if dot := strings.LastIndex(part.Filename, "."); dot >= 0 {
					types = append(types, strings.ToLower(part.Filename[dot:]))
				} else if part.MimeType != "" && part.MimeType != "text/plain" && part.MimeType != "text/html" {
					types = append(types, part.MimeType)
				}
			}

			scan(part.Parts)
		}
	}
	scan(parts)

	return len(types) > 0, types
}

// detectChannel maps the sender domain to a channel identifier. Anything
// not recognised is plain gmail.
func detectChannel(fromHeader string) string {
	addr := quarantine.ExtractAddress(fromHeader)
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return "gmail"
	}
	domain := addr[at+1:]

	if linkedinDomains[domain] {
		return "linkedin"
	}
	for known := range linkedinDomains {
		if strings.HasSuffix(domain, "."+known) {
			return "linkedin"
		}
	}
	return "gmail"
}
