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

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/bcem/pregate/internal/models"
)

// DefaultGmailBaseURL is the production Gmail REST API endpoint.
const DefaultGmailBaseURL = "https://gmail.googleapis.com/gmail/v1"

// Fetcher retrieves full email messages from the Gmail API. The HTTP
// client is expected to carry OAuth2 credentials.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
}

// NewFetcher creates a Gmail API message fetcher.
func NewFetcher(httpClient *http.Client, baseURL string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// listResponse is a page of the messages.list endpoint.
type listResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	NextPageToken string `json:"nextPageToken"`
}

// ListRecent returns the IDs of the most recent messages in a mailbox,
// newest first, up to max.
func (f *Fetcher) ListRecent(ctx context.Context, userID string, max int) ([]string, error) {
	params := url.Values{}
	params.Set("maxResults", fmt.Sprintf("%d", max))
	params.Set("labelIds", "INBOX")

	listURL := fmt.Sprintf("%s/users/%s/messages?%s", f.baseURL, url.PathEscape(userID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		slog.Error("gmail list error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("gmail API returned HTTP %d for message list", resp.StatusCode)
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode message list: %w", err)
	}

	ids := make([]string, 0, len(page.Messages))
	for _, m := range page.Messages {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// FetchMessage retrieves the full content of one message and parses it
// into a Message. Returns nil, nil when the message no longer exists.
func (f *Fetcher) FetchMessage(ctx context.Context, userID, messageID string) (*models.Message, error) {
	fetchURL := fmt.Sprintf("%s/users/%s/messages/%s?format=full",
		f.baseURL, url.PathEscape(userID), url.PathEscape(messageID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Warn("message not found (may have been deleted)",
			"user_id", userID,
			"message_id", messageID,
		)
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gmail API returned HTTP %d for message %s", resp.StatusCode, messageID)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read message body: %w", err)
	}

	msg, err := ParseMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	return msg, nil
}
