package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hilthontt/roomsync/pkg/protocol"
)

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("sdk: api %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("sdk: api %d: %s", e.Status, e.Code)
}

// HistoryClient reads and appends chat history over the REST API. It
// satisfies timeline.Source.
type HistoryClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewHistoryClient(baseURL string) *HistoryClient {
	return &HistoryClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HistoryClient) messagesURL(chatID string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/chats/" + url.PathEscape(chatID) + "/messages"
}

func (c *HistoryClient) FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if !q.Before.IsZero() {
		params.Set("before", q.Before.UTC().Format(time.RFC3339Nano))
	}
	if q.BeforeID != "" {
		params.Set("beforeId", q.BeforeID)
	}

	target := c.messagesURL(chatID)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return protocol.Page{}, err
	}

	var page protocol.Page
	if err := c.do(req, &page); err != nil {
		return protocol.Page{}, err
	}
	return page, nil
}

// AppendMessage stores msg and returns the stored copy with server-side
// fields filled in.
func (c *HistoryClient) AppendMessage(ctx context.Context, chatID string, msg protocol.Message) (protocol.Message, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return protocol.Message{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(chatID), bytes.NewReader(body))
	if err != nil {
		return protocol.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var stored protocol.Message
	if err := c.do(req, &stored); err != nil {
		return protocol.Message{}, err
	}
	return stored, nil
}

func (c *HistoryClient) do(req *http.Request, out any) error {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sdk: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sdk: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
