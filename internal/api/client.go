package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"chat-sync/internal/models"
)

// ErrMalformedResponse marks payloads whose shape does not match the API
// contract. Callers treat it like a fetch failure rather than applying
// partial data.
var ErrMalformedResponse = errors.New("malformed response")

// ErrRequestFailed wraps non-2xx responses.
var ErrRequestFailed = errors.New("request failed")

// Client is the remote marketplace API surface the sync core depends on.
type Client interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
	CreateOrGetChat(ctx context.Context, propertyID, ownerID string) (models.Chat, error)
	SendMessage(ctx context.Context, chatID, content string) (models.Chat, error)
	MarkRead(ctx context.Context, chatID string) (models.Chat, error)
	FetchStatus(ctx context.Context, userIDs []string) ([]models.PresenceStatus, error)
}

// HTTPClient talks to the REST API with bearer authentication.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPClient builds an HTTPClient. The token is the same session
// credential the push channel authenticates with.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// ListChats fetches all chats visible to the session user.
func (c *HTTPClient) ListChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// CreateOrGetChat asks the server for the chat tied to a property and owner,
// creating it only when absent. The server guarantees idempotence.
func (c *HTTPClient) CreateOrGetChat(ctx context.Context, propertyID, ownerID string) (models.Chat, error) {
	body := map[string]string{"propertyId": propertyID, "ownerId": ownerID}
	var chat models.Chat
	if err := c.do(ctx, http.MethodPost, "/chats", body, &chat); err != nil {
		return models.Chat{}, err
	}
	if chat.ID == "" {
		return models.Chat{}, fmt.Errorf("create chat: %w: missing id", ErrMalformedResponse)
	}
	return chat, nil
}

// SendMessage posts a message and returns the server's authoritative view of
// the chat.
func (c *HTTPClient) SendMessage(ctx context.Context, chatID, content string) (models.Chat, error) {
	body := map[string]string{"content": content}
	var chat models.Chat
	if err := c.do(ctx, http.MethodPost, "/chats/"+chatID+"/messages", body, &chat); err != nil {
		return models.Chat{}, err
	}
	if chat.ID == "" {
		return models.Chat{}, fmt.Errorf("send message: %w: missing id", ErrMalformedResponse)
	}
	return chat, nil
}

// MarkRead confirms all inbound messages of a chat as read and returns the
// updated chat.
func (c *HTTPClient) MarkRead(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	if err := c.do(ctx, http.MethodPut, "/chats/"+chatID+"/read", struct{}{}, &chat); err != nil {
		return models.Chat{}, err
	}
	if chat.ID == "" {
		return models.Chat{}, fmt.Errorf("mark read: %w: missing id", ErrMalformedResponse)
	}
	return chat, nil
}

// FetchStatus batch-queries online/last-seen state for a set of users.
func (c *HTTPClient) FetchStatus(ctx context.Context, userIDs []string) ([]models.PresenceStatus, error) {
	body := map[string][]string{"userIds": userIDs}
	var statuses []models.PresenceStatus
	if err := c.do(ctx, http.MethodPost, "/users/status", body, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	ctx, span := otel.Tracer("chat-sync/api").Start(ctx, method+" "+path)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.route", path))

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %w: status %d", method, path, ErrRequestFailed, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrMalformedResponse, err)
	}
	return nil
}
