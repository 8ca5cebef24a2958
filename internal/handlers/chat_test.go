package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/mocks"
	"chat-sync/internal/models"
	"chat-sync/internal/notify"
	"chat-sync/internal/router"
	"chat-sync/internal/session"
	"chat-sync/internal/store"
	"chat-sync/internal/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	client *mocks.APIClientMock
	store  *store.Store
	engine *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	client := new(mocks.APIClientMock)
	st := store.New("me")
	manager := ws.NewManager(ws.Config{URL: "ws://localhost:0", Token: "token"})
	rt := router.New(st, notify.NewCenter(), client)
	sess := session.New(client, st, manager, rt, nil, models.Participant{ID: "me", Name: "Me"}, time.Minute)

	h := NewChatHandler(st, sess, rt)
	engine := gin.New()
	engine.GET("/chats", h.ListChats)
	engine.POST("/chats", h.StartChat)
	engine.GET("/chats/:chat_id", h.GetChat)
	engine.POST("/chats/:chat_id/messages", h.PostMessage)
	engine.PUT("/chats/:chat_id/read", h.MarkRead)
	engine.POST("/chats/:chat_id/open", h.OpenChat)
	engine.POST("/chats/:chat_id/close", h.CloseChat)
	engine.POST("/chats/:chat_id/typing", h.Typing)
	engine.GET("/unread", h.Unread)

	return &fixture{client: client, store: st, engine: engine}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func seedChat(st *store.Store, id string, msgs ...models.Message) {
	st.UpsertChat(models.Chat{
		ID: id,
		Participants: []models.Participant{
			{ID: "me", Name: "Me"},
			{ID: "owner", Name: "Owner"},
		},
		Messages: msgs,
	})
}

func inbound(id, chatID string, read bool) models.Message {
	return models.Message{
		ID:        id,
		ChatID:    chatID,
		Sender:    models.Participant{ID: "owner"},
		Content:   "content-" + id,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Read:      read,
	}
}

func TestListChatsIncludesUnread(t *testing.T) {
	f := newFixture(t)
	seedChat(f.store, "c1", inbound("m1", "c1", false), inbound("m2", "c1", false))
	seedChat(f.store, "c2", inbound("m3", "c2", true))

	rec := f.do(http.MethodGet, "/chats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Chats  []models.Chat `json:"chats"`
		Unread int           `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Chats, 2)
	assert.Equal(t, 2, resp.Unread)
}

func TestGetChatNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/chats/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetChat(t *testing.T) {
	f := newFixture(t)
	seedChat(f.store, "c1", inbound("m1", "c1", false))

	rec := f.do(http.MethodGet, "/chats/c1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Chat   models.Chat `json:"chat"`
		Unread int         `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "c1", resp.Chat.ID)
	assert.Equal(t, 1, resp.Unread)
}

func TestStartChat(t *testing.T) {
	f := newFixture(t)
	f.client.On("CreateOrGetChat", mock.Anything, "p1", "owner").
		Return(models.Chat{ID: "c1"}, nil).Once()

	rec := f.do(http.MethodPost, "/chats", gin.H{"propertyId": "p1", "ownerId": "owner"})
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := f.store.GetChat("c1")
	assert.NoError(t, err)
	assert.Equal(t, "c1", f.store.ActiveChat())
	f.client.AssertExpectations(t)
}

func TestStartChatRejectsMissingFields(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/chats", gin.H{"propertyId": "p1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartChatUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.client.On("CreateOrGetChat", mock.Anything, "p1", "owner").
		Return(nil, errors.New("boom")).Once()

	rec := f.do(http.MethodPost, "/chats", gin.H{"propertyId": "p1", "ownerId": "owner"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPostMessage(t *testing.T) {
	f := newFixture(t)
	seedChat(f.store, "c1", inbound("m1", "c1", true))
	f.client.On("SendMessage", mock.Anything, "c1", "hello").
		Return(models.Chat{
			ID: "c1",
			Messages: []models.Message{
				inbound("m1", "c1", true),
				{ID: "m2", ChatID: "c1", Sender: models.Participant{ID: "me"}, Content: "hello"},
			},
		}, nil).Once()

	rec := f.do(http.MethodPost, "/chats/c1/messages", gin.H{"content": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var chat models.Chat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	assert.Len(t, chat.Messages, 2)
	f.client.AssertExpectations(t)
}

func TestPostMessageEmptyContent(t *testing.T) {
	f := newFixture(t)
	seedChat(f.store, "c1")

	rec := f.do(http.MethodPost, "/chats/c1/messages", gin.H{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageMissingBody(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/chats/c1/messages", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostMessageUnknownChat(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/chats/missing/messages", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessageUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	seedChat(f.store, "c1")
	f.client.On("SendMessage", mock.Anything, "c1", "hi").
		Return(nil, errors.New("boom")).Once()

	rec := f.do(http.MethodPost, "/chats/c1/messages", gin.H{"content": "hi"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	chat, err := f.store.GetChat("c1")
	require.NoError(t, err)
	assert.Empty(t, chat.Messages, "failed send leaves no tentative message behind")
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	seedChat(f.store, "c1", inbound("m1", "c1", false))
	f.client.On("MarkRead", mock.Anything, "c1").
		Return(models.Chat{ID: "c1", Messages: []models.Message{inbound("m1", "c1", true)}}, nil).Once()

	rec := f.do(http.MethodPut, "/chats/c1/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.store.UnreadCount())
}

func TestMarkReadUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	seedChat(f.store, "c1", inbound("m1", "c1", false))
	f.client.On("MarkRead", mock.Anything, "c1").
		Return(nil, errors.New("boom")).Once()

	rec := f.do(http.MethodPut, "/chats/c1/read", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 1, f.store.UnreadCount(), "badge unchanged until the server confirms")
}

func TestOpenChatUnknown(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/chats/missing/open", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpenCloseChat(t *testing.T) {
	f := newFixture(t)
	seedChat(f.store, "c1", inbound("m1", "c1", false))
	f.client.On("MarkRead", mock.Anything, "c1").
		Return(models.Chat{ID: "c1", Messages: []models.Message{inbound("m1", "c1", true)}}, nil).Once()

	rec := f.do(http.MethodPost, "/chats/c1/open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c1", f.store.ActiveChat())

	rec = f.do(http.MethodPost, "/chats/c1/close", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.store.ActiveChat())
}

func TestTypingAccepted(t *testing.T) {
	f := newFixture(t)
	// transport is down; typing is best-effort and still accepted
	rec := f.do(http.MethodPost, "/chats/c1/typing", gin.H{"isTyping": true})
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestUnread(t *testing.T) {
	f := newFixture(t)
	seedChat(f.store, "c1", inbound("m1", "c1", false))

	rec := f.do(http.MethodGet, "/unread", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Unread int `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Unread)
}
