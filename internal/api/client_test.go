package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-sync/internal/models"
)

func TestListChats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/chats", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]models.Chat{{ID: "c1"}, {ID: "c2"}})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token", time.Second)
	chats, err := client.ListChats(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "c1", chats[0].ID)
}

func TestCreateOrGetChatSendsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chats", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body["propertyId"])
		assert.Equal(t, "owner", body["ownerId"])

		_ = json.NewEncoder(w).Encode(models.Chat{ID: "c1"})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token", time.Second)
	chat, err := client.CreateOrGetChat(context.Background(), "p1", "owner")
	require.NoError(t, err)
	assert.Equal(t, "c1", chat.ID)
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chats/c1/messages", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["content"])
		_ = json.NewEncoder(w).Encode(models.Chat{ID: "c1"})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token", time.Second)
	chat, err := client.SendMessage(context.Background(), "c1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "c1", chat.ID)
}

func TestMarkRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/chats/c1/read", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.Chat{ID: "c1"})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token", time.Second)
	chat, err := client.MarkRead(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", chat.ID)
}

func TestFetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/status", r.URL.Path)
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"u1"}, body["userIds"])
		_ = json.NewEncoder(w).Encode([]models.PresenceStatus{{UserID: "u1", Online: true}})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token", time.Second)
	statuses, err := client.FetchStatus(context.Background(), []string{"u1"})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Online)
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token", time.Second)
	_, err := client.ListChats(context.Background())
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token", time.Second)
	_, err := client.ListChats(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestMissingChatIDTreatedAsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.Chat{})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "token", time.Second)
	_, err := client.SendMessage(context.Background(), "c1", "hi")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
