package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-sync/internal/models"
)

// APIClientMock mocks the remote marketplace API.
type APIClientMock struct {
	mock.Mock
}

func (m *APIClientMock) ListChats(ctx context.Context) ([]models.Chat, error) {
	args := m.Called(ctx)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *APIClientMock) CreateOrGetChat(ctx context.Context, propertyID, ownerID string) (models.Chat, error) {
	args := m.Called(ctx, propertyID, ownerID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *APIClientMock) SendMessage(ctx context.Context, chatID, content string) (models.Chat, error) {
	args := m.Called(ctx, chatID, content)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *APIClientMock) MarkRead(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *APIClientMock) FetchStatus(ctx context.Context, userIDs []string) ([]models.PresenceStatus, error) {
	args := m.Called(ctx, userIDs)
	var statuses []models.PresenceStatus
	if val := args.Get(0); val != nil {
		statuses = val.([]models.PresenceStatus)
	}
	return statuses, args.Error(1)
}
