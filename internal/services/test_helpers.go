package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"metrolog/pkg/contracts/events"
)

// MockEventPublisher is a mock for the EventPublisher interface
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Broadcast(ctx context.Context, messageType events.MessageType, sessionID string, data interface{}) error {
	args := m.Called(ctx, messageType, sessionID, data)
	return args.Error(0)
}
