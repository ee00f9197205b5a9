package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a mock for the EventPublisher interface
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, sessionID, eventType string, data interface{}) {
	m.Called(ctx, sessionID, eventType, data)
}

// EventTypes returns the event types published so far, in order
func (m *MockEventPublisher) EventTypes() []string {
	var types []string
	for _, call := range m.Calls {
		if call.Method == "Publish" {
			types = append(types, call.Arguments.String(2))
		}
	}
	return types
}
