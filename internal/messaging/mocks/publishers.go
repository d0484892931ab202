package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/NathanielJL/polsim-sub002/internal/messaging"
)

// Mock SessionUpdatePublisher
type SessionUpdatePublisher struct {
	mock.Mock
}

func (m *SessionUpdatePublisher) PublishTurnCompleted(ctx context.Context, payload messaging.TurnCompletedPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// Mock ElectionResultPublisher
type ElectionResultPublisher struct {
	mock.Mock
}

func (m *ElectionResultPublisher) PublishElectionCompleted(ctx context.Context, payload messaging.ElectionCompletedPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

// Mock NewsEventPublisher
type NewsEventPublisher struct {
	mock.Mock
}

func (m *NewsEventPublisher) PublishNewsEvent(ctx context.Context, payload messaging.NewsEventPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
