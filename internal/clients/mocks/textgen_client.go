package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/NathanielJL/polsim-sub002/internal/clients"
)

// Mock TextGenClient
type TextGenClient struct {
	mock.Mock
}

func (m *TextGenClient) GenerateEventText(ctx context.Context, eventCtx clients.EventContext) (string, error) {
	args := m.Called(ctx, eventCtx)
	return args.String(0), args.Error(1)
}

func (m *TextGenClient) JudgeEvent(ctx context.Context, eventCtx clients.EventContext) (*clients.EventJudgment, error) {
	args := m.Called(ctx, eventCtx)
	judgment, _ := args.Get(0).(*clients.EventJudgment)
	return judgment, args.Error(1)
}
