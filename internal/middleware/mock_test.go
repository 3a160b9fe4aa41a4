package middleware

import (
	"context"

	"github.com/hitoshi/btcdash/internal/model"
)

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

var _ SessionFinder = (*mockSessionRepository)(nil)

type mockStatusRecorder struct {
	statuses []int
}

func (m *mockStatusRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

var _ StatusRecorder = (*mockStatusRecorder)(nil)
