package sessionerrors

import (
	"context"
)

// Repository defines persistence for session errors
type Repository interface {
	Save(ctx context.Context, e *SessionError) error
	ListBySession(ctx context.Context, tenant string, sessionID string, limit int) ([]*SessionError, error)
}
