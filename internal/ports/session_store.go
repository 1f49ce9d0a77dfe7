package ports

import (
	"context"

	"github.com/bnema/pacer/internal/domain"
)

// SessionStore persists one SessionRecord per username. Load returns
// domain.ErrSessionNotFound for missing, corrupt or incompatible records and
// wraps domain.ErrStoreUnavailable for I/O failures.
type SessionStore interface {
	Load(ctx context.Context, username string) (domain.SessionRecord, error)
	Save(ctx context.Context, record domain.SessionRecord) error
}
