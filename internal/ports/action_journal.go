package ports

import (
	"context"
	"time"

	"github.com/bnema/pacer/internal/domain"
)

// ActionJournal is a durable audit trail of action records.
type ActionJournal interface {
	Append(ctx context.Context, username string, record domain.ActionRecord) error
	Since(ctx context.Context, username string, since time.Time) ([]domain.ActionRecord, error)
}
