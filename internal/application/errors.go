package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/pacer/internal/domain"
)

// classifyPlatformError maps a collaborator failure onto the domain error
// kinds. Auth rejections outside validation mean the session died mid-use.
func classifyPlatformError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, domain.ErrSessionExpired):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, domain.ErrAuthRejected):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrSessionExpired, err)
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrTransient),
		errors.Is(err, domain.ErrAuthenticationFailure),
		errors.Is(err, domain.ErrStoreUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrTransient, err)
	}
}
