package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
)

// DefaultSecretRef is where an account's secret lives unless configured.
func DefaultSecretRef(username string) string {
	return "pacer://" + username + "/password"
}

// CredentialService resolves and manages the account secret in a
// SecretStore.
type CredentialService struct {
	username  string
	secretRef string
	store     ports.SecretStore
}

var _ ports.CredentialSource = (*CredentialService)(nil)

func NewCredentialService(username string, secretRef string, store ports.SecretStore) *CredentialService {
	if strings.TrimSpace(secretRef) == "" {
		secretRef = DefaultSecretRef(username)
	}

	return &CredentialService{username: username, secretRef: secretRef, store: store}
}

func (s *CredentialService) SecretRef() string {
	return s.secretRef
}

func (s *CredentialService) Credentials(ctx context.Context) (ports.Credentials, error) {
	if s.username == "" {
		return ports.Credentials{}, errors.New("account username is not configured")
	}

	secret, err := s.store.Get(ctx, s.secretRef)
	if err != nil {
		return ports.Credentials{}, fmt.Errorf("read secret %q: %w", s.secretRef, err)
	}
	if strings.TrimSpace(secret) == "" {
		return ports.Credentials{}, fmt.Errorf("read secret %q: %w", s.secretRef, domain.ErrSecretNotFound)
	}

	return ports.Credentials{Username: s.username, Secret: secret}, nil
}

// SetSecret stores value under secretRef. When previousRef differs, the old
// secret is deleted and the new one rolled back if that fails.
func (s *CredentialService) SetSecret(ctx context.Context, secretRef string, previousRef string, value string) error {
	if strings.TrimSpace(secretRef) == "" {
		return errors.New("secret key is required")
	}
	if value == "" {
		return errors.New("secret value is required")
	}

	if err := s.store.Put(ctx, secretRef, value); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}

	if previousRef == "" || previousRef == secretRef {
		return nil
	}

	if err := s.store.Delete(ctx, previousRef); err != nil {
		if rollbackErr := s.store.Delete(ctx, secretRef); rollbackErr != nil {
			return fmt.Errorf("delete previous secret and rollback stored secret: %w", errors.Join(err, rollbackErr))
		}
		return fmt.Errorf("delete previous secret: %w", err)
	}

	return nil
}

func (s *CredentialService) RemoveSecret(ctx context.Context) error {
	if err := s.store.Delete(ctx, s.secretRef); err != nil {
		return fmt.Errorf("delete secret %q: %w", s.secretRef, err)
	}

	return nil
}
