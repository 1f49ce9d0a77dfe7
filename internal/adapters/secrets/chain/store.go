package chain

import (
	"context"
	"errors"
	"fmt"

	envstore "github.com/bnema/pacer/internal/adapters/secrets/env"
	filestore "github.com/bnema/pacer/internal/adapters/secrets/file"
	passstore "github.com/bnema/pacer/internal/adapters/secrets/pass"
	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
)

// Store consults its layers in order. Reads return the first hit, writes go
// to the first writable layer and deletes reach every writable layer.
type Store struct {
	layers []ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var errNoLayers = errors.New("secret chain has no layers")

func NewStore(layers ...ports.SecretStore) (*Store, error) {
	if len(layers) == 0 {
		return nil, errNoLayers
	}
	for i, layer := range layers {
		if layer == nil {
			return nil, fmt.Errorf("secret layer %d is nil", i)
		}
	}

	return &Store{layers: layers}, nil
}

// NewDefault reads env and dotenv first, then pass, then files under fileRoot.
func NewDefault(envPrefix string, envFiles []string, fileRoot string) (*Store, error) {
	return NewStore(
		envstore.NewStore(envPrefix, envFiles...),
		passstore.NewStore(),
		filestore.NewStore(fileRoot),
	)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for i, layer := range s.layers {
		value, err := layer.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if shouldStop(err) {
			return "", err
		}
		errs = append(errs, fmt.Errorf("layer %d get: %w", i, err))
	}

	return "", errors.Join(errs...)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for i, layer := range s.layers {
		err := layer.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if shouldStop(err) {
			return err
		}
		if errors.Is(err, domain.ErrSecretReadOnly) {
			continue
		}
		errs = append(errs, fmt.Errorf("layer %d put: %w", i, err))
	}
	if len(errs) == 0 {
		return fmt.Errorf("put secret %q: %w", key, domain.ErrSecretReadOnly)
	}

	return errors.Join(errs...)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	deleted := false
	for i, layer := range s.layers {
		err := layer.Delete(ctx, key)
		if err == nil {
			deleted = true
			continue
		}
		if shouldStop(err) {
			return err
		}
		if errors.Is(err, domain.ErrSecretReadOnly) {
			continue
		}
		errs = append(errs, fmt.Errorf("layer %d delete: %w", i, err))
	}
	if deleted {
		return nil
	}

	return errors.Join(errs...)
}

func shouldStop(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
