package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
	"github.com/joho/godotenv"
)

// Store resolves secrets from the process environment, falling back to
// dotenv files. It never writes.
type Store struct {
	prefix string
	files  []string
	lookup func(string) (string, bool)
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(prefix string, files ...string) *Store {
	return &Store{prefix: prefix, files: files, lookup: os.LookupEnv}
}

// VarName maps "pacer://alice/password" to PACER_ALICE_PASSWORD.
func (s *Store) VarName(key string) string {
	if _, rest, ok := strings.Cut(key, "://"); ok {
		key = rest
	}

	var b strings.Builder
	if s.prefix != "" {
		b.WriteString(strings.ToUpper(s.prefix))
		b.WriteByte('_')
	}
	lastUnderscore := true
	for _, r := range strings.ToUpper(strings.TrimSpace(key)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("secret key is empty")
	}

	name := s.VarName(key)
	if value, ok := s.lookup(name); ok && value != "" {
		return value, nil
	}

	values, err := s.readFiles()
	if err != nil {
		return "", err
	}
	if value, ok := values[name]; ok && value != "" {
		return value, nil
	}

	return "", fmt.Errorf("env secret %s: %w", name, domain.ErrSecretNotFound)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("env secret %s: %w", s.VarName(key), domain.ErrSecretReadOnly)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("env secret %s: %w", s.VarName(key), domain.ErrSecretReadOnly)
}

// readFiles merges the existing dotenv files; earlier files win.
func (s *Store) readFiles() (map[string]string, error) {
	merged := map[string]string{}
	for i := len(s.files) - 1; i >= 0; i-- {
		path := s.files[i]
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat env file %q: %w", path, err)
		}

		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("read env file %q: %w", path, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}

	return merged, nil
}
