package toml

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	sessionsFileMode = 0o600
	sessionsDirMode  = 0o700
	tempFilePattern  = ".sessions-*.toml.tmp"
)

// errCorrupt marks a sessions file that exists but cannot be decoded.
var errCorrupt = errors.New("sessions file is corrupt")

// Store keeps every account's session record in a single TOML file.
type Store struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionStore = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sessions path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve sessions path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Store{path: absPath, mu: lockForPath(absPath)}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Load(ctx context.Context, username string) (domain.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.readSchema()
	if err != nil {
		if errors.Is(err, errCorrupt) {
			return domain.SessionRecord{}, domain.ErrSessionNotFound
		}
		return domain.SessionRecord{}, err
	}
	// Save refuses a newer file version, so Load cannot report it as absent.
	if err := file.validateVersion(); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	for _, entry := range file.Sessions {
		if entry.Metadata.Username != username {
			continue
		}

		record, err := fromSchema(entry)
		if err != nil {
			return domain.SessionRecord{}, domain.ErrSessionNotFound
		}
		return record, nil
	}

	return domain.SessionRecord{}, domain.ErrSessionNotFound
}

func (s *Store) Save(ctx context.Context, record domain.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.Username == "" {
		return errors.New("save session: username is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.readSchema()
	if err != nil {
		if !errors.Is(err, errCorrupt) {
			return err
		}
		file = fileSchema{}
	}
	if err := file.validateVersion(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	file.applyDefaults()

	encoded := toSchema(record)
	updated := false
	for i := range file.Sessions {
		if file.Sessions[i].Metadata.Username == record.Username {
			file.Sessions[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Sessions = append(file.Sessions, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.writeSchema(file); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	return nil
}

func (s *Store) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("%w: read sessions file: %w", domain.ErrStoreUnavailable, err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("%w: %w", errCorrupt, err)
	}
	file.applyDefaults()

	return file, nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.path), sessionsDirMode); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode sessions file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp sessions file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp sessions file: %w", err)
	}

	if err := tempFile.Chmod(sessionsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp sessions file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp sessions file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp sessions file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(s.path, sessionsFileMode); err != nil {
		return fmt.Errorf("chmod sessions file: %w", err)
	}

	return nil
}

func toSchema(record domain.SessionRecord) sessionSchema {
	version := record.SchemaVersion
	if version == 0 {
		version = domain.CurrentSessionSchemaVersion
	}

	return sessionSchema{
		StateBlob: base64.StdEncoding.EncodeToString(record.StateBlob),
		Metadata: metadataSchema{
			Username:       record.Username,
			CreatedAt:      formatTime(record.CreatedAt),
			LastUpdated:    formatTime(record.LastUpdated),
			LastValidated:  formatTime(record.LastValidated),
			LastFreshLogin: formatTime(record.LastFreshLogin),
			LoginCount:     record.LoginCount,
			SchemaVersion:  version,
			DeviceIdentifiers: deviceSchema{
				DeviceID:        record.Device.DeviceID,
				PhoneID:         record.Device.PhoneID,
				UUID:            record.Device.UUID,
				ClientSessionID: record.Device.ClientSessionID,
				AdvertisingID:   record.Device.AdvertisingID,
			},
		},
	}
}

func fromSchema(entry sessionSchema) (domain.SessionRecord, error) {
	if entry.Metadata.SchemaVersion > domain.CurrentSessionSchemaVersion {
		return domain.SessionRecord{}, fmt.Errorf("unsupported session schema version %d", entry.Metadata.SchemaVersion)
	}

	blob, err := base64.StdEncoding.DecodeString(entry.StateBlob)
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("decode state blob: %w", err)
	}
	if len(blob) == 0 {
		blob = nil
	}

	createdAt, err := parseTime(entry.Metadata.CreatedAt)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	lastUpdated, err := parseTime(entry.Metadata.LastUpdated)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	lastValidated, err := parseTime(entry.Metadata.LastValidated)
	if err != nil {
		return domain.SessionRecord{}, err
	}
	lastFreshLogin, err := parseTime(entry.Metadata.LastFreshLogin)
	if err != nil {
		return domain.SessionRecord{}, err
	}

	version := entry.Metadata.SchemaVersion
	if version == 0 {
		version = domain.CurrentSessionSchemaVersion
	}

	return domain.SessionRecord{
		StateBlob:      blob,
		Username:       entry.Metadata.Username,
		CreatedAt:      createdAt,
		LastUpdated:    lastUpdated,
		LastValidated:  lastValidated,
		LastFreshLogin: lastFreshLogin,
		LoginCount:     entry.Metadata.LoginCount,
		Device: domain.DeviceIdentifiers{
			DeviceID:        entry.Metadata.DeviceIdentifiers.DeviceID,
			PhoneID:         entry.Metadata.DeviceIdentifiers.PhoneID,
			UUID:            entry.Metadata.DeviceIdentifiers.UUID,
			ClientSessionID: entry.Metadata.DeviceIdentifiers.ClientSessionID,
			AdvertisingID:   entry.Metadata.DeviceIdentifiers.AdvertisingID,
		},
		SchemaVersion: version,
	}, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}

	return parsed, nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
