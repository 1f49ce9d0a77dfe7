package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "pacer:session:"

type Options struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// Store keeps one JSON document per account under pacer:session:<username>.
type Store struct {
	client goredis.UniversalClient
}

var _ ports.SessionStore = (*Store)(nil)

func NewStore(opts Options) (*Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is empty")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return NewStoreWithClient(client), nil
}

func NewStoreWithClient(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Load(ctx context.Context, username string) (domain.SessionRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionRecord{}, err
	}

	data, err := s.client.Get(ctx, key(username)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.SessionRecord{}, ctxErr
		}
		return domain.SessionRecord{}, fmt.Errorf("%w: get session: %w", domain.ErrStoreUnavailable, err)
	}

	record, err := decode(data)
	if err != nil || record.Username != username {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}

	return record, nil
}

func (s *Store) Save(ctx context.Context, record domain.SessionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record.Username == "" {
		return errors.New("save session: username is empty")
	}

	data, err := encode(record)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, key(record.Username), data, 0).Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: set session: %w", domain.ErrStoreUnavailable, err)
	}

	return nil
}

func key(username string) string {
	return keyPrefix + username
}

type document struct {
	StateBlob []byte   `json:"state_blob"`
	Metadata  metadata `json:"metadata"`
}

type metadata struct {
	Username          string    `json:"username"`
	CreatedAt         time.Time `json:"created_at"`
	LastUpdated       time.Time `json:"last_updated"`
	LastValidated     time.Time `json:"last_validated,omitzero"`
	LastFreshLogin    time.Time `json:"last_fresh_login,omitzero"`
	LoginCount        int       `json:"login_count"`
	SchemaVersion     int       `json:"schema_version"`
	DeviceIdentifiers device    `json:"device_identifiers"`
}

type device struct {
	DeviceID        string `json:"device_id"`
	PhoneID         string `json:"phone_id"`
	UUID            string `json:"uuid"`
	ClientSessionID string `json:"client_session_id"`
	AdvertisingID   string `json:"advertising_id"`
}

func encode(record domain.SessionRecord) ([]byte, error) {
	version := record.SchemaVersion
	if version == 0 {
		version = domain.CurrentSessionSchemaVersion
	}

	return json.Marshal(document{
		StateBlob: record.StateBlob,
		Metadata: metadata{
			Username:          record.Username,
			CreatedAt:         utc(record.CreatedAt),
			LastUpdated:       utc(record.LastUpdated),
			LastValidated:     utc(record.LastValidated),
			LastFreshLogin:    utc(record.LastFreshLogin),
			LoginCount:        record.LoginCount,
			SchemaVersion:     version,
			DeviceIdentifiers: device(record.Device),
		},
	})
}

func decode(data []byte) (domain.SessionRecord, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.SessionRecord{}, err
	}
	if doc.Metadata.SchemaVersion > domain.CurrentSessionSchemaVersion {
		return domain.SessionRecord{}, fmt.Errorf("unsupported session schema version %d", doc.Metadata.SchemaVersion)
	}

	version := doc.Metadata.SchemaVersion
	if version == 0 {
		version = domain.CurrentSessionSchemaVersion
	}
	blob := doc.StateBlob
	if len(blob) == 0 {
		blob = nil
	}

	return domain.SessionRecord{
		StateBlob:      blob,
		Username:       doc.Metadata.Username,
		CreatedAt:      doc.Metadata.CreatedAt,
		LastUpdated:    doc.Metadata.LastUpdated,
		LastValidated:  doc.Metadata.LastValidated,
		LastFreshLogin: doc.Metadata.LastFreshLogin,
		LoginCount:     doc.Metadata.LoginCount,
		Device:         domain.DeviceIdentifiers(doc.Metadata.DeviceIdentifiers),
		SchemaVersion:  version,
	}, nil
}

func utc(value time.Time) time.Time {
	if value.IsZero() {
		return time.Time{}
	}

	return value.UTC()
}
