package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redisAddrEnv = "PACER_TEST_REDIS_ADDR"

func sampleRecord(username string) domain.SessionRecord {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return domain.SessionRecord{
		StateBlob:      []byte(`{"cookies":[]}`),
		Username:       username,
		CreatedAt:      created,
		LastUpdated:    created.Add(time.Minute),
		LastFreshLogin: created,
		LoginCount:     2,
		Device:         domain.DeviceIdentifiers{DeviceID: "android-abc", UUID: "u-1"},
		SchemaVersion:  domain.CurrentSessionSchemaVersion,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	record := sampleRecord("alice")
	record.LastValidated = record.CreatedAt.Add(time.Hour)

	data, err := encode(record)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"device_identifiers":{"device_id":"android-abc"`)

	got, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestDecodeRejectsNewerSchemaVersion(t *testing.T) {
	t.Parallel()

	_, err := decode([]byte(`{"state_blob":"","metadata":{"username":"alice","schema_version":5}}`))
	require.Error(t, err)
}

func TestNewStoreRequiresAddress(t *testing.T) {
	t.Parallel()

	_, err := NewStore(Options{})
	require.Error(t, err)
}

func TestStoreUnreachableServerIsStoreUnavailable(t *testing.T) {
	t.Parallel()

	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	store := NewStoreWithClient(client)
	t.Cleanup(func() { _ = store.Close() })

	_, err := store.Load(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	err = store.Save(context.Background(), sampleRecord("alice"))
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestStoreRoundTripAgainstRedis(t *testing.T) {
	addr := os.Getenv(redisAddrEnv)
	if addr == "" {
		t.Skipf("%s not set", redisAddrEnv)
	}

	store, err := NewStore(Options{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	username := "pacer-test-" + uuid.NewString()
	ctx := context.Background()
	t.Cleanup(func() { _ = store.client.Del(context.Background(), key(username)).Err() })

	_, err = store.Load(ctx, username)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)

	record := sampleRecord(username)
	require.NoError(t, store.Save(ctx, record))

	got, err := store.Load(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, record, got)

	require.NoError(t, store.client.Set(ctx, key(username), "not json", 0).Err())
	_, err = store.Load(ctx, username)
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}
