package toml

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(username string) domain.SessionRecord {
	created := time.Date(2026, 3, 1, 9, 30, 0, 123456789, time.UTC)
	return domain.SessionRecord{
		StateBlob:      []byte{0x00, 0x01, 0xfe, 0xff, '{', '}'},
		Username:       username,
		CreatedAt:      created,
		LastUpdated:    created.Add(time.Hour),
		LastValidated:  created.Add(2 * time.Hour),
		LastFreshLogin: created,
		LoginCount:     3,
		Device: domain.DeviceIdentifiers{
			DeviceID:        "android-0123456789abcdef",
			PhoneID:         "phone-id",
			UUID:            "uuid",
			ClientSessionID: "client-session",
			AdvertisingID:   "advertising",
		},
		SchemaVersion: domain.CurrentSessionSchemaVersion,
	}
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sessions.toml")
	store, err := NewStore(path)
	require.NoError(t, err)
	return store, path
}

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	alice := sampleRecord("alice")
	bob := sampleRecord("bob")
	bob.LoginCount = 1

	require.NoError(t, store.Save(context.Background(), alice))
	require.NoError(t, store.Save(context.Background(), bob))

	got, err := store.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	got, err = store.Load(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, bob, got)
}

func TestStoreSaveReplacesExistingRecord(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	record := sampleRecord("alice")
	require.NoError(t, store.Save(context.Background(), record))

	record.LoginCount = 4
	record.StateBlob = []byte("refreshed")
	require.NoError(t, store.Save(context.Background(), record))

	got, err := store.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, record, got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "[[sessions]]"))
}

func TestStoreSaveCreatesParentDirectoryAndEnforcesPermissions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "pacer", "sessions.toml")
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), sampleRecord("alice")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestStoreLoadNotFoundCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
		username string
	}{
		{name: "missing file", username: "alice"},
		{name: "corrupt toml", contents: "version = [not toml", username: "alice"},
		{
			name:     "newer record version",
			contents: "version = 1\n[[sessions]]\nstate_blob = \"\"\n[sessions.metadata]\nusername = \"alice\"\nschema_version = 7\n",
			username: "alice",
		},
		{
			name:     "invalid blob encoding",
			contents: "version = 1\n[[sessions]]\nstate_blob = \"%%%\"\n[sessions.metadata]\nusername = \"alice\"\n",
			username: "alice",
		},
		{
			name:     "username mismatch",
			contents: "version = 1\n[[sessions]]\nstate_blob = \"\"\n[sessions.metadata]\nusername = \"bob\"\n",
			username: "alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, path := newTestStore(t)
			if tt.contents != "" {
				require.NoError(t, os.WriteFile(path, []byte(tt.contents), 0o600))
			}

			_, err := store.Load(context.Background(), tt.username)
			require.ErrorIs(t, err, domain.ErrSessionNotFound)
			assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
		})
	}
}

func TestStoreLoadIOFailureIsStoreUnavailable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "alice")
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestStoreSaveIOFailureIsStoreUnavailable(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o600))

	store, err := NewStore(filepath.Join(blocker, "sessions.toml"))
	require.NoError(t, err)

	err = store.Save(context.Background(), sampleRecord("alice"))
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestStoreSaveOverwritesCorruptFile(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("garbage = ["), 0o600))

	record := sampleRecord("alice")
	require.NoError(t, store.Save(context.Background(), record))

	got, err := store.Load(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, record, got)
}

func TestStoreNewerFileVersionIsUnavailableForLoadAndSave(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	contents := "version = 2\n[[sessions]]\nstate_blob = \"\"\n[sessions.metadata]\nusername = \"alice\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	_, loadErr := store.Load(context.Background(), "alice")
	require.ErrorIs(t, loadErr, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, loadErr, domain.ErrSessionNotFound)

	saveErr := store.Save(context.Background(), sampleRecord("alice"))
	require.ErrorIs(t, saveErr, domain.ErrStoreUnavailable)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, contents, string(raw))
}

func TestStoreSaveRefusesNewerFileVersion(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	require.NoError(t, os.WriteFile(path, []byte("version = 2\n"), 0o600))

	err := store.Save(context.Background(), sampleRecord("alice"))
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorContains(t, err, "unsupported sessions schema version 2")
}

func TestStoreSerializedTOMLLayout(t *testing.T) {
	t.Parallel()

	store, path := newTestStore(t)
	require.NoError(t, store.Save(context.Background(), sampleRecord("alice")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	assert.Contains(t, content, "version = 1")
	assert.Contains(t, content, "[[sessions]]")
	assert.Contains(t, content, "[sessions.metadata]")
	assert.Contains(t, content, "[sessions.metadata.device_identifiers]")
	assert.Contains(t, content, "state_blob = 'AAH+/3t9'")
	assert.Contains(t, content, "last_fresh_login = '2026-03-01T09:30:00.123456789Z'")
}

func TestStoreCanceledContextReturnsContextError(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Save(ctx, sampleRecord("alice")), context.Canceled)
	_, err := store.Load(ctx, "alice")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreSaveRejectsEmptyUsername(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	require.Error(t, store.Save(context.Background(), domain.SessionRecord{}))
}

func TestStoreConcurrentSavesAcrossInstancesPreserveAllRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sessions.toml")
	newStore := func() *Store {
		store, err := NewStore(path)
		require.NoError(t, err)
		return store
	}

	storeA := newStore()
	storeB := newStore()

	const perStoreWrites = 50
	start := make(chan struct{})
	errCh := make(chan error, perStoreWrites*2)
	var wg sync.WaitGroup
	wg.Add(2)

	write := func(store *Store, prefix string) {
		defer wg.Done()
		<-start
		for i := 0; i < perStoreWrites; i++ {
			errCh <- store.Save(context.Background(), sampleRecord(prefix+strconv.Itoa(i)))
		}
	}
	go write(storeA, "a-")
	go write(storeB, "b-")

	close(start)
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	for i := 0; i < perStoreWrites; i++ {
		_, err := storeA.Load(context.Background(), "a-"+strconv.Itoa(i))
		require.NoError(t, err)
		_, err = storeB.Load(context.Background(), "b-"+strconv.Itoa(i))
		require.NoError(t, err)
	}
}
