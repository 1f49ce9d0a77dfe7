package domain

import (
	"strings"
	"time"
)

const CurrentSessionSchemaVersion = 1

type SessionState string

const (
	SessionStateAbsent SessionState = "absent"
	SessionStateValid  SessionState = "valid"
	SessionStateStale  SessionState = "stale"
)

// DeviceIdentifiers are generated once per installation and presented on
// every login so the account keeps a stable device fingerprint.
type DeviceIdentifiers struct {
	DeviceID        string
	PhoneID         string
	UUID            string
	ClientSessionID string
	AdvertisingID   string
}

func NewDeviceIdentifiers(newID func() string) DeviceIdentifiers {
	deviceSeed := strings.ReplaceAll(newID(), "-", "")
	if len(deviceSeed) > 16 {
		deviceSeed = deviceSeed[:16]
	}

	return DeviceIdentifiers{
		DeviceID:        "android-" + deviceSeed,
		PhoneID:         newID(),
		UUID:            newID(),
		ClientSessionID: newID(),
		AdvertisingID:   newID(),
	}
}

func (d DeviceIdentifiers) IsZero() bool {
	return d == DeviceIdentifiers{}
}

type SessionRecord struct {
	StateBlob      []byte
	Username       string
	CreatedAt      time.Time
	LastUpdated    time.Time
	LastValidated  time.Time
	LastFreshLogin time.Time
	LoginCount     int
	Device         DeviceIdentifiers
	SchemaVersion  int
}

// IsFresh reports whether the record is younger than maxAge. A non-positive
// maxAge disables age expiry.
func (r SessionRecord) IsFresh(now time.Time, maxAge time.Duration) bool {
	if r.CreatedAt.IsZero() {
		return false
	}
	if maxAge <= 0 {
		return true
	}

	return now.Sub(r.CreatedAt) < maxAge
}

// LoginRateLimited reports whether a fresh login happened less than
// minInterval ago.
func (r SessionRecord) LoginRateLimited(now time.Time, minInterval time.Duration) bool {
	if r.LastFreshLogin.IsZero() || minInterval <= 0 {
		return false
	}

	return now.Sub(r.LastFreshLogin) < minInterval
}

// NextLoginAllowedAt is the zero time when a fresh login is allowed right away.
func (r SessionRecord) NextLoginAllowedAt(minInterval time.Duration) time.Time {
	if r.LastFreshLogin.IsZero() || minInterval <= 0 {
		return time.Time{}
	}

	return r.LastFreshLogin.Add(minInterval)
}

func (r SessionRecord) State(now time.Time, maxAge time.Duration) SessionState {
	if len(r.StateBlob) == 0 {
		return SessionStateAbsent
	}
	if !r.IsFresh(now, maxAge) {
		return SessionStateStale
	}

	return SessionStateValid
}

type SessionPolicy struct {
	MaxAge           time.Duration
	MinLoginInterval time.Duration
	RevalidateAfter  time.Duration
}

func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{
		MaxAge:           30 * 24 * time.Hour,
		MinLoginInterval: 24 * time.Hour,
		RevalidateAfter:  10 * time.Minute,
	}
}
