package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bnema/pacer/internal/domain"
	"github.com/bnema/pacer/internal/ports"
	"github.com/google/uuid"
)

type SessionConfig struct {
	Username string
	Policy   domain.SessionPolicy
}

// SessionService owns the single authenticated session of one account.
type SessionService struct {
	username    string
	policy      domain.SessionPolicy
	store       ports.SessionStore
	client      ports.PlatformClient
	credentials ports.CredentialSource
	clock       ports.Clock
	newID       func() string
	logger      *slog.Logger

	mu          sync.Mutex
	handle      *Handle
	validatedAt time.Time
	probed      bool
}

// Handle is an authenticated platform session ready for requests.
type Handle struct {
	client     ports.PlatformClient
	record     domain.SessionRecord
	acquiredAt time.Time
	freshLogin bool
}

type SessionInfo struct {
	Username           string
	State              domain.SessionState
	CreatedAt          time.Time
	LastUpdated        time.Time
	LastValidated      time.Time
	LastFreshLogin     time.Time
	Age                time.Duration
	ExpiresAt          time.Time
	LoginCount         int
	LoginRateLimited   bool
	NextLoginAllowedAt time.Time
	DeviceID           string
	Active             bool
}

func NewSessionService(cfg SessionConfig, store ports.SessionStore, client ports.PlatformClient, credentials ports.CredentialSource, clock ports.Clock, logger *slog.Logger) *SessionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &SessionService{
		username:    cfg.Username,
		policy:      cfg.Policy,
		store:       store,
		client:      client,
		credentials: credentials,
		clock:       clock,
		newID:       uuid.NewString,
		logger:      logger.With("username", cfg.Username),
	}
}

// AcquireHandle returns a validated session, reusing the stored one when
// the platform still accepts it. A fresh login happens only when
// allowFreshLogin is set and the login interval has elapsed.
func (s *SessionService) AcquireHandle(ctx context.Context, allowFreshLogin bool) (*Handle, error) {
	return s.acquire(ctx, allowFreshLogin, true)
}

// AcquireHandleBypassValidation trusts a fresh stored session without
// probing the platform.
func (s *SessionService) AcquireHandleBypassValidation(ctx context.Context, allowFreshLogin bool) (*Handle, error) {
	return s.acquire(ctx, allowFreshLogin, false)
}

// ForceRefresh logs in unconditionally, ignoring the login interval.
func (s *SessionService) ForceRefresh(ctx context.Context) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.loadRecord(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("forcing session refresh")
	return s.freshLogin(ctx, previous)
}

func (s *SessionService) Info(ctx context.Context) (SessionInfo, error) {
	if err := ctx.Err(); err != nil {
		return SessionInfo{}, err
	}

	s.mu.Lock()
	active := s.handle != nil
	s.mu.Unlock()

	record, err := s.loadRecord(ctx)
	if err != nil {
		return SessionInfo{}, err
	}

	now := s.clock.Now()
	info := SessionInfo{
		Username:           s.username,
		State:              record.State(now, s.policy.MaxAge),
		CreatedAt:          record.CreatedAt,
		LastUpdated:        record.LastUpdated,
		LastValidated:      record.LastValidated,
		LastFreshLogin:     record.LastFreshLogin,
		LoginCount:         record.LoginCount,
		LoginRateLimited:   record.LoginRateLimited(now, s.policy.MinLoginInterval),
		NextLoginAllowedAt: record.NextLoginAllowedAt(s.policy.MinLoginInterval),
		DeviceID:           record.Device.DeviceID,
		Active:             active,
	}
	if !record.CreatedAt.IsZero() {
		info.Age = now.Sub(record.CreatedAt)
		if s.policy.MaxAge > 0 {
			info.ExpiresAt = record.CreatedAt.Add(s.policy.MaxAge)
		}
	}

	return info, nil
}

func (s *SessionService) acquire(ctx context.Context, allowFreshLogin bool, probe bool) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if s.reusable(now, probe) {
		s.logger.Debug("reusing active session", "validated_at", s.validatedAt)
		return s.handle, nil
	}

	record, err := s.loadRecord(ctx)
	if err != nil {
		return nil, err
	}

	switch record.State(now, s.policy.MaxAge) {
	case domain.SessionStateValid:
		handle, err := s.resume(ctx, record, probe, now)
		if err == nil {
			return handle, nil
		}
		if !errors.Is(err, domain.ErrAuthRejected) {
			return nil, err
		}
		s.logger.Info("stored session rejected by platform", "error", err)
	case domain.SessionStateStale:
		s.logger.Info("stored session expired", "created_at", record.CreatedAt, "max_age", s.policy.MaxAge)
	default:
		s.logger.Info("no stored session")
	}

	if !allowFreshLogin {
		return nil, fmt.Errorf("acquire session: %w: fresh login not allowed", domain.ErrSessionExpired)
	}
	if record.LoginRateLimited(now, s.policy.MinLoginInterval) {
		next := record.NextLoginAllowedAt(s.policy.MinLoginInterval)
		s.logger.Warn("fresh login suppressed by login interval", "next_login_allowed_at", next)
		return nil, fmt.Errorf("acquire session: %w: next fresh login allowed at %s", domain.ErrSessionExpired, next.Format(time.RFC3339))
	}

	return s.freshLogin(ctx, record)
}

func (s *SessionService) reusable(now time.Time, probe bool) bool {
	if s.handle == nil || s.policy.RevalidateAfter <= 0 {
		return false
	}
	if probe && !s.probed {
		return false
	}

	return now.Sub(s.validatedAt) < s.policy.RevalidateAfter
}

func (s *SessionService) loadRecord(ctx context.Context) (domain.SessionRecord, error) {
	record, err := s.store.Load(ctx, s.username)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.SessionRecord{}, nil
		}
		return domain.SessionRecord{}, fmt.Errorf("load session: %w", err)
	}

	return record, nil
}

// resume restores a stored session. Returned errors wrapping
// domain.ErrAuthRejected mean the session is dead and a login may follow.
func (s *SessionService) resume(ctx context.Context, record domain.SessionRecord, probe bool, now time.Time) (*Handle, error) {
	if err := s.client.ImportState(ctx, record.StateBlob); err != nil {
		if errors.Is(err, domain.ErrAuthRejected) {
			return nil, err
		}
		return nil, classifyPlatformError("import session state", err)
	}

	if !probe {
		s.logger.Debug("trusting stored session without validation", "created_at", record.CreatedAt)
		return s.activate(record, now, false, false), nil
	}

	identity, err := s.client.IdentityProbe(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRejected) {
			return nil, err
		}
		return nil, classifyPlatformError("validate session", err)
	}

	record.LastValidated = now
	if record.LastUpdated.Before(record.CreatedAt) {
		record.LastUpdated = record.CreatedAt
	}
	if err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save validated session: %w", err)
	}

	s.logger.Info("stored session validated", "platform_user", identity.Username, "login_count", record.LoginCount)
	return s.activate(record, now, true, false), nil
}

func (s *SessionService) freshLogin(ctx context.Context, previous domain.SessionRecord) (*Handle, error) {
	credentials, err := s.credentials.Credentials(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("resolve credentials: %w: %w", domain.ErrAuthenticationFailure, err)
	}

	device := previous.Device
	if device.IsZero() {
		device = domain.NewDeviceIdentifiers(s.newID)
	}

	s.logger.Info("performing fresh login", "device_id", device.DeviceID, "previous_logins", previous.LoginCount)
	result, err := s.client.Login(ctx, credentials, device)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRejected) {
			return nil, fmt.Errorf("login: %w: %w", domain.ErrAuthenticationFailure, err)
		}
		return nil, classifyPlatformError("login", err)
	}
	if !result.Authenticated {
		return nil, fmt.Errorf("login: %w: platform did not authenticate %s", domain.ErrAuthenticationFailure, s.username)
	}

	blob, err := s.client.ExportState(ctx)
	if err != nil {
		return nil, classifyPlatformError("export session state", err)
	}

	now := s.clock.Now()
	record := domain.SessionRecord{
		StateBlob:      blob,
		Username:       s.username,
		CreatedAt:      now,
		LastUpdated:    now,
		LastValidated:  now,
		LastFreshLogin: now,
		LoginCount:     previous.LoginCount + 1,
		Device:         device,
		SchemaVersion:  domain.CurrentSessionSchemaVersion,
	}
	if err := s.store.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save session after login: %w", err)
	}

	s.logger.Info("fresh login succeeded", "login_count", record.LoginCount)
	return s.activate(record, now, true, true), nil
}

func (s *SessionService) activate(record domain.SessionRecord, now time.Time, probed bool, fresh bool) *Handle {
	s.handle = &Handle{client: s.client, record: record, acquiredAt: now, freshLogin: fresh}
	s.validatedAt = now
	s.probed = probed

	return s.handle
}

func (h *Handle) Username() string {
	return h.record.Username
}

// Record is the session record as of acquisition.
func (h *Handle) Record() domain.SessionRecord {
	return h.record
}

func (h *Handle) AcquiredAt() time.Time {
	return h.acquiredAt
}

// FreshLogin reports whether acquiring this handle required a new login.
func (h *Handle) FreshLogin() bool {
	return h.freshLogin
}

func (h *Handle) Do(ctx context.Context, request ports.Request) (ports.Response, error) {
	response, err := h.client.ExecuteRequest(ctx, request)
	if err != nil {
		return response, classifyPlatformError("execute request", err)
	}

	return response, nil
}

func (h *Handle) Identity(ctx context.Context) (ports.IdentitySummary, error) {
	identity, err := h.client.IdentityProbe(ctx)
	if err != nil {
		return ports.IdentitySummary{}, classifyPlatformError("identity", err)
	}

	return identity, nil
}
