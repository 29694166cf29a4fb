// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propertynext/backend/internal/config"
	"github.com/propertynext/backend/internal/core"
)

type fakeTokenRepo struct {
	tokens        map[string]*RefreshToken
	attempts      []LoginAttempt
	revokedFamily string
	revokedDevice string
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*RefreshToken)}
}

func (f *fakeTokenRepo) Create(_ context.Context, t *RefreshToken) error {
	f.tokens[t.ID] = t
	return nil
}

func (f *fakeTokenRepo) FindByHash(
	_ context.Context,
	hash string,
) (*RefreshToken, error) {
	for _, t := range f.tokens {
		if t.TokenHash == hash {
			return t, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeTokenRepo) FindByID(
	_ context.Context,
	id string,
) (*RefreshToken, error) {
	if t, ok := f.tokens[id]; ok {
		return t, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeTokenRepo) MarkAsUsed(
	_ context.Context,
	id, replacedByID string,
) error {
	if t, ok := f.tokens[id]; ok {
		t.MarkAsUsed(replacedByID)
		return nil
	}
	return core.ErrNotFound
}

func (f *fakeTokenRepo) RevokeByID(_ context.Context, id string) error {
	if t, ok := f.tokens[id]; ok {
		t.Revoke()
		return nil
	}
	return core.ErrNotFound
}

func (f *fakeTokenRepo) RevokeByFamilyID(
	_ context.Context,
	familyID string,
) error {
	f.revokedFamily = familyID
	for _, t := range f.tokens {
		if t.FamilyID == familyID {
			t.Revoke()
		}
	}
	return nil
}

func (f *fakeTokenRepo) RevokeAllForUser(
	_ context.Context,
	userID string,
) error {
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.Revoke()
		}
	}
	return nil
}

func (f *fakeTokenRepo) RevokeByDeviceID(
	_ context.Context,
	userID, deviceID string,
) error {
	f.revokedDevice = deviceID
	for _, t := range f.tokens {
		if t.UserID == userID && t.DeviceID == deviceID {
			t.Revoke()
		}
	}
	return nil
}

func (f *fakeTokenRepo) GetActiveSessionsForUser(
	_ context.Context,
	userID string,
) ([]RefreshToken, error) {
	var sessions []RefreshToken
	for _, t := range f.tokens {
		if t.UserID == userID && t.IsValid() {
			sessions = append(sessions, *t)
		}
	}
	return sessions, nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeTokenRepo) RecordLoginAttempt(
	_ context.Context,
	attempt *LoginAttempt,
) error {
	f.attempts = append(f.attempts, *attempt)
	return nil
}

type fakeDeviceRepo struct {
	devices map[string]*UserDevice // keyed by device fingerprint
	evicted []string
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*UserDevice)}
}

func (f *fakeDeviceRepo) ActiveForUser(
	_ context.Context,
	userID string,
) ([]UserDevice, error) {
	var active []UserDevice
	for _, d := range f.devices {
		if d.UserID == userID && d.IsActive {
			active = append(active, *d)
		}
	}
	return active, nil
}

func (f *fakeDeviceRepo) Upsert(_ context.Context, device *UserDevice) error {
	if existing, ok := f.devices[device.DeviceID]; ok {
		existing.IsActive = true
		existing.LastActive = time.Now()
		*device = *existing
		return nil
	}
	device.ID = uuid.New().String()
	device.IsActive = true
	device.LastActive = time.Now()
	device.CreatedAt = time.Now()
	copied := *device
	f.devices[device.DeviceID] = &copied
	return nil
}

func (f *fakeDeviceRepo) Deactivate(
	_ context.Context,
	userID, deviceID string,
) error {
	if d, ok := f.devices[deviceID]; ok && d.UserID == userID {
		d.IsActive = false
		return nil
	}
	return core.ErrNotFound
}

func (f *fakeDeviceRepo) DeactivateLeastRecentlyActive(
	_ context.Context,
	userID string,
) (string, error) {
	var oldest *UserDevice
	for _, d := range f.devices {
		if d.UserID != userID || !d.IsActive {
			continue
		}
		if oldest == nil || d.LastActive.Before(oldest.LastActive) {
			oldest = d
		}
	}
	if oldest == nil {
		return "", core.ErrNotFound
	}
	oldest.IsActive = false
	f.evicted = append(f.evicted, oldest.DeviceID)
	return oldest.DeviceID, nil
}

func (f *fakeDeviceRepo) DeactivateAllForUser(
	_ context.Context,
	userID string,
) error {
	for _, d := range f.devices {
		if d.UserID == userID {
			d.IsActive = false
		}
	}
	return nil
}

func (f *fakeDeviceRepo) Touch(_ context.Context, _, deviceID string) error {
	if d, ok := f.devices[deviceID]; ok {
		d.LastActive = time.Now()
	}
	return nil
}

type fakeUserProvider struct {
	users          map[string]*UserInfo // keyed by email
	maxAttempts    int
	lockout        time.Duration
	failedRecorded int
	resets         int
}

func newFakeUserProvider() *fakeUserProvider {
	return &fakeUserProvider{users: make(map[string]*UserInfo)}
}

func (f *fakeUserProvider) addUser(email, password string) *UserInfo {
	hash, err := core.HashPassword(password)
	if err != nil {
		panic(err)
	}
	u := &UserInfo{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: hash,
		Role:         "customer",
	}
	f.users[email] = u
	return u
}

func (f *fakeUserProvider) GetByEmail(
	_ context.Context,
	email string,
) (*UserInfo, error) {
	if u, ok := f.users[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeUserProvider) GetByID(
	_ context.Context,
	id string,
) (*UserInfo, error) {
	for _, u := range f.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUserProvider) Create(
	_ context.Context,
	email, passwordHash, name string,
) (*UserInfo, error) {
	if _, ok := f.users[email]; ok {
		return nil, core.ErrDuplicateKey
	}
	u := &UserInfo{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         "customer",
	}
	f.users[email] = u
	copied := *u
	return &copied, nil
}

func (f *fakeUserProvider) RecordFailedLogin(
	_ context.Context,
	userID string,
	maxAttempts int,
	lockout time.Duration,
) (*LockoutState, error) {
	f.failedRecorded++
	f.maxAttempts = maxAttempts
	f.lockout = lockout
	for _, u := range f.users {
		if u.ID != userID {
			continue
		}
		u.FailedAttempts++
		if u.FailedAttempts >= maxAttempts {
			until := time.Now().Add(lockout)
			u.LockedUntil = &until
		}
		return &LockoutState{
			FailedAttempts: u.FailedAttempts,
			LockedUntil:    u.LockedUntil,
		}, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeUserProvider) ResetLoginFailures(
	_ context.Context,
	userID string,
) error {
	f.resets++
	for _, u := range f.users {
		if u.ID == userID {
			u.FailedAttempts = 0
			u.LockedUntil = nil
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeUserProvider) IncrementTokenVersion(
	_ context.Context,
	userID string,
) error {
	for _, u := range f.users {
		if u.ID == userID {
			u.TokenVersion++
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeUserProvider) UpdatePassword(
	_ context.Context,
	userID, passwordHash string,
) error {
	for _, u := range f.users {
		if u.ID == userID {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return core.ErrNotFound
}

func testJWTManager(t *testing.T) *JWTManager {
	t.Helper()

	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	require.NoError(t, GenerateKeyPair(privatePath, publicPath))

	manager, err := NewJWTManager(config.JWTConfig{
		PrivateKeyPath:     privatePath,
		PublicKeyPath:      publicPath,
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 7 * 24 * time.Hour,
		Issuer:             "propertynext",
		Audience:           "propertynext-api",
	})
	require.NoError(t, err)

	return manager
}

type serviceFixture struct {
	svc     *Service
	tokens  *fakeTokenRepo
	devices *fakeDeviceRepo
	users   *fakeUserProvider
}

func newServiceFixture(t *testing.T, cfg config.AuthConfig) *serviceFixture {
	t.Helper()

	tokens := newFakeTokenRepo()
	devices := newFakeDeviceRepo()
	users := newFakeUserProvider()

	svc := NewService(
		tokens,
		devices,
		testJWTManager(t),
		users,
		nil,
		cfg,
		15*time.Minute,
	)

	return &serviceFixture{
		svc:     svc,
		tokens:  tokens,
		devices: devices,
		users:   users,
	}
}

func defaultAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		MaxFailedLogins:  5,
		LockoutDuration:  30 * time.Minute,
		MaxActiveDevices: 2,
	}
}

const (
	testUA = "Mozilla/5.0 (X11; Linux x86_64)"
	testIP = "203.0.113.7"
)

func TestLoginSuccess(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	resp, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, testUA, testIP)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.NotEmpty(t, resp.Tokens.RefreshToken)
	assert.Equal(t, "Bearer", resp.Tokens.TokenType)
	assert.Equal(t, core.DeviceFingerprint(testUA, testIP), resp.Device.DeviceID)

	require.Len(t, f.tokens.attempts, 1)
	assert.True(t, f.tokens.attempts[0].Success)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	}, testUA, testIP)

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, f.users.failedRecorded)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())

	_, err := f.svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	}, testUA, testIP)

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, f.tokens.attempts, 1)
	assert.False(t, f.tokens.attempts[0].Success)
}

func TestLoginLockoutAfterMaxFailures(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := f.svc.Login(ctx, LoginRequest{
			Email:    "alice@example.com",
			Password: "wrong",
		}, testUA, testIP)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// the fifth failure crosses the threshold and reports the lock
	_, err := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	}, testUA, testIP)

	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Positive(t, locked.MinutesRemaining())

	// correct password is refused while the window is open
	_, err = f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, testUA, testIP)
	assert.ErrorAs(t, err, &locked)
}

func TestLoginResetsFailureCounter(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		//nolint:errcheck
		_, _ = f.svc.Login(ctx, LoginRequest{
			Email:    "alice@example.com",
			Password: "wrong",
		}, testUA, testIP)
	}

	_, err := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, testUA, testIP)

	require.NoError(t, err)
	assert.Equal(t, 1, f.users.resets)
	assert.Zero(t, f.users.users["alice@example.com"].FailedAttempts)
}

func TestLoginDeviceLimitRejected(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()

	_, err := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, "device-one", "10.0.0.1")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, "device-two", "10.0.0.2")
	require.NoError(t, err)

	// third distinct fingerprint is refused
	_, err = f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, "device-three", "10.0.0.3")
	assert.ErrorIs(t, err, ErrDeviceLimit)

	active, _ := f.devices.ActiveForUser(ctx, f.users.users["alice@example.com"].ID)
	assert.Len(t, active, 2)
}

func TestLoginKnownDeviceBypassesCap(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()

	for _, creds := range [][2]string{
		{"device-one", "10.0.0.1"},
		{"device-two", "10.0.0.2"},
	} {
		_, err := f.svc.Login(ctx, LoginRequest{
			Email:    "alice@example.com",
			Password: "correct horse battery",
		}, creds[0], creds[1])
		require.NoError(t, err)
	}

	// repeating an already-registered fingerprint is always allowed
	_, err := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, "device-one", "10.0.0.1")
	require.NoError(t, err)

	active, _ := f.devices.ActiveForUser(ctx, f.users.users["alice@example.com"].ID)
	assert.Len(t, active, 2)
}

func TestLoginDeviceLimitEviction(t *testing.T) {
	cfg := defaultAuthConfig()
	cfg.EvictOnDeviceCap = true
	f := newServiceFixture(t, cfg)
	f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()
	for i, creds := range [][2]string{
		{"device-one", "10.0.0.1"},
		{"device-two", "10.0.0.2"},
		{"device-three", "10.0.0.3"},
	} {
		_, err := f.svc.Login(ctx, LoginRequest{
			Email:    "alice@example.com",
			Password: "correct horse battery",
		}, creds[0], creds[1])
		require.NoError(t, err, "login %d", i)
	}

	active, _ := f.devices.ActiveForUser(ctx, f.users.users["alice@example.com"].ID)
	assert.Len(t, active, 2, "cap holds even with eviction enabled")

	require.Len(t, f.devices.evicted, 1)
	assert.Equal(t,
		core.DeviceFingerprint("device-one", "10.0.0.1"),
		f.devices.evicted[0],
		"least recently active device is the one evicted",
	)
	assert.Equal(t, f.devices.evicted[0], f.tokens.revokedDevice,
		"evicted device's refresh tokens are revoked")
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()
	login, err := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, testUA, testIP)
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(
		ctx,
		login.Tokens.RefreshToken,
		testUA,
		testIP,
	)
	require.NoError(t, err)
	assert.NotEqual(t,
		login.Tokens.RefreshToken,
		refreshed.Tokens.RefreshToken,
	)
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()
	login, err := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, testUA, testIP)
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, login.Tokens.RefreshToken, testUA, testIP)
	require.NoError(t, err)

	// replaying the consumed token burns the whole family
	_, err = f.svc.Refresh(ctx, login.Tokens.RefreshToken, testUA, testIP)
	assert.ErrorIs(t, err, ErrTokenReuse)
	assert.NotEmpty(t, f.tokens.revokedFamily)
}

func TestRefreshDeviceMismatch(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()
	login, err := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, testUA, testIP)
	require.NoError(t, err)

	_, err = f.svc.Refresh(
		ctx,
		login.Tokens.RefreshToken,
		"stolen-device-agent",
		"198.51.100.9",
	)
	assert.ErrorIs(t, err, ErrDeviceMismatch)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	f.users.addUser("alice@example.com", "correct horse battery")

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "another password",
		Name:     "Other Alice",
	}, testUA, testIP)

	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLogoutAllBumpsTokenVersion(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	u := f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()
	_, err := f.svc.Login(ctx, LoginRequest{
		Email:    "alice@example.com",
		Password: "correct horse battery",
	}, testUA, testIP)
	require.NoError(t, err)

	require.NoError(t, f.svc.LogoutAll(ctx, u.ID))

	assert.Equal(t, 1, f.users.users["alice@example.com"].TokenVersion)

	sessions, err := f.svc.GetActiveSessions(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	devices, err := f.svc.GetActiveDevices(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestAccountLockedErrorMinutes(t *testing.T) {
	until := time.Now().Add(90 * time.Second)
	err := &AccountLockedError{Until: until}
	assert.Equal(t, 2, err.MinutesRemaining())

	past := &AccountLockedError{Until: time.Now().Add(-time.Minute)}
	assert.Zero(t, past.MinutesRemaining())
}

func TestValidateTokenVersion(t *testing.T) {
	f := newServiceFixture(t, defaultAuthConfig())
	u := f.users.addUser("alice@example.com", "correct horse battery")

	ctx := context.Background()
	require.NoError(t, f.svc.ValidateTokenVersion(ctx, u.ID, 0))

	require.NoError(t, f.users.IncrementTokenVersion(ctx, u.ID))
	err := f.svc.ValidateTokenVersion(ctx, u.ID, 0)
	assert.True(t, errors.Is(err, core.ErrTokenRevoked))
}
