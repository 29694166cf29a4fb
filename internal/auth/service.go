// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/propertynext/backend/internal/config"
	"github.com/propertynext/backend/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenReuse         = errors.New("token reuse detected")
	ErrEmailExists        = errors.New("email already exists")
	ErrDeviceLimit        = errors.New("active device limit reached")
	ErrDeviceMismatch     = errors.New("device fingerprint mismatch")
)

// AccountLockedError carries the lockout deadline so handlers can report
// how long the caller has to wait.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf(
		"account locked, try again in %d minute(s)",
		e.MinutesRemaining(),
	)
}

// MinutesRemaining rounds up so a lock with seconds left still reports a
// positive value.
func (e *AccountLockedError) MinutesRemaining() int {
	remaining := time.Until(e.Until)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}

type UserInfo struct {
	ID             string
	Email          string
	Name           string
	PasswordHash   string
	Role           string
	FailedAttempts int
	LockedUntil    *time.Time
	TokenVersion   int
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		email, passwordHash, name string,
	) (*UserInfo, error)
	RecordFailedLogin(
		ctx context.Context,
		userID string,
		maxAttempts int,
		lockout time.Duration,
	) (*LockoutState, error)
	ResetLoginFailures(ctx context.Context, userID string) error
	IncrementTokenVersion(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type Service struct {
	repo         Repository
	devices      DeviceRepository
	jwt          *JWTManager
	userProvider UserProvider
	redis        *redis.Client
	cfg          config.AuthConfig
	accessExpire time.Duration
}

func NewService(
	repo Repository,
	devices DeviceRepository,
	jwtManager *JWTManager,
	userProvider UserProvider,
	redisClient *redis.Client,
	cfg config.AuthConfig,
	accessExpire time.Duration,
) *Service {
	return &Service{
		repo:         repo,
		devices:      devices,
		jwt:          jwtManager,
		userProvider: userProvider,
		redis:        redisClient,
		cfg:          cfg,
		accessExpire: accessExpire,
	}
}

// AccessTokenTTL is the configured access token lifetime, used to size
// blacklist entries.
func (s *Service) AccessTokenTTL() time.Duration {
	return s.accessExpire
}

// Login authenticates a credential pair and enforces the account lockout
// window and the per-account active device cap before issuing tokens.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	user, err := s.userProvider.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			s.recordAttempt(ctx, req.Email, userAgent, ipAddress, false, "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user.PasswordHash == "" {
		// social-only accounts have no password to check
		s.recordAttempt(ctx, req.Email, userAgent, ipAddress, false, "no password set")
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if user.LockedUntil != nil && user.LockedUntil.After(now) {
		s.recordAttempt(ctx, req.Email, userAgent, ipAddress, false, "account locked")
		return nil, &AccountLockedError{Until: *user.LockedUntil}
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		state, recErr := s.userProvider.RecordFailedLogin(
			ctx,
			user.ID,
			s.cfg.MaxFailedLogins,
			s.cfg.LockoutDuration,
		)
		if recErr != nil {
			return nil, fmt.Errorf("record failed login: %w", recErr)
		}

		s.recordAttempt(ctx, req.Email, userAgent, ipAddress, false, "wrong password")

		if state.LockedUntil != nil && state.LockedUntil.After(now) {
			return nil, &AccountLockedError{Until: *state.LockedUntil}
		}

		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.userProvider.UpdatePassword(ctx, user.ID, newHash)
	}

	if user.FailedAttempts > 0 || user.LockedUntil != nil {
		if err := s.userProvider.ResetLoginFailures(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("reset login failures: %w", err)
		}
	}

	device, err := s.registerDevice(ctx, user.ID, userAgent, ipAddress)
	if err != nil {
		if errors.Is(err, ErrDeviceLimit) {
			s.recordAttempt(ctx, req.Email, userAgent, ipAddress, false, "device limit")
		}
		return nil, err
	}

	s.recordAttempt(ctx, req.Email, userAgent, ipAddress, true, "")

	return s.createAuthResponse(ctx, user, device, userAgent, ipAddress, "", nil)
}

// registerDevice enforces the active-device invariant: the fingerprint is
// either already registered (reactivate and touch), or there is room for it,
// or the configured cap policy decides between eviction and rejection.
func (s *Service) registerDevice(
	ctx context.Context,
	userID, userAgent, ipAddress string,
) (*UserDevice, error) {
	deviceID := core.DeviceFingerprint(userAgent, ipAddress)

	active, err := s.devices.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	known := false
	for _, d := range active {
		if d.DeviceID == deviceID {
			known = true
			break
		}
	}

	if !known && len(active) >= s.cfg.MaxActiveDevices {
		if !s.cfg.EvictOnDeviceCap {
			return nil, ErrDeviceLimit
		}

		evicted, evictErr := s.devices.DeactivateLeastRecentlyActive(
			ctx,
			userID,
		)
		if evictErr != nil {
			return nil, fmt.Errorf("evict device: %w", evictErr)
		}

		// the evicted device's sessions die with it
		//nolint:errcheck // best-effort cleanup
		_ = s.repo.RevokeByDeviceID(ctx, userID, evicted)

		slog.Info("evicted least recently active device",
			"user_id", userID,
			"device_id", evicted,
		)
	}

	device := &UserDevice{
		UserID:    userID,
		DeviceID:  deviceID,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if err := s.devices.Upsert(ctx, device); err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}

	return device, nil
}

func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Create(ctx, req.Email, passwordHash, req.Name)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	device, err := s.registerDevice(ctx, user.ID, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	return s.createAuthResponse(ctx, user, device, userAgent, ipAddress, "", nil)
}

func (s *Service) Refresh(
	ctx context.Context,
	refreshToken, userAgent, ipAddress string,
) (*AuthResponse, error) {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if storedToken.IsUsed {
		//nolint:errcheck // security revocation continues regardless
		_ = s.repo.RevokeByFamilyID(ctx, storedToken.FamilyID)
		return nil, ErrTokenReuse
	}

	if !storedToken.IsValid() {
		if storedToken.IsRevoked() {
			return nil, fmt.Errorf("refresh: %w", core.ErrTokenRevoked)
		}
		return nil, fmt.Errorf("refresh: %w", core.ErrTokenExpired)
	}

	if storedToken.DeviceID != core.DeviceFingerprint(userAgent, ipAddress) {
		return nil, ErrDeviceMismatch
	}

	user, err := s.userProvider.GetByID(ctx, storedToken.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	//nolint:errcheck // keep last_active fresh, non-critical
	_ = s.devices.Touch(ctx, user.ID, storedToken.DeviceID)

	device := &UserDevice{
		UserID:     user.ID,
		DeviceID:   storedToken.DeviceID,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
		IsActive:   true,
		LastActive: time.Now(),
	}

	return s.createAuthResponse(
		ctx,
		user,
		device,
		userAgent,
		ipAddress,
		storedToken.FamilyID,
		&storedToken.ID,
	)
}

func (s *Service) Logout(
	ctx context.Context,
	refreshToken, userID string,
) error {
	tokenHash := core.HashToken(refreshToken)

	storedToken, err := s.repo.FindByHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find token: %w", err)
	}

	if storedToken.UserID != userID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	if err := s.repo.RevokeByID(ctx, storedToken.ID); err != nil &&
		!errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}

	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if err := s.repo.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens: %w", err)
	}

	if err := s.devices.DeactivateAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("deactivate devices: %w", err)
	}

	if err := s.userProvider.IncrementTokenVersion(ctx, userID); err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	return nil
}

func (s *Service) RevokeAccessToken(
	ctx context.Context,
	jti string,
	expiresAt time.Time,
) error {
	key := "blacklist:" + jti
	ttl := time.Until(expiresAt)

	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}

	return nil
}

func (s *Service) IsAccessTokenBlacklisted(
	ctx context.Context,
	jti string,
) (bool, error) {
	key := "blacklist:" + jti

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}

	return exists > 0, nil
}

func (s *Service) GetActiveSessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	tokens, err := s.repo.GetActiveSessionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			ID:        t.ID,
			DeviceID:  t.DeviceID,
			UserAgent: t.UserAgent,
			IPAddress: t.IPAddress,
			CreatedAt: t.CreatedAt,
			ExpiresAt: t.ExpiresAt,
		})
	}

	return sessions, nil
}

func (s *Service) GetActiveDevices(
	ctx context.Context,
	userID string,
) ([]DeviceResponse, error) {
	devices, err := s.devices.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get devices: %w", err)
	}

	responses := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		responses = append(responses, DeviceResponse{
			DeviceID:   d.DeviceID,
			UserAgent:  d.UserAgent,
			IsActive:   d.IsActive,
			LastActive: d.LastActive,
		})
	}

	return responses, nil
}

func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	token, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("find session: %w", err)
	}

	if token.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	if err := s.repo.RevokeByID(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *Service) ChangePassword(
	ctx context.Context,
	userID, currentPassword, newPassword string,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	valid, _, err := core.VerifyPasswordWithRehash(
		currentPassword,
		user.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return ErrInvalidCredentials
	}

	newHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.userProvider.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.LogoutAll(ctx, userID); err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	return nil
}

func (s *Service) ValidateTokenVersion(
	ctx context.Context,
	userID string,
	tokenVersion int,
) error {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if tokenVersion < user.TokenVersion {
		return fmt.Errorf("validate token version: %w", core.ErrTokenRevoked)
	}

	return nil
}

func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	user, err := s.userProvider.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}, nil
}

func (s *Service) recordAttempt(
	ctx context.Context,
	email, userAgent, ipAddress string,
	success bool,
	failureReason string,
) {
	attempt := &LoginAttempt{
		Email:     email,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		Success:   success,
	}
	if failureReason != "" {
		attempt.FailureReason = &failureReason
	}

	if err := s.repo.RecordLoginAttempt(ctx, attempt); err != nil {
		slog.Warn("failed to record login attempt",
			"email", email,
			"error", err,
		)
	}
}

func (s *Service) createAuthResponse(
	ctx context.Context,
	user *UserInfo,
	device *UserDevice,
	userAgent, ipAddress, familyID string,
	oldTokenID *string,
) (*AuthResponse, error) {
	accessToken, err := s.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		DeviceID:     device.DeviceID,
		TokenVersion: user.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refreshData, err := s.jwt.CreateRefreshToken(user.ID, familyID)
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	newTokenID := uuid.New().String()

	refreshTokenEntity := &RefreshToken{
		ID:        newTokenID,
		UserID:    user.ID,
		TokenHash: refreshData.Hash,
		FamilyID:  refreshData.FamilyID,
		DeviceID:  device.DeviceID,
		ExpiresAt: refreshData.ExpiresAt,
		UserAgent: userAgent,
		IPAddress: ipAddress,
	}

	if err := s.repo.Create(ctx, refreshTokenEntity); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	if oldTokenID != nil {
		//nolint:errcheck // best-effort token chain tracking
		_ = s.repo.MarkAsUsed(ctx, *oldTokenID, newTokenID)
	}

	now := time.Now()

	return &AuthResponse{
		User: UserResponse{
			ID:        user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      user.Role,
			CreatedAt: now,
		},
		Device: DeviceResponse{
			DeviceID:   device.DeviceID,
			UserAgent:  device.UserAgent,
			IsActive:   true,
			LastActive: device.LastActive,
		},
		Tokens: TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshData.Token,
			TokenType:    "Bearer",
			ExpiresIn:    int(s.accessExpire / time.Second),
			ExpiresAt:    now.Add(s.accessExpire),
		},
	}, nil
}
