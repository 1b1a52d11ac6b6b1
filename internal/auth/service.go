// Inventra | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inventra/auth-service/internal/core"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrEmailExists        = errors.New("email already exists")
	ErrResetTokenInvalid  = errors.New("reset token invalid")
	ErrResetTokenExpired  = errors.New("reset token expired")
)

// UserInfo is the credential-store view of an account the auth flows
// need. ResetExpiresAt is only populated on reset-digest lookups.
type UserInfo struct {
	ID             string
	Email          string
	Name           string
	Phone          string
	PasswordHash   string
	Role           string
	Active         bool
	CreatedAt      time.Time
	ResetExpiresAt *time.Time
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	GetByResetDigest(ctx context.Context, digest string) (*UserInfo, error)
	Create(
		ctx context.Context,
		email, passwordHash, name, phone string,
	) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	// ConsumeResetGrant installs the new password and clears the grant as
	// one atomic write; it reports core.ErrNotFound when no live grant
	// remains for the user.
	ConsumeResetGrant(ctx context.Context, userID, passwordHash string) error
	SetInSession(ctx context.Context, userID string, inSession bool) error
	SetResetGrant(
		ctx context.Context,
		userID, digest string,
		expiresAt time.Time,
	) error
	ClearResetGrant(ctx context.Context, userID string) error
}

// Notifier delivers the reset and password-changed emails. The auth core
// only decides when to call it and what token to embed; delivery failures
// never fail the operation that triggered them.
type Notifier interface {
	SendPasswordReset(ctx context.Context, email, name, token string) error
	SendPasswordChanged(ctx context.Context, email, name string) error
}

type Service struct {
	jwt          *JWTManager
	userProvider UserProvider
	notifier     Notifier
	resetTTL     time.Duration
}

func NewService(
	jwt *JWTManager,
	userProvider UserProvider,
	notifier Notifier,
	resetTTL time.Duration,
) *Service {
	return &Service{
		jwt:          jwt,
		userProvider: userProvider,
		notifier:     notifier,
		resetTTL:     resetTTL,
	}
}

// Login verifies credentials and mints a session token. An unknown email
// and a wrong password produce the same error, and the unknown-email path
// still burns a hash verification so the two are not separable by timing.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*AuthResponse, error) {
	user, err := s.userProvider.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !user.Active {
		return nil, ErrAccountDisabled
	}

	valid, newHash := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if !valid {
		return nil, ErrInvalidCredentials
	}

	if newHash != "" {
		//nolint:errcheck // best-effort rehash upgrade
		_ = s.userProvider.UpdatePassword(ctx, user.ID, newHash)
	}

	token, expiresAt, err := s.jwt.CreateSessionToken(SessionTokenClaims{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("create session token: %w", err)
	}

	// Presence hint only; a failed write must not fail the login.
	if err := s.userProvider.SetInSession(ctx, user.ID, true); err != nil {
		slog.Warn("failed to set in_session flag",
			"user_id", user.ID,
			"error", err,
		)
	}

	return &AuthResponse{
		User: toUserResponse(user),
		Token: TokenResponse{
			Token:     token,
			TokenType: "Bearer",
			ExpiresIn: int(time.Until(expiresAt) / time.Second),
			ExpiresAt: expiresAt,
		},
	}, nil
}

// Register creates a seller account. Role elevation only happens through
// the admin surface; the request never carries a role.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*UserResponse, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Create(
		ctx,
		req.Email,
		passwordHash,
		req.Name,
		req.Phone,
	)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// RequestPasswordReset issues a single-use reset grant and emails the
// token. It reports success even when the email is unknown so callers
// cannot probe which addresses are registered; in that case nothing is
// persisted or dispatched.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userProvider.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}

	if !user.Active {
		return nil
	}

	token, err := core.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	digest := core.HashToken(token)
	expiresAt := time.Now().Add(s.resetTTL)

	// Overwrites any outstanding grant: last writer wins, the previous
	// token is dead from here on.
	if err := s.userProvider.SetResetGrant(ctx, user.ID, digest, expiresAt); err != nil {
		return fmt.Errorf("store reset grant: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
		slog.Error("failed to send password reset email",
			"user_id", user.ID,
			"error", err,
		)
	}

	return nil
}

// CompleteReset consumes a reset grant and installs the new password.
// An expired grant is cleared on the failed attempt so the same token
// cannot be retried.
func (s *Service) CompleteReset(
	ctx context.Context,
	token, newPassword string,
) error {
	digest := core.HashToken(token)

	user, err := s.userProvider.GetByResetDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("find reset grant: %w", err)
	}

	if user.ResetExpiresAt == nil || time.Now().After(*user.ResetExpiresAt) {
		if clearErr := s.userProvider.ClearResetGrant(ctx, user.ID); clearErr != nil {
			slog.Warn("failed to clear expired reset grant",
				"user_id", user.ID,
				"error", clearErr,
			)
		}
		return ErrResetTokenExpired
	}

	passwordHash, err := core.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	// One write installs the password and kills the grant together; a
	// grant that raced away in the meantime consumes nothing.
	if err := s.userProvider.ConsumeResetGrant(ctx, user.ID, passwordHash); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrResetTokenInvalid
		}
		return fmt.Errorf("consume reset grant: %w", err)
	}

	// The password change has already taken effect; delivery failure is
	// logged and swallowed.
	if err := s.notifier.SendPasswordChanged(ctx, user.Email, user.Name); err != nil {
		slog.Error("failed to send password changed email",
			"user_id", user.ID,
			"error", err,
		)
	}

	return nil
}

// Logout flips the presence flag. The bearer token stays cryptographically
// valid until its own expiry; this is a UX signal, not a revocation.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.userProvider.SetInSession(ctx, userID, false); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return err
		}
		slog.Warn("failed to clear in_session flag",
			"user_id", userID,
			"error", err,
		)
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

	valid, _ := core.VerifyPasswordWithRehash(
		currentPassword,
		user.PasswordHash,
	)
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

	if err := s.notifier.SendPasswordChanged(ctx, user.Email, user.Name); err != nil {
		slog.Error("failed to send password changed email",
			"user_id", user.ID,
			"error", err,
		)
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

	resp := toUserResponse(user)
	return &resp, nil
}

func toUserResponse(u *UserInfo) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
