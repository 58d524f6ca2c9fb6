package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	cryptoutil "hrcrm/internal/platform/crypto"
)

type StoreAPI interface {
	FindUserByEmail(ctx context.Context, email string) (AuthUser, error)
	FindUserByID(ctx context.Context, userID string) (AuthUser, error)
	PendingCredential(ctx context.Context, userID string) (PendingCredential, bool, error)
	MarkCredentialUsed(ctx context.Context, credentialID, userID string) error
	UpdateLastLogin(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, hash string) error
	UpdateMFASecret(ctx context.Context, userID string, secretEnc []byte) error
	SetMFAEnabled(ctx context.Context, userID string, enabled bool) error
	Profile(ctx context.Context, userID string) (Profile, error)
}

type Service struct {
	Store    StoreAPI
	Crypto   *cryptoutil.Service
	Secret   string
	TokenTTL time.Duration
	Issuer   string
	Now      func() time.Time
}

func NewService(store StoreAPI, crypto *cryptoutil.Service, secret string, ttl time.Duration) *Service {
	return &Service{Store: store, Crypto: crypto, Secret: secret, TokenTTL: ttl, Issuer: "HRCRM", Now: time.Now}
}

type LoginInput struct {
	Email    string
	Password string
	MFACode  string
}

type LoginResult struct {
	Token              string      `json:"token"`
	User               UserSummary `json:"user"`
	MustChangePassword bool        `json:"mustChangePassword"`
}

type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

const UserStatusActive = "ACTIVE"

func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	user, err := s.Store.FindUserByEmail(ctx, in.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}
	if err := CheckPassword(user.PasswordHash, in.Password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if user.Status != UserStatusActive {
		return LoginResult{}, ErrAccountInactive
	}
	if user.MFAEnabled {
		if in.MFACode == "" {
			return LoginResult{}, ErrMFARequired
		}
		secret, err := s.Crypto.DecryptString(user.MFASecretEnc)
		if err != nil || secret == "" || !totp.Validate(in.MFACode, secret) {
			return LoginResult{}, ErrMFAInvalid
		}
	}

	mustChange := user.MustChangePassword
	cred, pending, err := s.Store.PendingCredential(ctx, user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("credential lookup: %w", err)
	}
	if pending {
		if s.now().After(cred.ExpiresAt) {
			return LoginResult{}, ErrCredentialExpired
		}
		if err := s.Store.MarkCredentialUsed(ctx, cred.ID, user.ID); err != nil {
			return LoginResult{}, fmt.Errorf("mark credential used: %w", err)
		}
		mustChange = true
	}

	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Email: user.Email, Role: user.Role}, s.TokenTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}
	return LoginResult{
		Token:              token,
		User:               UserSummary{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role},
		MustChangePassword: mustChange,
	}, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Store.FindUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if err := CheckPassword(user.PasswordHash, current); err != nil {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(next); err != nil {
		return fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.Store.UpdatePassword(ctx, userID, hash)
}

func (s *Service) Me(ctx context.Context, userID string) (Profile, error) {
	return s.Store.Profile(ctx, userID)
}

type MFASetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

func (s *Service) SetupMFA(ctx context.Context, user UserContext) (MFASetup, error) {
	if !s.Crypto.Configured() {
		return MFASetup{}, ErrMFAUnavailable
	}
	account := user.Email
	if account == "" {
		account = user.UserID
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return MFASetup{}, fmt.Errorf("generate mfa secret: %w", err)
	}
	encrypted, err := s.Crypto.EncryptString(key.Secret())
	if err != nil {
		return MFASetup{}, fmt.Errorf("encrypt mfa secret: %w", err)
	}
	if err := s.Store.UpdateMFASecret(ctx, user.UserID, encrypted); err != nil {
		return MFASetup{}, fmt.Errorf("store mfa secret: %w", err)
	}
	return MFASetup{Secret: key.Secret(), OTPAuthURL: key.URL()}, nil
}

// VerifyMFA enables the second factor once the caller proves possession of the secret.
func (s *Service) VerifyMFA(ctx context.Context, userID, code string) error {
	if !s.Crypto.Configured() {
		return ErrMFAUnavailable
	}
	user, err := s.Store.FindUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	secret, err := s.Crypto.DecryptString(user.MFASecretEnc)
	if err != nil || secret == "" || !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return s.Store.SetMFAEnabled(ctx, userID, true)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
