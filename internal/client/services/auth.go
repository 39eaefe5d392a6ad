// Package services contains application services for the gophdiary client.
// This file defines the authentication service: sign-up verification with
// key generation, login and session restore, logout, password reset, device
// sessions, and management of the device's secret key.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophdiary/internal/client/client"
	"github.com/dmitrijs2005/gophdiary/internal/client/keyring"
	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/client/transport"
	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/cryptox"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// SignUpRequest is the input of RequestSignUpToken. Password is the raw
// password; it is hashed before it leaves the process.
type SignUpRequest struct {
	Name      string  `validate:"required,max=64"`
	Email     string  `validate:"required,email"`
	Password  string  `validate:"required,min=8"`
	AvatarURL *string `validate:"omitempty,url"`
}

// VerifyRequest carries the ticket returned by RequestSignUpToken and the
// pin the user received by e-mail.
type VerifyRequest struct {
	TokenKey       string `validate:"required"`
	Pin            string `validate:"required"`
	RecaptchaToken string
}

// ResetPasswordRequest completes the "forgot password" flow. TokenID and
// TemporaryPassword come from the reset e-mail.
type ResetPasswordRequest struct {
	Email             string `validate:"required,email"`
	TokenID           string `validate:"required"`
	TemporaryPassword string `validate:"required"`
	NewPassword       string `validate:"required,min=8"`
}

// UserUpdate changes profile fields of the current account; nil fields are
// left as is. Password is the raw new password.
type UserUpdate struct {
	Name      *string `validate:"omitempty,min=1,max=64"`
	Password  *string `validate:"omitempty,min=8"`
	AvatarURL *string `validate:"omitempty,url"`
}

// SessionSource exposes the current session to other services.
type SessionSource interface {
	Session() *models.Session
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - RequestSignUpToken: ask the server to e-mail a verification pin.
//   - Verify: confirm the pin; only then the key pair exists and the wrapped
//     private key is persisted on this device.
//   - Login / Restore: establish a session; the device key is not touched.
//   - Logout: end the session; the persisted wrapped key stays.
//   - RequestPasswordToken / ResetPassword / UpdateUser / ChangePassword:
//     account maintenance.
//   - ListSessions / RevokeSession: manage logged-in devices.
//   - ExportSecretKey / ImportSecretKey / IssueSecretKey / KeyStatus:
//     manage the device's wrapped key.
//
// All methods honor context cancellation/timeouts.
type AuthService interface {
	SessionSource

	RequestSignUpToken(ctx context.Context, req SignUpRequest) (string, error)
	Verify(ctx context.Context, req VerifyRequest) (*models.Registration, error)
	Login(ctx context.Context, email, password string) (*models.Session, error)
	Restore(ctx context.Context) (*models.Session, error)
	Logout(ctx context.Context) error

	RequestPasswordToken(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (bool, error)
	UpdateUser(ctx context.Context, upd UserUpdate) error
	ChangePassword(ctx context.Context, password string) error

	ListSessions(ctx context.Context) ([]models.ActiveSession, error)
	RevokeSession(ctx context.Context, id uuid.UUID) error

	ExportSecretKey(ctx context.Context) (string, error)
	ImportSecretKey(ctx context.Context, password, secretKey string) error
	IssueSecretKey(ctx context.Context, password string) (string, error)
	KeyStatus(ctx context.Context) (keyring.KeyStatus, error)
}

// authService is the concrete AuthService backed by a remote Client and the
// device keyring.
type authService struct {
	client   client.Client
	keys     *keyring.Manager
	log      logging.Logger
	validate *validator.Validate

	mu      sync.RWMutex
	session *models.Session
}

// NewAuthService constructs an AuthService bound to the given API client and keyring.
func NewAuthService(c client.Client, keys *keyring.Manager, log logging.Logger) AuthService {
	return &authService{
		client:   c,
		keys:     keys,
		log:      log,
		validate: validator.New(),
	}
}

// Session returns a copy of the current session, nil when logged out.
func (a *authService) Session() *models.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil
	}
	s := *a.session
	s.AccessToken = a.client.AccessToken()
	return &s
}

func (a *authService) setSession(s *models.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
}

func (a *authService) current() (*models.Session, error) {
	s := a.Session()
	if s == nil {
		return nil, common.ErrNotLoggedIn
	}
	return s, nil
}

func (a *authService) check(v any) error {
	if err := a.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	return nil
}

// RequestSignUpToken asks the server to send a verification pin. No key
// material exists at this point.
func (a *authService) RequestSignUpToken(ctx context.Context, req SignUpRequest) (string, error) {
	if err := a.check(req); err != nil {
		return "", err
	}

	ticket, err := a.client.RequestSignUpToken(ctx, models.SignUpTokenBody{
		Name:      req.Name,
		Email:     req.Email,
		Password:  cryptox.HashPassword(req.Password),
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return "", fmt.Errorf("request sign up token: %w", err)
	}
	return ticket, nil
}

// Verify creates the account. The key pair is generated in memory because
// the public key is part of the request, but the wrapped private key is
// persisted only once the server accepted the pin.
func (a *authService) Verify(ctx context.Context, req VerifyRequest) (*models.Registration, error) {
	if err := a.check(req); err != nil {
		return nil, err
	}

	kp, err := a.keys.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	wrapped, err := a.keys.Wrap(kp.PrivateKey, kp.PublicKey)
	if err != nil {
		return nil, err
	}

	err = a.client.CreateUser(ctx, models.CreateUserBody{
		UserPublicKey:  kp.PublicKey,
		TokenKey:       req.TokenKey,
		TokenPin:       req.Pin,
		RecaptchaToken: req.RecaptchaToken,
	})
	if err != nil {
		return nil, fmt.Errorf("verify sign up: %w", err)
	}

	if err := a.keys.Persist(ctx, wrapped); err != nil {
		return nil, err
	}
	a.log.Info(ctx, "account verified, device key stored")

	return &models.Registration{
		Account:    models.Account{PublicKey: kp.PublicKey},
		WrappedKey: wrapped,
	}, nil
}

// Login authenticates with the hashed password and loads the account.
func (a *authService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	if _, err := a.client.Login(ctx, email, cryptox.HashPassword(password)); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return a.establish(ctx)
}

// Restore resumes a session from the refresh cookie alone.
func (a *authService) Restore(ctx context.Context) (*models.Session, error) {
	if _, err := a.client.RefreshToken(ctx); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return a.establish(ctx)
}

func (a *authService) establish(ctx context.Context) (*models.Session, error) {
	acc, err := a.client.Me(ctx)
	if err != nil {
		a.client.ClearAccessToken()
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	token := a.client.AccessToken()
	a.setSession(&models.Session{
		Account:     *acc,
		AccessToken: token,
		ExpiresAt:   transport.ExpiresAt(token),
	})
	a.log.Info(ctx, "logged in", "user_id", acc.ID)
	return a.Session(), nil
}

// Logout ends the session on the server and forgets it locally even when
// the server call fails. The persisted wrapped key is left untouched.
func (a *authService) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	a.client.ClearAccessToken()
	a.setSession(nil)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	a.log.Info(ctx, "logged out")
	return nil
}

func (a *authService) RequestPasswordToken(ctx context.Context, email string) error {
	if err := a.validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if err := a.client.RequestPasswordToken(ctx, email); err != nil {
		return fmt.Errorf("request password token: %w", err)
	}
	return nil
}

func (a *authService) ResetPassword(ctx context.Context, req ResetPasswordRequest) (bool, error) {
	if err := a.check(req); err != nil {
		return false, err
	}
	err := a.client.ResetPassword(ctx, models.ResetPasswordBody{
		Email:             req.Email,
		TokenID:           req.TokenID,
		TemporaryPassword: req.TemporaryPassword,
		NewPassword:       cryptox.HashPassword(req.NewPassword),
	})
	if err != nil {
		return false, fmt.Errorf("reset password: %w", err)
	}
	return true, nil
}

func (a *authService) UpdateUser(ctx context.Context, upd UserUpdate) error {
	s, err := a.current()
	if err != nil {
		return err
	}
	if err := a.check(upd); err != nil {
		return err
	}
	if upd.Name == nil && upd.Password == nil && upd.AvatarURL == nil {
		return nil
	}

	body := models.UpdateUserBody{Name: upd.Name, AvatarURL: upd.AvatarURL}
	if upd.Password != nil {
		h := cryptox.HashPassword(*upd.Password)
		body.Password = &h
	}
	if err := a.client.UpdateUser(ctx, s.Account.ID, body); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	a.mu.Lock()
	if a.session != nil {
		if upd.Name != nil {
			a.session.Account.Name = *upd.Name
		}
		if upd.AvatarURL != nil {
			a.session.Account.AvatarURL = upd.AvatarURL
		}
	}
	a.mu.Unlock()
	return nil
}

func (a *authService) ChangePassword(ctx context.Context, password string) error {
	return a.UpdateUser(ctx, UserUpdate{Password: &password})
}

func (a *authService) ListSessions(ctx context.Context) ([]models.ActiveSession, error) {
	if _, err := a.current(); err != nil {
		return nil, err
	}
	sessions, err := a.client.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (a *authService) RevokeSession(ctx context.Context, id uuid.UUID) error {
	if _, err := a.current(); err != nil {
		return err
	}
	if err := a.client.RevokeSession(ctx, id); err != nil {
		return fmt.Errorf("revoke session %s: %w", id, err)
	}
	return nil
}

// ExportSecretKey returns the wrapped private key so the user can carry it
// to another device. It fails with common.ErrKeyMismatch when the stored
// key belongs to another account.
func (a *authService) ExportSecretKey(ctx context.Context) (string, error) {
	s, err := a.current()
	if err != nil {
		return "", err
	}
	wrapped, err := a.keys.Load(ctx)
	if err != nil {
		return "", err
	}
	if _, err := a.keys.Unwrap(*wrapped, s.Account.PublicKey); err != nil {
		return "", err
	}
	return wrapped.Ciphertext, nil
}

// ImportSecretKey replaces the device key with one exported elsewhere. The
// password is checked against the server first, and the key must unwrap
// with the account public key.
func (a *authService) ImportSecretKey(ctx context.Context, password, secretKey string) error {
	s, err := a.reauthenticate(ctx, password)
	if err != nil {
		return err
	}

	wrapped := models.WrappedKey{PublicKey: s.Account.PublicKey, Ciphertext: secretKey}
	if _, err := a.keys.Unwrap(wrapped, s.Account.PublicKey); err != nil {
		return err
	}
	if err := a.keys.Persist(ctx, wrapped); err != nil {
		return err
	}
	a.log.Info(ctx, "device key imported", "user_id", s.Account.ID)
	return nil
}

// IssueSecretKey replaces the device key with a newly generated private key
// wrapped with the account public key, and returns it for backup. Posts
// written under the previous key are not re-encrypted and stop being
// readable with the new one.
func (a *authService) IssueSecretKey(ctx context.Context, password string) (string, error) {
	s, err := a.reauthenticate(ctx, password)
	if err != nil {
		return "", err
	}

	kp, err := a.keys.GenerateKeyPair()
	if err != nil {
		return "", err
	}
	wrapped, err := a.keys.Wrap(kp.PrivateKey, s.Account.PublicKey)
	if err != nil {
		return "", err
	}
	if err := a.keys.Persist(ctx, wrapped); err != nil {
		return "", err
	}
	a.log.Warn(ctx, "new device key issued; posts under the previous key are not re-encrypted", "user_id", s.Account.ID)
	return wrapped.Ciphertext, nil
}

func (a *authService) KeyStatus(ctx context.Context) (keyring.KeyStatus, error) {
	s, err := a.current()
	if err != nil {
		return keyring.KeyStatusAbsent, err
	}
	return a.keys.Status(ctx, s.Account.PublicKey)
}

// reauthenticate confirms the password of the current account by logging
// in again. A wrong password is reported as common.ErrUnauthorized.
func (a *authService) reauthenticate(ctx context.Context, password string) (*models.Session, error) {
	s, err := a.current()
	if err != nil {
		return nil, err
	}
	if _, err := a.client.Login(ctx, s.Account.Email, cryptox.HashPassword(password)); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("re-authenticate: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("re-authenticate: %w", err)
	}
	return a.Session(), nil
}
