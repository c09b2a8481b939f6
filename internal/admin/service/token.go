package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/mail"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/cryptox"
	"github.com/wardenhq/warden/pkg/idx"
	"github.com/wardenhq/warden/pkg/jwtx"
	"github.com/wardenhq/warden/pkg/slogx"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike,
	// so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled is returned for a correct password on a
	// deactivated account.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrInvalidRefreshToken covers unknown, revoked, and expired refresh
	// tokens; the caller must re-authenticate.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrInvalidResetToken covers unknown, used, and expired reset tokens.
	ErrInvalidResetToken = errors.New("invalid reset token")
)

const passwordResetTTL = time.Hour

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenService issues and rotates credentials. Refresh tokens are opaque
// random values stored only as SHA-256 fingerprints; access tokens are
// short-lived EdDSA JWTs.
type TokenService struct {
	store  store.Store
	signer *jwtx.Signer
	perms  *PermissionService
	audit  *AuditService
	mailer mail.Mailer

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetURL   string
}

type TokenServiceConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// ResetURL is the base link embedded in password reset emails.
	ResetURL string
}

func NewTokenService(st store.Store, signer *jwtx.Signer, perms *PermissionService,
	audit *AuditService, mailer mail.Mailer, cfg TokenServiceConfig) *TokenService {

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}

	return &TokenService{
		store:      st,
		signer:     signer,
		perms:      perms,
		audit:      audit,
		mailer:     mailer,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		resetURL:   cfg.ResetURL,
	}
}

// Login verifies credentials and opens a new session. Multiple concurrent
// sessions per user are allowed; logging in does not revoke earlier ones.
func (s *TokenService) Login(ctx context.Context, email, password, userAgent, ip string) (TokenPair, error) {
	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn comparable time so a miss is not distinguishable by latency.
			_ = cryptox.VerifyPassword(password, dummyHash)
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		s.audit.LogActivity(ctx, "", "login_failed", "user", email, ip)
		return TokenPair{}, ErrInvalidCredentials
	}

	if !user.Active {
		return TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.openSession(ctx, s.store, user, userAgent, ip)
	if err != nil {
		return TokenPair{}, err
	}

	now := time.Now().UTC()
	if err := s.store.Users().TouchLastLogin(ctx, user.ID, now); err != nil {
		slogx.FromContext(ctx).Warn("touch last login failed", "user_id", user.ID, "err", err)
	}

	s.audit.LogActivity(ctx, user.ID.String(), "login", "user", user.Email, ip)
	return pair, nil
}

// Refresh rotates a refresh token: the presented session is revoked and a
// successor created in a single transaction, so a token redeems at most
// once. Presenting an already-rotated token fails; a stolen-then-replayed
// token therefore surfaces as a failed refresh for the legitimate client.
func (s *TokenService) Refresh(ctx context.Context, refreshToken, userAgent, ip string) (TokenPair, error) {
	fingerprint := cryptox.FingerprintToken(refreshToken)

	sess, err := s.store.Sessions().GetByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, ErrInvalidRefreshToken
		}
		return TokenPair{}, fmt.Errorf("lookup session: %w", err)
	}

	now := time.Now().UTC()
	if !sess.Usable(now) {
		return TokenPair{}, ErrInvalidRefreshToken
	}

	user, err := s.store.Users().GetByID(ctx, sess.UserID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	if !user.Active {
		return TokenPair{}, ErrAccountDisabled
	}

	var pair TokenPair
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Sessions().Revoke(ctx, sess.ID, now); err != nil {
			// Lost the race against a concurrent redeem of the same token.
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return err
		}

		var err error
		pair, err = s.openSession(ctx, tx, user, userAgent, ip)
		return err
	})
	if err != nil {
		return TokenPair{}, err
	}

	return pair, nil
}

// Logout revokes the session identified by the presented refresh token.
// An unknown or already-revoked token is not an error; logout is idempotent.
func (s *TokenService) Logout(ctx context.Context, refreshToken string) error {
	fingerprint := cryptox.FingerprintToken(refreshToken)

	sess, err := s.store.Sessions().GetByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup session: %w", err)
	}
	if sess.Revoked() {
		return nil
	}

	if err := s.store.Sessions().Revoke(ctx, sess.ID, time.Now().UTC()); err != nil &&
		!errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}

	s.audit.LogActivity(ctx, sess.UserID.String(), "logout", "session", sess.ID.String(), sess.IP)
	return nil
}

// ChangePassword verifies the current password before setting a new one,
// then revokes every other session so stolen refresh tokens die with the
// old credential.
func (s *TokenService) ChangePassword(ctx context.Context, userID idx.ID, current, next string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.Users().UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		return tx.Sessions().RevokeAllForUser(ctx, userID, now)
	})
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.audit.LogActivity(ctx, userID.String(), "password_changed", "user", user.Email, "")
	return nil
}

// RequestPasswordReset creates a single-use reset token and emails it.
// sendEmail false skips delivery, for operators handing the link over out
// of band; the reset row is created either way. The response never
// discloses whether the email maps to an account, and the email send
// itself is fire-and-forget.
func (s *TokenService) RequestPasswordReset(ctx context.Context, email string, sendEmail bool) error {
	log := slogx.FromContext(ctx)

	user, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.Active {
		return nil
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := time.Now().UTC()
	reset := &domain.PasswordReset{
		ID:               idx.New(),
		UserID:           user.ID,
		TokenFingerprint: cryptox.FingerprintToken(raw),
		ExpiresAt:        now.Add(passwordResetTTL),
		CreatedAt:        now,
	}
	if err := s.store.PasswordResets().Create(ctx, reset); err != nil {
		return fmt.Errorf("store reset: %w", err)
	}

	if sendEmail {
		s.mailer.SendPasswordReset(user.Email, s.resetURL+"?token="+raw)
	}
	log.Info("password reset requested", "user_id", user.ID, "send_email", sendEmail)
	s.audit.LogActivity(ctx, user.ID.String(), "password_reset_requested", "user", user.Email, "")
	return nil
}

// ResetPassword consumes a reset token and installs the new password,
// revoking every live session for the account.
func (s *TokenService) ResetPassword(ctx context.Context, token, next string) error {
	fingerprint := cryptox.FingerprintToken(token)

	reset, err := s.store.PasswordResets().GetByFingerprint(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("lookup reset: %w", err)
	}

	now := time.Now().UTC()
	if reset.Used() || reset.Expired(now) {
		return ErrInvalidResetToken
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.PasswordResets().MarkUsed(ctx, reset.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidResetToken
			}
			return err
		}
		if err := tx.Users().UpdatePassword(ctx, reset.UserID, hash); err != nil {
			return err
		}
		return tx.Sessions().RevokeAllForUser(ctx, reset.UserID, now)
	})
	if err != nil {
		return err
	}

	s.audit.LogActivity(ctx, reset.UserID.String(), "password_reset", "user", reset.UserID.String(), "")
	return nil
}

// openSession mints an access token and persists a new refresh session via
// the given store (which may be transaction-scoped).
func (s *TokenService) openSession(ctx context.Context, st store.Store, user *domain.User, userAgent, ip string) (TokenPair, error) {
	roles, err := s.perms.roleNames(ctx, user.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("resolve roles: %w", err)
	}

	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:               idx.New(),
		UserID:           user.ID,
		TokenFingerprint: cryptox.FingerprintToken(raw),
		UserAgent:        userAgent,
		IP:               ip,
		ExpiresAt:        now.Add(s.refreshTTL),
		CreatedAt:        now,
	}
	if err := st.Sessions().Create(ctx, sess); err != nil {
		return TokenPair{}, fmt.Errorf("store session: %w", err)
	}

	claims := jwtx.NewAccessClaims(user.ID.String(), sess.ID.String(), user.Email, roles, s.accessTTL, s.issuer, now)
	access, err := s.signer.Sign(claims)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

// dummyHash is a throwaway argon2id hash used to equalize the timing of
// failed lookups against failed verifications.
var dummyHash = func() string {
	h, err := cryptox.HashPassword("warden-dummy-password")
	if err != nil {
		panic(err)
	}
	return h
}()
