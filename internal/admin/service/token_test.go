package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/mail"
	"github.com/wardenhq/warden/internal/admin/store/storetest"
	"github.com/wardenhq/warden/pkg/cryptox"
	"github.com/wardenhq/warden/pkg/idx"
	"github.com/wardenhq/warden/pkg/jwtx"
)

func newTokenService(t *testing.T, st *storetest.Store) *TokenService {
	return newTokenServiceWithMailer(t, st, mail.NopMailer{})
}

func newTokenServiceWithMailer(t *testing.T, st *storetest.Store, m mail.Mailer) *TokenService {
	t.Helper()

	signer, err := jwtx.NewEphemeralSigner("test-1")
	require.NoError(t, err)

	return NewTokenService(st, signer, NewPermissionService(st),
		NewAuditService(st, nil), m, TokenServiceConfig{
			Issuer: "warden",
		})
}

// recordingMailer captures outbound mail for assertions.
type recordingMailer struct {
	resets []string
}

func (m *recordingMailer) SendPasswordReset(to, link string) { m.resets = append(m.resets, to) }

func (m *recordingMailer) SendRoleChange(to, role, action string) {}

func seedAccount(t *testing.T, st *storetest.Store, email, password string) idx.ID {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	u := &domain.User{
		ID:           idx.New(),
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	st.UsersByID[u.ID] = u
	return u.ID
}

func TestLoginIssuesTokenPair(t *testing.T) {
	st := storetest.New()
	svc := newTokenService(t, st)
	seedAccount(t, st, "ops@example.com", "correct horse battery")

	pair, err := svc.Login(context.Background(), "ops@example.com", "correct horse battery", "ua", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Len(t, st.SessionsByID, 1)
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	st := storetest.New()
	svc := newTokenService(t, st)
	seedAccount(t, st, "ops@example.com", "correct horse battery")

	_, err := svc.Login(context.Background(), "ops@example.com", "wrong", "ua", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email yields the same error as a wrong password.
	_, err = svc.Login(context.Background(), "nobody@example.com", "whatever", "ua", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	st := storetest.New()
	svc := newTokenService(t, st)
	userID := seedAccount(t, st, "ops@example.com", "correct horse battery")
	st.UsersByID[userID].Active = false

	_, err := svc.Login(context.Background(), "ops@example.com", "correct horse battery", "ua", "")
	require.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRefreshRotatesAndBurnsOldToken(t *testing.T) {
	st := storetest.New()
	svc := newTokenService(t, st)
	seedAccount(t, st, "ops@example.com", "correct horse battery")

	pair, err := svc.Login(context.Background(), "ops@example.com", "correct horse battery", "ua", "")
	require.NoError(t, err)

	next, err := svc.Refresh(context.Background(), pair.RefreshToken, "ua", "")
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// First redemption revoked the old session: a replay fails.
	_, err = svc.Refresh(context.Background(), pair.RefreshToken, "ua", "")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The successor still works.
	_, err = svc.Refresh(context.Background(), next.RefreshToken, "ua", "")
	require.NoError(t, err)
}

func TestRefreshRejectsUnknownAndExpired(t *testing.T) {
	st := storetest.New()
	svc := newTokenService(t, st)
	userID := seedAccount(t, st, "ops@example.com", "correct horse battery")

	_, err := svc.Refresh(context.Background(), "never-issued", "ua", "")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	raw := cryptox.MustGenerateToken(cryptox.TokenSize256)
	expired := &domain.Session{
		ID:               idx.New(),
		UserID:           userID,
		TokenFingerprint: cryptox.FingerprintToken(raw),
		ExpiresAt:        time.Now().UTC().Add(-time.Hour),
		CreatedAt:        time.Now().UTC().Add(-8 * 24 * time.Hour),
	}
	st.SessionsByID[expired.ID] = expired

	_, err = svc.Refresh(context.Background(), raw, "ua", "")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestLogoutIsIdempotent(t *testing.T) {
	st := storetest.New()
	svc := newTokenService(t, st)
	seedAccount(t, st, "ops@example.com", "correct horse battery")

	pair, err := svc.Login(context.Background(), "ops@example.com", "correct horse battery", "ua", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), pair.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), pair.RefreshToken))
	require.NoError(t, svc.Logout(context.Background(), "never-issued"))

	_, err = svc.Refresh(context.Background(), pair.RefreshToken, "ua", "")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	st := storetest.New()
	svc := newTokenService(t, st)
	userID := seedAccount(t, st, "ops@example.com", "correct horse battery")

	pair, err := svc.Login(context.Background(), "ops@example.com", "correct horse battery", "ua", "")
	require.NoError(t, err)

	err = svc.ChangePassword(context.Background(), userID, "wrong", "a brand new passphrase")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), userID, "correct horse battery", "a brand new passphrase")
	require.NoError(t, err)

	// Old refresh token died with the old credential.
	_, err = svc.Refresh(context.Background(), pair.RefreshToken, "ua", "")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The new password logs in.
	_, err = svc.Login(context.Background(), "ops@example.com", "a brand new passphrase", "ua", "")
	require.NoError(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	st := storetest.New()
	svc := newTokenService(t, st)
	seedAccount(t, st, "ops@example.com", "correct horse battery")

	// Unknown emails do not error, and do not create reset rows.
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "nobody@example.com", true))
	require.Empty(t, st.ResetsByID)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ops@example.com", true))
	require.Len(t, st.ResetsByID, 1)

	_, err := svc.Login(context.Background(), "ops@example.com", "correct horse battery", "ua", "")
	require.NoError(t, err)

	// The raw token is not persisted; reconstruct an unknown one to prove
	// the fingerprint lookup rejects it.
	err = svc.ResetPassword(context.Background(), "never-issued", "a brand new passphrase")
	require.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordResetWithoutEmailDelivery(t *testing.T) {
	st := storetest.New()
	mailer := &recordingMailer{}
	svc := newTokenServiceWithMailer(t, st, mailer)
	seedAccount(t, st, "ops@example.com", "correct horse battery")

	// send_email false: the token row exists, nothing goes out.
	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ops@example.com", false))
	require.Len(t, st.ResetsByID, 1)
	require.Empty(t, mailer.resets)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ops@example.com", true))
	require.Len(t, st.ResetsByID, 2)
	require.Equal(t, []string{"ops@example.com"}, mailer.resets)
}

func TestResetPasswordConsumesToken(t *testing.T) {
	st := storetest.New()
	svc := newTokenService(t, st)
	userID := seedAccount(t, st, "ops@example.com", "correct horse battery")

	raw := cryptox.MustGenerateToken(cryptox.TokenSize256)
	reset := &domain.PasswordReset{
		ID:               idx.New(),
		UserID:           userID,
		TokenFingerprint: cryptox.FingerprintToken(raw),
		ExpiresAt:        time.Now().UTC().Add(time.Hour),
		CreatedAt:        time.Now().UTC(),
	}
	st.ResetsByID[reset.ID] = reset

	require.NoError(t, svc.ResetPassword(context.Background(), raw, "a brand new passphrase"))

	// Single use: a second redemption fails.
	err := svc.ResetPassword(context.Background(), raw, "yet another passphrase")
	require.ErrorIs(t, err, ErrInvalidResetToken)

	_, err = svc.Login(context.Background(), "ops@example.com", "a brand new passphrase", "ua", "")
	require.NoError(t, err)
}
