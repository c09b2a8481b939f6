package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/admin/mail"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/internal/admin/store/storetest"
	"github.com/wardenhq/warden/pkg/idx"
)

func TestCreateUserValidation(t *testing.T) {
	st := storetest.New()
	svc := NewUserService(st, NewAuditService(st, nil), mail.NopMailer{})

	_, err := svc.Create(context.Background(), "actor", CreateUserParams{
		Email:    "not-an-email",
		Password: "a long enough passphrase",
	})
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Create(context.Background(), "actor", CreateUserParams{
		Email:    "ops@example.com",
		Password: "short",
	})
	require.ErrorIs(t, err, ErrWeakPassword)

	u, err := svc.Create(context.Background(), "actor", CreateUserParams{
		Email:    "  Ops@Example.COM ",
		Name:     "Ops",
		Password: "a long enough passphrase",
	})
	require.NoError(t, err)
	require.Equal(t, "ops@example.com", u.Email)
	require.True(t, u.Active)

	// Duplicate email surfaces a dedicated error.
	_, err = svc.Create(context.Background(), "actor", CreateUserParams{
		Email:    "ops@example.com",
		Password: "a long enough passphrase",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdateUserBlocksSelfDeactivation(t *testing.T) {
	st := storetest.New()
	svc := NewUserService(st, NewAuditService(st, nil), mail.NopMailer{})
	userID := seedUser(st, "ops@example.com")

	inactive := false
	_, err := svc.Update(context.Background(), userID.String(), userID, UpdateUserParams{Active: &inactive})
	require.ErrorIs(t, err, ErrSelfDeactivate)

	// Another actor can deactivate the account.
	u, err := svc.Update(context.Background(), "someone-else", userID, UpdateUserParams{Active: &inactive})
	require.NoError(t, err)
	require.False(t, u.Active)
}

func TestDeactivationRevokesSessions(t *testing.T) {
	st := storetest.New()
	users := NewUserService(st, NewAuditService(st, nil), mail.NopMailer{})
	tokens := newTokenService(t, st)
	userID := seedAccount(t, st, "ops@example.com", "correct horse battery")

	pair, err := tokens.Login(context.Background(), "ops@example.com", "correct horse battery", "ua", "")
	require.NoError(t, err)

	inactive := false
	_, err = users.Update(context.Background(), "someone-else", userID, UpdateUserParams{Active: &inactive})
	require.NoError(t, err)

	_, err = tokens.Refresh(context.Background(), pair.RefreshToken, "ua", "")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestDeleteUserBlocksSelfDelete(t *testing.T) {
	st := storetest.New()
	svc := NewUserService(st, NewAuditService(st, nil), mail.NopMailer{})
	userID := seedUser(st, "ops@example.com")

	require.ErrorIs(t, svc.Delete(context.Background(), userID.String(), userID), ErrSelfDeactivate)
	require.NoError(t, svc.Delete(context.Background(), "someone-else", userID))
	require.ErrorIs(t, svc.Delete(context.Background(), "someone-else", userID), store.ErrNotFound)
}

func TestAssignRoleRequiresExistingRole(t *testing.T) {
	st := storetest.New()
	svc := NewUserService(st, NewAuditService(st, nil), mail.NopMailer{})
	userID := seedUser(st, "ops@example.com")

	err := svc.AssignRole(context.Background(), "actor", userID, idx.New())
	require.ErrorIs(t, err, store.ErrNotFound)

	roleID := seedRole(st, "viewer", true, []string{"content.read"}, nil)
	require.NoError(t, svc.AssignRole(context.Background(), "actor", userID, roleID))
	require.Equal(t, []idx.ID{roleID}, st.UserRoles[userID])

	require.NoError(t, svc.RemoveRole(context.Background(), "actor", userID, roleID))
	require.Empty(t, st.UserRoles[userID])
}
