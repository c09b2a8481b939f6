package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/admin/store/storetest"
)

func TestRolePriorityRoundTrips(t *testing.T) {
	st := storetest.New()
	svc := NewRoleService(st, NewAuditService(st, nil))

	created, err := svc.Create(context.Background(), "actor", RoleParams{
		Name:        "editor",
		Permissions: []string{"content.write"},
		Domains:     []string{"cms"},
		Priority:    40,
		Active:      true,
	})
	require.NoError(t, err)
	require.Equal(t, 40, created.Priority)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 40, got.Priority)

	updated, err := svc.Update(context.Background(), "actor", created.ID, RoleParams{
		Name:     "editor",
		Domains:  []string{"cms"},
		Priority: 90,
		Active:   true,
	})
	require.NoError(t, err)
	require.Equal(t, 90, updated.Priority)

	got, err = svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 90, got.Priority)
}
