package sqlite

import (
	"context"
	"strings"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/pkg/idx"
)

type rolesRepo struct {
	q dbtx
}

const roleColumns = `id, name, description, permissions, domains, priority, active, created_at, updated_at`

func (r *rolesRepo) Create(ctx context.Context, role *domain.Role) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO roles (id, name, description, permissions, domains, priority, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		role.ID.String(), role.Name, role.Description,
		joinList(role.Permissions), joinList(role.Domains),
		role.Priority, role.Active, role.CreatedAt, role.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *rolesRepo) GetByID(ctx context.Context, id idx.ID) (*domain.Role, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id.String())
	return scanRole(row)
}

func (r *rolesRepo) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE name = ?`, name)
	return scanRole(row)
}

func (r *rolesRepo) GetByIDs(ctx context.Context, ids []idx.ID) ([]*domain.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + roleColumns + ` FROM roles WHERE id IN (` +
		placeholders(len(ids)) + `)`
	rows, err := r.q.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) List(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY priority DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) Update(ctx context.Context, role *domain.Role) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE roles SET name = ?, description = ?, permissions = ?, domains = ?,
			priority = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		role.Name, role.Description, joinList(role.Permissions),
		joinList(role.Domains), role.Priority, role.Active, role.UpdatedAt, role.ID.String(),
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireAffected(res)
}

func (r *rolesRepo) Delete(ctx context.Context, id idx.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanRole(row rowScanner) (*domain.Role, error) {
	var (
		role               domain.Role
		rawID, perms, doms string
	)
	err := row.Scan(&rawID, &role.Name, &role.Description, &perms, &doms,
		&role.Priority, &role.Active, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if role.ID, err = idx.Parse(rawID); err != nil {
		return nil, err
	}
	role.Permissions = splitList(perms)
	role.Domains = splitList(doms)
	return &role, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []idx.ID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return args
}
