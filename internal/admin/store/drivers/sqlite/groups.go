package sqlite

import (
	"context"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/pkg/idx"
)

type groupsRepo struct {
	q dbtx
}

const groupColumns = `id, name, description, permissions, domains, customers, active, created_at, updated_at`

func (r *groupsRepo) Create(ctx context.Context, g *domain.Group) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO groups (id, name, description, permissions, domains, customers, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.Name, g.Description,
		joinList(g.Permissions), joinList(g.Domains), joinList(g.Customers),
		g.Active, g.CreatedAt, g.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *groupsRepo) GetByID(ctx context.Context, id idx.ID) (*domain.Group, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = ?`, id.String())
	return scanGroup(row)
}

func (r *groupsRepo) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE name = ?`, name)
	return scanGroup(row)
}

func (r *groupsRepo) GetByIDs(ctx context.Context, ids []idx.ID) ([]*domain.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + groupColumns + ` FROM groups WHERE id IN (` +
		placeholders(len(ids)) + `)`
	rows, err := r.q.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *groupsRepo) List(ctx context.Context) ([]*domain.Group, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *groupsRepo) Update(ctx context.Context, g *domain.Group) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE groups SET name = ?, description = ?, permissions = ?, domains = ?,
			customers = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		g.Name, g.Description, joinList(g.Permissions), joinList(g.Domains),
		joinList(g.Customers), g.Active, g.UpdatedAt, g.ID.String(),
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireAffected(res)
}

func (r *groupsRepo) Delete(ctx context.Context, id idx.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanGroup(row rowScanner) (*domain.Group, error) {
	var (
		g                        domain.Group
		rawID, perms, doms, cust string
	)
	err := row.Scan(&rawID, &g.Name, &g.Description, &perms, &doms, &cust,
		&g.Active, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if g.ID, err = idx.Parse(rawID); err != nil {
		return nil, err
	}
	g.Permissions = splitList(perms)
	g.Domains = splitList(doms)
	g.Customers = splitList(cust)
	return &g, nil
}
