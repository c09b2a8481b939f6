package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/pkg/idx"
)

type usersRepo struct {
	q dbtx
}

const userColumns = `id, email, name, password_hash, domains, active, created_at, updated_at, last_login_at`

func (r *usersRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, domains, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID.String(), u.Email, u.Name, u.PasswordHash, joinList(u.Domains), u.Active, u.CreatedAt, u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) GetByID(ctx context.Context, id idx.ID) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())
	return scanUser(row)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) Update(ctx context.Context, u *domain.User) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, domains = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.Name, joinList(u.Domains), u.Active, u.UpdatedAt, u.ID.String(),
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireAffected(res)
}

func (r *usersRepo) UpdatePassword(ctx context.Context, id idx.ID, passwordHash string) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id.String(),
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *usersRepo) TouchLastLogin(ctx context.Context, id idx.ID, at time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`, at, id.String())
	return err
}

func (r *usersRepo) Delete(ctx context.Context, id idx.ID) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *usersRepo) RoleIDs(ctx context.Context, userID idx.ID) ([]idx.ID, error) {
	return r.memberIDs(ctx,
		`SELECT role_id FROM user_roles WHERE user_id = ?`, userID)
}

func (r *usersRepo) GroupIDs(ctx context.Context, userID idx.ID) ([]idx.ID, error) {
	return r.memberIDs(ctx,
		`SELECT group_id FROM user_groups WHERE user_id = ?`, userID)
}

func (r *usersRepo) memberIDs(ctx context.Context, query string, userID idx.ID) ([]idx.ID, error) {
	rows, err := r.q.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []idx.ID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := idx.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *usersRepo) AssignRole(ctx context.Context, userID, roleID idx.ID) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		userID.String(), roleID.String(),
	)
	return err
}

func (r *usersRepo) RemoveRole(ctx context.Context, userID, roleID idx.ID) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ? AND role_id = ?`,
		userID.String(), roleID.String())
	return err
}

func (r *usersRepo) AssignGroup(ctx context.Context, userID, groupID idx.ID) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO user_groups (user_id, group_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		userID.String(), groupID.String(),
	)
	return err
}

func (r *usersRepo) RemoveGroup(ctx context.Context, userID, groupID idx.ID) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM user_groups WHERE user_id = ? AND group_id = ?`,
		userID.String(), groupID.String())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u          domain.User
		rawID      string
		rawDomains string
		lastLogin  sql.NullTime
	)
	err := row.Scan(&rawID, &u.Email, &u.Name, &u.PasswordHash, &rawDomains,
		&u.Active, &u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if u.ID, err = idx.Parse(rawID); err != nil {
		return nil, err
	}
	u.Domains = splitList(rawDomains)
	u.LastLoginAt = mapNullTimePtr(lastLogin)
	return &u, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}
