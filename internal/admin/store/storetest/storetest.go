// Package storetest provides an in-memory store.Store for tests. It is not
// concurrency safe; tests drive it from one goroutine.
package storetest

import (
	"context"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/idx"
)

// Store keeps every table as an exported field so tests can seed and
// inspect state directly.
type Store struct {
	UsersByID     map[idx.ID]*domain.User
	RolesByID     map[idx.ID]*domain.Role
	GroupsByID    map[idx.ID]*domain.Group
	SessionsByID  map[idx.ID]*domain.Session
	ResetsByID    map[idx.ID]*domain.PasswordReset
	Activity      []*domain.ActivityLog
	Errors        []*domain.ErrorLog
	DocumentsByID map[idx.ID]*domain.Document

	UserRoles  map[idx.ID][]idx.ID
	UserGroups map[idx.ID][]idx.ID

	PingErr error
	// AuditWriteErr, when set, fails activity and error log writes.
	AuditWriteErr error
}

func New() *Store {
	return &Store{
		UsersByID:     make(map[idx.ID]*domain.User),
		RolesByID:     make(map[idx.ID]*domain.Role),
		GroupsByID:    make(map[idx.ID]*domain.Group),
		SessionsByID:  make(map[idx.ID]*domain.Session),
		ResetsByID:    make(map[idx.ID]*domain.PasswordReset),
		DocumentsByID: make(map[idx.ID]*domain.Document),
		UserRoles:     make(map[idx.ID][]idx.ID),
		UserGroups:    make(map[idx.ID][]idx.ID),
	}
}

var _ store.Store = (*Store)(nil)

func (m *Store) Users() store.UserRepository                   { return (*usersRepo)(m) }
func (m *Store) Roles() store.RoleRepository                   { return (*rolesRepo)(m) }
func (m *Store) Groups() store.GroupRepository                 { return (*groupsRepo)(m) }
func (m *Store) Sessions() store.SessionRepository             { return (*sessionsRepo)(m) }
func (m *Store) PasswordResets() store.PasswordResetRepository { return (*resetsRepo)(m) }
func (m *Store) ActivityLogs() store.ActivityLogRepository     { return (*activityRepo)(m) }
func (m *Store) ErrorLogs() store.ErrorLogRepository           { return (*errorsRepo)(m) }
func (m *Store) Documents() store.DocumentRepository           { return (*documentsRepo)(m) }

func (m *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	// No isolation; good enough for exercising transactional call paths.
	return fn(m)
}

func (m *Store) Ping(ctx context.Context) error { return m.PingErr }
func (m *Store) ApplyMigrations() error         { return nil }
func (m *Store) Close() error                   { return nil }

type usersRepo Store

func (m *usersRepo) Create(ctx context.Context, u *domain.User) error {
	for _, existing := range m.UsersByID {
		if existing.Email == u.Email {
			return store.ErrAlreadyExists
		}
	}
	cp := *u
	m.UsersByID[u.ID] = &cp
	return nil
}

func (m *usersRepo) GetByID(ctx context.Context, id idx.ID) (*domain.User, error) {
	u, ok := m.UsersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *usersRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.UsersByID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *usersRepo) List(ctx context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(m.UsersByID))
	for _, u := range m.UsersByID {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *usersRepo) Update(ctx context.Context, u *domain.User) error {
	if _, ok := m.UsersByID[u.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *u
	m.UsersByID[u.ID] = &cp
	return nil
}

func (m *usersRepo) UpdatePassword(ctx context.Context, id idx.ID, hash string) error {
	u, ok := m.UsersByID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *usersRepo) TouchLastLogin(ctx context.Context, id idx.ID, at time.Time) error {
	if u, ok := m.UsersByID[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (m *usersRepo) Delete(ctx context.Context, id idx.ID) error {
	if _, ok := m.UsersByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.UsersByID, id)
	return nil
}

func (m *usersRepo) RoleIDs(ctx context.Context, userID idx.ID) ([]idx.ID, error) {
	return m.UserRoles[userID], nil
}

func (m *usersRepo) GroupIDs(ctx context.Context, userID idx.ID) ([]idx.ID, error) {
	return m.UserGroups[userID], nil
}

func (m *usersRepo) AssignRole(ctx context.Context, userID, roleID idx.ID) error {
	m.UserRoles[userID] = append(m.UserRoles[userID], roleID)
	return nil
}

func (m *usersRepo) RemoveRole(ctx context.Context, userID, roleID idx.ID) error {
	m.UserRoles[userID] = removeID(m.UserRoles[userID], roleID)
	return nil
}

func (m *usersRepo) AssignGroup(ctx context.Context, userID, groupID idx.ID) error {
	m.UserGroups[userID] = append(m.UserGroups[userID], groupID)
	return nil
}

func (m *usersRepo) RemoveGroup(ctx context.Context, userID, groupID idx.ID) error {
	m.UserGroups[userID] = removeID(m.UserGroups[userID], groupID)
	return nil
}

func removeID(ids []idx.ID, target idx.ID) []idx.ID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

type rolesRepo Store

func (m *rolesRepo) Create(ctx context.Context, r *domain.Role) error {
	cp := *r
	m.RolesByID[r.ID] = &cp
	return nil
}

func (m *rolesRepo) GetByID(ctx context.Context, id idx.ID) (*domain.Role, error) {
	r, ok := m.RolesByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *rolesRepo) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	for _, r := range m.RolesByID {
		if r.Name == name {
			cp := *r
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *rolesRepo) GetByIDs(ctx context.Context, ids []idx.ID) ([]*domain.Role, error) {
	var out []*domain.Role
	for _, id := range ids {
		if r, ok := m.RolesByID[id]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *rolesRepo) List(ctx context.Context) ([]*domain.Role, error) {
	var out []*domain.Role
	for _, r := range m.RolesByID {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *rolesRepo) Update(ctx context.Context, r *domain.Role) error {
	if _, ok := m.RolesByID[r.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *r
	m.RolesByID[r.ID] = &cp
	return nil
}

func (m *rolesRepo) Delete(ctx context.Context, id idx.ID) error {
	if _, ok := m.RolesByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.RolesByID, id)
	return nil
}

type groupsRepo Store

func (m *groupsRepo) Create(ctx context.Context, g *domain.Group) error {
	cp := *g
	m.GroupsByID[g.ID] = &cp
	return nil
}

func (m *groupsRepo) GetByID(ctx context.Context, id idx.ID) (*domain.Group, error) {
	g, ok := m.GroupsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *groupsRepo) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	for _, g := range m.GroupsByID {
		if g.Name == name {
			cp := *g
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *groupsRepo) GetByIDs(ctx context.Context, ids []idx.ID) ([]*domain.Group, error) {
	var out []*domain.Group
	for _, id := range ids {
		if g, ok := m.GroupsByID[id]; ok {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *groupsRepo) List(ctx context.Context) ([]*domain.Group, error) {
	var out []*domain.Group
	for _, g := range m.GroupsByID {
		cp := *g
		out = append(out, &cp)
	}
	return out, nil
}

func (m *groupsRepo) Update(ctx context.Context, g *domain.Group) error {
	if _, ok := m.GroupsByID[g.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *g
	m.GroupsByID[g.ID] = &cp
	return nil
}

func (m *groupsRepo) Delete(ctx context.Context, id idx.ID) error {
	if _, ok := m.GroupsByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.GroupsByID, id)
	return nil
}

type sessionsRepo Store

func (m *sessionsRepo) Create(ctx context.Context, s *domain.Session) error {
	cp := *s
	m.SessionsByID[s.ID] = &cp
	return nil
}

func (m *sessionsRepo) GetByFingerprint(ctx context.Context, fp string) (*domain.Session, error) {
	for _, s := range m.SessionsByID {
		if s.TokenFingerprint == fp {
			cp := *s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *sessionsRepo) Revoke(ctx context.Context, id idx.ID, at time.Time) error {
	s, ok := m.SessionsByID[id]
	if !ok || s.RevokedAt != nil {
		return store.ErrNotFound
	}
	s.RevokedAt = &at
	return nil
}

func (m *sessionsRepo) RevokeAllForUser(ctx context.Context, userID idx.ID, at time.Time) error {
	for _, s := range m.SessionsByID {
		if s.UserID == userID && s.RevokedAt == nil {
			t := at
			s.RevokedAt = &t
		}
	}
	return nil
}

func (m *sessionsRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, s := range m.SessionsByID {
		if s.ExpiresAt.Before(cutoff) {
			delete(m.SessionsByID, id)
			n++
		}
	}
	return n, nil
}

type resetsRepo Store

func (m *resetsRepo) Create(ctx context.Context, pr *domain.PasswordReset) error {
	cp := *pr
	m.ResetsByID[pr.ID] = &cp
	return nil
}

func (m *resetsRepo) GetByFingerprint(ctx context.Context, fp string) (*domain.PasswordReset, error) {
	for _, pr := range m.ResetsByID {
		if pr.TokenFingerprint == fp {
			cp := *pr
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *resetsRepo) MarkUsed(ctx context.Context, id idx.ID, at time.Time) error {
	pr, ok := m.ResetsByID[id]
	if !ok || pr.UsedAt != nil {
		return store.ErrNotFound
	}
	pr.UsedAt = &at
	return nil
}

func (m *resetsRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, pr := range m.ResetsByID {
		if pr.ExpiresAt.Before(cutoff) {
			delete(m.ResetsByID, id)
			n++
		}
	}
	return n, nil
}

type activityRepo Store

func (m *activityRepo) Create(ctx context.Context, l *domain.ActivityLog) error {
	if m.AuditWriteErr != nil {
		return m.AuditWriteErr
	}
	cp := *l
	m.Activity = append(m.Activity, &cp)
	return nil
}

func (m *activityRepo) List(ctx context.Context, limit, offset int) ([]*domain.ActivityLog, error) {
	return m.Activity, nil
}

func (m *activityRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := m.Activity[:0]
	var n int64
	for _, l := range m.Activity {
		if l.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	m.Activity = kept
	return n, nil
}

type errorsRepo Store

func (m *errorsRepo) Create(ctx context.Context, l *domain.ErrorLog) error {
	if m.AuditWriteErr != nil {
		return m.AuditWriteErr
	}
	cp := *l
	m.Errors = append(m.Errors, &cp)
	return nil
}

func (m *errorsRepo) List(ctx context.Context, limit, offset int) ([]*domain.ErrorLog, error) {
	return m.Errors, nil
}

func (m *errorsRepo) ListBefore(ctx context.Context, cutoff time.Time) ([]*domain.ErrorLog, error) {
	var out []*domain.ErrorLog
	for _, l := range m.Errors {
		if l.CreatedAt.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *errorsRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	kept := m.Errors[:0]
	var n int64
	for _, l := range m.Errors {
		if l.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	m.Errors = kept
	return n, nil
}

type documentsRepo Store

func (m *documentsRepo) Create(ctx context.Context, d *domain.Document) error {
	cp := *d
	m.DocumentsByID[d.ID] = &cp
	return nil
}

func (m *documentsRepo) GetByID(ctx context.Context, id idx.ID) (*domain.Document, error) {
	d, ok := m.DocumentsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *documentsRepo) List(ctx context.Context, domainKey string) ([]*domain.Document, error) {
	var out []*domain.Document
	for _, d := range m.DocumentsByID {
		if domainKey == "" || d.Domain == domainKey {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *documentsRepo) Delete(ctx context.Context, id idx.ID) error {
	if _, ok := m.DocumentsByID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.DocumentsByID, id)
	return nil
}
