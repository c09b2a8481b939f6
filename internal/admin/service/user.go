package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/mail"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/cryptox"
	"github.com/wardenhq/warden/pkg/idx"
)

var (
	ErrEmailTaken     = errors.New("email already in use")
	ErrWeakPassword   = errors.New("password too short")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrSelfDeactivate = errors.New("cannot deactivate own account")
)

const minPasswordLength = 12

// UserService manages accounts and their role/group membership.
type UserService struct {
	store  store.Store
	audit  *AuditService
	mailer mail.Mailer
}

func NewUserService(st store.Store, audit *AuditService, mailer mail.Mailer) *UserService {
	return &UserService{store: st, audit: audit, mailer: mailer}
}

type CreateUserParams struct {
	Email    string
	Name     string
	Password string
}

func (s *UserService) Create(ctx context.Context, actorID string, p CreateUserParams) (*domain.User, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if !strings.Contains(p.Email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(p.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	u := &domain.User{
		ID:           idx.New(),
		Email:        p.Email,
		Name:         p.Name,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.audit.LogActivity(ctx, actorID, "user_created", "user", u.Email, "")
	return u, nil
}

func (s *UserService) Get(ctx context.Context, id idx.ID) (*domain.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.store.Users().List(ctx)
}

type UpdateUserParams struct {
	Email   *string
	Name    *string
	Domains *[]string
	Active  *bool
}

func (s *UserService) Update(ctx context.Context, actorID string, id idx.ID, p UpdateUserParams) (*domain.User, error) {
	u, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		if !strings.Contains(email, "@") {
			return nil, ErrInvalidEmail
		}
		u.Email = email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Domains != nil {
		u.Domains = *p.Domains
	}
	if p.Active != nil {
		if !*p.Active && actorID == id.String() {
			return nil, ErrSelfDeactivate
		}
		u.Active = *p.Active
	}
	u.UpdatedAt = time.Now().UTC()

	if err := s.store.Users().Update(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	// A deactivated account must not keep redeeming refresh tokens.
	if p.Active != nil && !*p.Active {
		_ = s.store.Sessions().RevokeAllForUser(ctx, id, time.Now().UTC())
	}

	s.audit.LogActivity(ctx, actorID, "user_updated", "user", u.Email, "")
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, actorID string, id idx.ID) error {
	if actorID == id.String() {
		return ErrSelfDeactivate
	}
	if err := s.store.Users().Delete(ctx, id); err != nil {
		return err
	}
	s.audit.LogActivity(ctx, actorID, "user_deleted", "user", id.String(), "")
	return nil
}

func (s *UserService) AssignRole(ctx context.Context, actorID string, userID, roleID idx.ID) error {
	role, err := s.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.Users().AssignRole(ctx, userID, roleID); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	s.audit.LogActivity(ctx, actorID, "role_assigned", "user", userID.String()+" role="+role.Name, "")
	s.mailer.SendRoleChange(u.Email, role.Name, "assigned to")
	return nil
}

func (s *UserService) RemoveRole(ctx context.Context, actorID string, userID, roleID idx.ID) error {
	role, err := s.store.Roles().GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.Users().RemoveRole(ctx, userID, roleID); err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	s.audit.LogActivity(ctx, actorID, "role_removed", "user", userID.String()+" role="+role.Name, "")
	s.mailer.SendRoleChange(u.Email, role.Name, "removed from")
	return nil
}

func (s *UserService) AssignGroup(ctx context.Context, actorID string, userID, groupID idx.ID) error {
	if _, err := s.store.Groups().GetByID(ctx, groupID); err != nil {
		return err
	}
	if err := s.store.Users().AssignGroup(ctx, userID, groupID); err != nil {
		return fmt.Errorf("assign group: %w", err)
	}
	s.audit.LogActivity(ctx, actorID, "group_assigned", "user", userID.String()+" group="+groupID.String(), "")
	return nil
}

func (s *UserService) RemoveGroup(ctx context.Context, actorID string, userID, groupID idx.ID) error {
	if err := s.store.Users().RemoveGroup(ctx, userID, groupID); err != nil {
		return fmt.Errorf("remove group: %w", err)
	}
	s.audit.LogActivity(ctx, actorID, "group_removed", "user", userID.String()+" group="+groupID.String(), "")
	return nil
}
