package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wardenhq/warden/internal/admin/domain"
	"github.com/wardenhq/warden/internal/admin/store"
	"github.com/wardenhq/warden/pkg/idx"
)

var ErrNameTaken = errors.New("name already in use")

// RoleService manages the role catalogue.
type RoleService struct {
	store store.Store
	audit *AuditService
}

func NewRoleService(st store.Store, audit *AuditService) *RoleService {
	return &RoleService{store: st, audit: audit}
}

type RoleParams struct {
	Name        string
	Description string
	Permissions []string
	Domains     []string
	Priority    int
	Active      bool
}

func (s *RoleService) Create(ctx context.Context, actorID string, p RoleParams) (*domain.Role, error) {
	now := time.Now().UTC()
	r := &domain.Role{
		ID:          idx.New(),
		Name:        p.Name,
		Description: p.Description,
		Permissions: p.Permissions,
		Domains:     p.Domains,
		Priority:    p.Priority,
		Active:      p.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Roles().Create(ctx, r); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("create role: %w", err)
	}

	s.audit.LogActivity(ctx, actorID, "role_created", "role", r.Name, "")
	return r, nil
}

func (s *RoleService) Get(ctx context.Context, id idx.ID) (*domain.Role, error) {
	return s.store.Roles().GetByID(ctx, id)
}

func (s *RoleService) List(ctx context.Context) ([]*domain.Role, error) {
	return s.store.Roles().List(ctx)
}

func (s *RoleService) Update(ctx context.Context, actorID string, id idx.ID, p RoleParams) (*domain.Role, error) {
	r, err := s.store.Roles().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.Name = p.Name
	r.Description = p.Description
	r.Permissions = p.Permissions
	r.Domains = p.Domains
	r.Priority = p.Priority
	r.Active = p.Active
	r.UpdatedAt = time.Now().UTC()

	if err := s.store.Roles().Update(ctx, r); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("update role: %w", err)
	}

	s.audit.LogActivity(ctx, actorID, "role_updated", "role", r.Name, "")
	return r, nil
}

func (s *RoleService) Delete(ctx context.Context, actorID string, id idx.ID) error {
	if err := s.store.Roles().Delete(ctx, id); err != nil {
		return err
	}
	s.audit.LogActivity(ctx, actorID, "role_deleted", "role", id.String(), "")
	return nil
}

// GroupService manages groups and their customer scopes.
type GroupService struct {
	store store.Store
	audit *AuditService
}

func NewGroupService(st store.Store, audit *AuditService) *GroupService {
	return &GroupService{store: st, audit: audit}
}

type GroupParams struct {
	Name        string
	Description string
	Permissions []string
	Domains     []string
	Customers   []string
	Active      bool
}

func (s *GroupService) Create(ctx context.Context, actorID string, p GroupParams) (*domain.Group, error) {
	now := time.Now().UTC()
	g := &domain.Group{
		ID:          idx.New(),
		Name:        p.Name,
		Description: p.Description,
		Permissions: p.Permissions,
		Domains:     p.Domains,
		Customers:   p.Customers,
		Active:      p.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Groups().Create(ctx, g); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("create group: %w", err)
	}

	s.audit.LogActivity(ctx, actorID, "group_created", "group", g.Name, "")
	return g, nil
}

func (s *GroupService) Get(ctx context.Context, id idx.ID) (*domain.Group, error) {
	return s.store.Groups().GetByID(ctx, id)
}

func (s *GroupService) List(ctx context.Context) ([]*domain.Group, error) {
	return s.store.Groups().List(ctx)
}

func (s *GroupService) Update(ctx context.Context, actorID string, id idx.ID, p GroupParams) (*domain.Group, error) {
	g, err := s.store.Groups().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g.Name = p.Name
	g.Description = p.Description
	g.Permissions = p.Permissions
	g.Domains = p.Domains
	g.Customers = p.Customers
	g.Active = p.Active
	g.UpdatedAt = time.Now().UTC()

	if err := s.store.Groups().Update(ctx, g); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrNameTaken
		}
		return nil, fmt.Errorf("update group: %w", err)
	}

	s.audit.LogActivity(ctx, actorID, "group_updated", "group", g.Name, "")
	return g, nil
}

func (s *GroupService) Delete(ctx context.Context, actorID string, id idx.ID) error {
	if err := s.store.Groups().Delete(ctx, id); err != nil {
		return err
	}
	s.audit.LogActivity(ctx, actorID, "group_deleted", "group", id.String(), "")
	return nil
}
