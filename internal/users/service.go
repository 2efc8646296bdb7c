package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
	"github.com/acero-crm/acero-crm/internal/shared"
)

// RoleAssigner grants and revokes roles for a user.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
}

// Service manages the user directory.
type Service struct {
	repo     Repository
	roles    RoleAssigner
	validate *validator.Validate
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

func NewService(repo Repository, roles RoleAssigner, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		roles:    roles,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		audit:    audit,
		logger:   logger,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*UserWithRoles, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get user: %v", httpx.ErrPersistence, err)
	}
	roles, err := s.repo.RoleNames(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: user roles: %v", httpx.ErrPersistence, err)
	}
	return &UserWithRoles{User: *u, Roles: roles}, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]User, shared.Pagination, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("%w: list users: %v", httpx.ErrPersistence, err)
	}
	return items, shared.NewPagination(offset/limit+1, limit, total), nil
}

func (s *Service) Create(ctx context.Context, actorID int64, req CreateUserRequest) (*User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, req.FullName, req.Email, string(hash))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrDuplicate, err)
	}

	for _, roleID := range req.RoleIDs {
		if err := s.roles.AssignRole(ctx, id, roleID); err != nil {
			s.logger.Warn("assign role on create", "user_id", id, "role_id", roleID, "error", err)
		}
	}

	s.recordAudit(ctx, actorID, "user.create", id, map[string]any{"email": req.Email})
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateUserRequest) (*User, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}

	updates := make(map[string]interface{})
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = string(hash)
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: nada que actualizar", httpx.ErrValidation)
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("%w: update user: %v", httpx.ErrPersistence, err)
	}

	s.recordAudit(ctx, actorID, "user.update", id, nil)
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, actorID, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.ErrNotFound
		}
		return fmt.Errorf("%w: deactivate user: %v", httpx.ErrPersistence, err)
	}
	s.recordAudit(ctx, actorID, "user.deactivate", id, nil)
	return nil
}

func (s *Service) SetRole(ctx context.Context, actorID, userID, roleID int64, grant bool) error {
	var err error
	if grant {
		err = s.roles.AssignRole(ctx, userID, roleID)
	} else {
		err = s.roles.RemoveRole(ctx, userID, roleID)
	}
	if err != nil {
		return fmt.Errorf("%w: set role: %v", httpx.ErrPersistence, err)
	}
	s.recordAudit(ctx, actorID, "user.set_role", userID, map[string]any{"role_id": roleID, "grant": grant})
	return nil
}

// DisplayName resolves a user's name for snapshot attribution. Unknown
// or failed lookups fall back to the generic label.
func (s *Service) DisplayName(ctx context.Context, userID int64) string {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "Usuario"
	}
	return u.FullName
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}
