package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/internal/modules/user/dto"
	"perito.app/casetrack/internal/modules/user/repository"
	"perito.app/casetrack/pkg/apperror"
	commonDto "perito.app/casetrack/pkg/dto"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100

	MsgUserNotFound = "Usuário não encontrado"
	MsgUserConflict = "Nome de usuário ou email já está em uso"
)

type UserService interface {
	Create(ctx context.Context, req dto.CreateUserRequest) (*entity.User, error)
	List(ctx context.Context, query dto.ListUsersQuery) (*dto.UserListResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*entity.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ResetPassword(ctx context.Context, id uuid.UUID, newPassword string) error
	ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func conflictError(field string) error {
	appErr := apperror.Conflict(MsgUserConflict)
	if field != "" {
		appErr.With("conflictField", field)
	}
	return appErr
}

func notFoundError(id uuid.UUID) error {
	return apperror.NotFound(MsgUserNotFound).With("resourceId", id.String())
}

// mapWriteError turns store-level unique violations into the 409 body.
func mapWriteError(err error) error {
	var dup *apperror.DuplicateKeyError
	if errors.As(err, &dup) {
		return conflictError(dup.Field)
	}
	return err
}

func (s *userService) Create(ctx context.Context, req dto.CreateUserRequest) (*entity.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if username == "" || email == "" || req.Role == "" {
		return nil, apperror.BadRequest("Campos obrigatórios faltando: username, password, role, email").
			With("requiredFields", []string{"username", "password", "role", "email"})
	}
	if !entity.IsValidRole(req.Role) {
		return nil, apperror.BadRequest("Papel de usuário inválido")
	}

	existing, err := s.repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		field := "email"
		if existing.Username == username {
			field = "username"
		}
		return nil, conflictError(field)
	}

	user := &entity.User{
		Username:   username,
		Email:      email,
		Role:       req.Role,
		Phone:      trimmed(req.Phone),
		Department: trimmed(req.Department),
	}
	if err := SetPassword(user, req.Password); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, mapWriteError(err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, query dto.ListUsersQuery) (*dto.UserListResponse, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	users, total, err := s.repo.FindAll(ctx, repository.UserFilter{
		Search: strings.TrimSpace(query.Search),
		Role:   query.Role,
		Sort:   query.Sort,
		Desc:   strings.EqualFold(query.Order, "desc"),
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*entity.User{}
	}

	return &dto.UserListResponse{
		Data:       users,
		Pagination: commonDto.NewPaginationMeta(page, limit, total),
	}, nil
}

func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, notFoundError(id)
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateUserRequest) (*entity.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		if username := strings.TrimSpace(*req.Username); username != "" {
			user.Username = username
		}
	}
	if req.Email != nil {
		if email := strings.ToLower(strings.TrimSpace(*req.Email)); email != "" {
			user.Email = email
		}
	}
	if req.Phone != nil {
		user.Phone = trimmed(req.Phone)
	}
	if req.Department != nil {
		user.Department = trimmed(req.Department)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, mapWriteError(err)
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return notFoundError(id)
		}
		return err
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, id uuid.UUID, newPassword string) error {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := SetPassword(user, newPassword); err != nil {
		return err
	}
	return s.repo.Update(ctx, user)
}

func (s *userService) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperror.BadRequest("Ambas as senhas são obrigatórias").
			With("requiredFields", []string{"currentPassword", "newPassword"})
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !VerifyPassword(user, currentPassword) {
		return apperror.Unauthorized("Senha atual incorreta")
	}
	if err := SetPassword(user, newPassword); err != nil {
		return err
	}
	return s.repo.Update(ctx, user)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
