package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/internal/modules/auth/dto"
	"perito.app/casetrack/internal/modules/auth/token"
	userDto "perito.app/casetrack/internal/modules/user/dto"
	userRepo "perito.app/casetrack/internal/modules/user/repository"
	userService "perito.app/casetrack/internal/modules/user/service"
	"perito.app/casetrack/pkg/apperror"
	"perito.app/casetrack/pkg/ratelimiter"
)

const (
	MsgMissingCredentials = "Username e senha são obrigatórios"
	MsgInvalidCredentials = "Usuário ou senha inválidos"
	MsgTooManyAttempts    = "Muitas tentativas de login. Tente novamente mais tarde."
)

// dummyHash is compared against when the username is unknown so that path
// costs one bcrypt comparison like a wrong password does.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("casetrack-placeholder-password"), 10)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResult, error)
	Register(ctx context.Context, req dto.RegisterRequest) (*entity.User, error)
	Me(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type authService struct {
	repo    userRepo.UserRepository
	users   userService.UserService
	issuer  *token.Issuer
	limiter *ratelimiter.LoginLimiter
	log     *zap.Logger
}

func NewAuthService(repo userRepo.UserRepository, users userService.UserService, issuer *token.Issuer, limiter *ratelimiter.LoginLimiter, log *zap.Logger) AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &authService{
		repo:    repo,
		users:   users,
		issuer:  issuer,
		limiter: limiter,
		log:     log,
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperror.BadRequest(MsgMissingCredentials)
	}

	allowed, retryAfter, err := s.limiter.Allowed(ctx, username)
	if err != nil {
		s.log.Warn("login limiter unavailable", zap.Error(err))
	} else if !allowed {
		return nil, apperror.New(http.StatusTooManyRequests, MsgTooManyAttempts,
			&ratelimiter.RateLimitError{Message: MsgTooManyAttempts, RetryAfter: retryAfter})
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		s.recordFailure(ctx, username)
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}
	if !userService.VerifyPassword(user, req.Password) {
		s.recordFailure(ctx, username)
		return nil, apperror.Unauthorized(MsgInvalidCredentials)
	}

	if err := s.limiter.Reset(ctx, username); err != nil {
		s.log.Warn("failed to reset login limiter", zap.Error(err))
	}

	signed, expiresAt, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResult{Token: signed, ExpiresAt: expiresAt, User: user}, nil
}

func (s *authService) recordFailure(ctx context.Context, username string) {
	if err := s.limiter.RecordFailure(ctx, username); err != nil {
		s.log.Warn("failed to record login failure", zap.Error(err))
	}
}

// Register always creates the least privileged role. Elevated accounts are
// created by an administrator through POST /api/users (UserService.Create,
// gated by the user.create policy).
func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*entity.User, error) {
	return s.users.Create(ctx, userDto.CreateUserRequest{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Role:       entity.RoleAssistente,
		Phone:      req.Phone,
		Department: req.Department,
	})
}

func (s *authService) Me(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return s.users.GetByID(ctx, id)
}
