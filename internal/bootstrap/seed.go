package bootstrap

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"perito.app/casetrack/internal/entity"
	userDto "perito.app/casetrack/internal/modules/user/dto"
	userRepo "perito.app/casetrack/internal/modules/user/repository"
	userService "perito.app/casetrack/internal/modules/user/service"
	"perito.app/casetrack/pkg/apperror"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Case{},
		&entity.Evidence{},
	)
}

type AdminSeed struct {
	Username string
	Email    string
	Password string
}

// SeedAdminUser creates the first administrator when no account with the
// seed username exists yet. It is a no-op on later boots.
func SeedAdminUser(ctx context.Context, repo userRepo.UserRepository, seed AdminSeed, log *zap.Logger) error {
	_, err := repo.FindByUsername(ctx, seed.Username)
	if err == nil {
		log.Debug("admin user already exists, skipping seed", zap.String("username", seed.Username))
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	admin, err := userService.NewUserService(repo).Create(ctx, userDto.CreateUserRequest{
		Username: seed.Username,
		Email:    seed.Email,
		Password: seed.Password,
		Role:     entity.RoleAdmin,
	})
	if err != nil {
		return err
	}

	log.Info("admin user seeded", zap.String("username", admin.Username), zap.String("email", admin.Email))
	return nil
}
