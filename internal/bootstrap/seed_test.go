package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"perito.app/casetrack/internal/entity"
	userRepo "perito.app/casetrack/internal/modules/user/repository"
	userService "perito.app/casetrack/internal/modules/user/service"
	"perito.app/casetrack/internal/testutil"
)

func TestSeedAdminUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewUserStore()
	seed := AdminSeed{Username: "admin", Email: "admin@casetrack.local", Password: "admin12345"}

	require.NoError(t, SeedAdminUser(ctx, users, seed, zap.NewNop()))
	require.NoError(t, SeedAdminUser(ctx, users, seed, zap.NewNop()))

	admin, err := users.FindByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, admin.Role)
	assert.True(t, userService.VerifyPassword(admin, "admin12345"))

	_, total, err := users.FindAll(ctx, userRepo.UserFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestSeedAdminUserRejectsWeakPassword(t *testing.T) {
	err := SeedAdminUser(context.Background(), testutil.NewUserStore(),
		AdminSeed{Username: "admin", Email: "admin@casetrack.local", Password: "123"}, zap.NewNop())
	assert.Error(t, err)
}
