package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/internal/modules/user/dto"
	"perito.app/casetrack/internal/testutil"
	"perito.app/casetrack/pkg/apperror"
)

func strPtr(s string) *string { return &s }

func newRequest(username, email string) dto.CreateUserRequest {
	return dto.CreateUserRequest{
		Username: username,
		Email:    email,
		Password: "senha-forte-1",
		Role:     entity.RolePerito,
	}
}

func TestPasswordHashing(t *testing.T) {
	u1, u2 := &entity.User{}, &entity.User{}
	require.NoError(t, SetPassword(u1, "correct-horse"))
	require.NoError(t, SetPassword(u2, "correct-horse"))

	assert.True(t, VerifyPassword(u1, "correct-horse"))
	assert.False(t, VerifyPassword(u1, "correct-horsE"))
	assert.False(t, VerifyPassword(u1, ""))
	assert.NotEqual(t, u1.PasswordHash, u2.PasswordHash)
	assert.NotContains(t, u1.PasswordHash, "correct-horse")

	err := SetPassword(u1, "short")
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
	assert.True(t, VerifyPassword(u1, "correct-horse"))
}

func TestCreateNormalizesAndHashes(t *testing.T) {
	svc := NewUserService(testutil.NewUserStore())

	user, err := svc.Create(context.Background(), newRequest("  joana ", "Joana@Example.COM"))
	require.NoError(t, err)

	assert.Equal(t, "joana", user.Username)
	assert.Equal(t, "joana@example.com", user.Email)
	assert.True(t, VerifyPassword(user, "senha-forte-1"))
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	svc := NewUserService(testutil.NewUserStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, newRequest("joana", "joana@example.com"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		req   dto.CreateUserRequest
		field string
	}{
		{"same username", newRequest("joana", "other@example.com"), "username"},
		{"same email different case", newRequest("maria", "JOANA@example.com"), "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			require.Error(t, err)
			assert.Equal(t, 409, apperror.MapErrorToStatus(err))

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, MsgUserConflict, appErr.Message)
			assert.Equal(t, tt.field, appErr.Fields["conflictField"])
		})
	}
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc := NewUserService(testutil.NewUserStore())
	req := newRequest("joana", "joana@example.com")
	req.Role = "root"

	_, err := svc.Create(context.Background(), req)
	assert.Equal(t, 400, apperror.MapErrorToStatus(err))
}

func TestListPaginates(t *testing.T) {
	svc := NewUserService(testutil.NewUserStore())
	ctx := context.Background()
	for _, name := range []string{"carla", "ana", "bruno"} {
		_, err := svc.Create(ctx, newRequest(name, name+"@example.com"))
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, dto.ListUsersQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, "ana", res.Data[0].Username)
	assert.EqualValues(t, 3, res.Pagination.Total)
	assert.Equal(t, 2, res.Pagination.TotalPages)

	res, err = svc.List(ctx, dto.ListUsersQuery{Search: "BRU", Limit: 500})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, 100, res.Pagination.Limit)

	res, err = svc.List(ctx, dto.ListUsersQuery{Sort: "username", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, "carla", res.Data[0].Username)
	assert.Equal(t, 10, res.Pagination.Limit)
}

func TestUpdateKeepsPasswordAndRole(t *testing.T) {
	svc := NewUserService(testutil.NewUserStore())
	ctx := context.Background()
	user, err := svc.Create(ctx, newRequest("joana", "joana@example.com"))
	require.NoError(t, err)
	hash := user.PasswordHash

	updated, err := svc.Update(ctx, user.ID, dto.UpdateUserRequest{
		Email:      strPtr("NOVA@example.com"),
		Department: strPtr("Balística"),
	})
	require.NoError(t, err)
	assert.Equal(t, "nova@example.com", updated.Email)
	assert.Equal(t, "Balística", *updated.Department)
	assert.Equal(t, entity.RolePerito, updated.Role)
	assert.Equal(t, hash, updated.PasswordHash)

	_, err = svc.Update(ctx, uuid.New(), dto.UpdateUserRequest{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateDuplicateEmailIsConflict(t *testing.T) {
	svc := NewUserService(testutil.NewUserStore())
	ctx := context.Background()
	_, err := svc.Create(ctx, newRequest("joana", "joana@example.com"))
	require.NoError(t, err)
	other, err := svc.Create(ctx, newRequest("maria", "maria@example.com"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, other.ID, dto.UpdateUserRequest{Email: strPtr("joana@example.com")})
	assert.Equal(t, 409, apperror.MapErrorToStatus(err))
}

func TestChangeAndResetPassword(t *testing.T) {
	store := testutil.NewUserStore()
	svc := NewUserService(store)
	ctx := context.Background()
	user, err := svc.Create(ctx, newRequest("joana", "joana@example.com"))
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, "errada", "nova-senha-1")
	assert.Equal(t, 401, apperror.MapErrorToStatus(err))

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "senha-forte-1", "nova-senha-1"))
	stored, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(stored, "nova-senha-1"))

	require.NoError(t, svc.ResetPassword(ctx, user.ID, "reset-senha-1"))
	stored, err = store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(stored, "reset-senha-1"))
	assert.False(t, VerifyPassword(stored, "nova-senha-1"))

	err = svc.ResetPassword(ctx, uuid.New(), "reset-senha-1")
	assert.Equal(t, 404, apperror.MapErrorToStatus(err))
}

func TestDelete(t *testing.T) {
	svc := NewUserService(testutil.NewUserStore())
	ctx := context.Background()
	user, err := svc.Create(ctx, newRequest("joana", "joana@example.com"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID))
	_, err = svc.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, user.ID), apperror.ErrNotFound)
}
