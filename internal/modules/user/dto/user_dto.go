package dto

import (
	"perito.app/casetrack/internal/entity"
	commonDto "perito.app/casetrack/pkg/dto"
)

type CreateUserRequest struct {
	Username   string  `json:"username" binding:"required,max=100"`
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=8"`
	Role       string  `json:"role" binding:"required,oneof=admin perito assistente"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
}

// UpdateUserRequest has no password or role; those change through the
// dedicated password operations only.
type UpdateUserRequest struct {
	Username   *string `json:"username" binding:"omitempty,max=100"`
	Email      *string `json:"email" binding:"omitempty,email"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
}

type ListUsersQuery struct {
	Search string `form:"search"`
	Role   string `form:"role"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Sort   string `form:"sort"`
	Order  string `form:"order"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

type UserListResponse struct {
	Data       []*entity.User           `json:"data"`
	Pagination commonDto.PaginationMeta `json:"pagination"`
}
