package dto

import (
	"time"

	"github.com/google/uuid"

	"perito.app/casetrack/internal/entity"
)

// LoginRequest is validated by the service so both fields share one message.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username   string  `json:"username" binding:"required,max=100"`
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=8"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
}

type SessionUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

type LoginResponse struct {
	Message string      `json:"message"`
	User    SessionUser `json:"user"`
}

// LoginResult carries the token to the handler, which only ever writes it
// to the cookie.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *entity.User
}
