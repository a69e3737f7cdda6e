package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin      = "admin"
	RolePerito     = "perito"
	RoleAssistente = "assistente"
)

var Roles = []string{RoleAdmin, RolePerito, RoleAssistente}

func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" bson:"_id" json:"_id"`
	Username     string    `gorm:"size:100;uniqueIndex;not null" bson:"username" json:"username"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash string    `gorm:"column:password;size:255;not null" bson:"password" json:"-"`
	Role         string    `gorm:"size:20;not null;index" bson:"role" json:"role"`
	Phone        *string   `gorm:"size:50" bson:"phone,omitempty" json:"phone,omitempty"`
	Department   *string   `gorm:"size:100" bson:"department,omitempty" json:"department,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
