package service

import (
	"golang.org/x/crypto/bcrypt"

	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/pkg/apperror"
)

const (
	MinPasswordLength = 8
	bcryptCost        = 10
)

// SetPassword hashes plaintext with a fresh salt and stores it on the user.
func SetPassword(user *entity.User, plaintext string) error {
	if len(plaintext) < MinPasswordLength {
		return apperror.BadRequest("A senha deve ter pelo menos 8 caracteres")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return nil
}

func VerifyPassword(user *entity.User, candidate string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}
