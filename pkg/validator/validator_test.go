package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Username string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Status   string `validate:"oneof='Em andamento' Finalizado Arquivado"`
}

func TestValidationMessages(t *testing.T) {
	v := validator.New()
	err := v.Struct(sample{Email: "nope", Password: "short", Status: "Aberto"})
	require.Error(t, err)

	msgs := ValidationMessages(err)
	assert.Contains(t, msgs, "Nome de usuário é obrigatório")
	assert.Contains(t, msgs, "E-mail deve ser um e-mail válido")
	assert.Contains(t, msgs, "Senha deve ter pelo menos 8 caracteres")
	assert.Len(t, msgs, 4)
}

func TestValidationMessagesAcceptsSpacedOneOf(t *testing.T) {
	v := validator.New()
	err := v.Struct(sample{Username: "ana", Email: "ana@example.com", Password: "12345678", Status: "Em andamento"})
	assert.NoError(t, err)
}

func TestFormatValidationErrorPlainError(t *testing.T) {
	assert.Equal(t, "EOF", FormatValidationError(errors.New("EOF")))
}
