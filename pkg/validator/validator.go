package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) string {
	return strings.Join(ValidationMessages(err), "; ")
}

// ValidationMessages renders one message per failing field.
func ValidationMessages(err error) []string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return messages
	}
	return []string{err.Error()}
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s é obrigatório", field)
	case "email":
		return fmt.Sprintf("%s deve ser um e-mail válido", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s deve ser um ID válido", field)
	case "oneof":
		return fmt.Sprintf("%s deve ser um de: %s", field, fe.Param())
	case "min":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s deve ter pelo menos %s caracteres", field, fe.Param())
		}
		return fmt.Sprintf("%s deve ser no mínimo %s", field, fe.Param())
	case "max":
		if fe.Type().String() == "string" {
			return fmt.Sprintf("%s deve ter no máximo %s caracteres", field, fe.Param())
		}
		return fmt.Sprintf("%s deve ser no máximo %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s inválido", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"Username":        "Nome de usuário",
		"Email":           "E-mail",
		"Password":        "Senha",
		"NewPassword":     "Nova senha",
		"CurrentPassword": "Senha atual",
		"Role":            "Papel",
		"NumeroCaso":      "Número do caso",
		"Titulo":          "Título",
		"DataAbertura":    "Data de abertura",
		"Status":          "Status",
		"TipoCaso":        "Tipo do caso",
		"OrigemDemanda":   "Origem da demanda",
		"Descricao":       "Descrição",
		"Justificativa":   "Justificativa",
		"CasoID":          "Caso",
		"Tipo":            "Tipo da evidência",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
