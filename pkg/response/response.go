package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"perito.app/casetrack/pkg/apperror"
	"perito.app/casetrack/pkg/dto"
	"perito.app/casetrack/pkg/validator"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr.(string))
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// GetRole retrieves the authenticated role from the context
func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}

// GetActor returns the caller identity set by the access gate.
func GetActor(c *gin.Context) (dto.Actor, error) {
	id, err := GetUserID(c)
	if err != nil {
		return dto.Actor{}, apperror.Unauthorized("Usuário não autenticado")
	}
	return dto.Actor{ID: id, Role: GetRole(c)}, nil
}

// Error writes the standardized error body {"message": ..., <fields>}.
func Error(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	body := gin.H{}
	var appErr *apperror.AppError
	switch {
	case code == http.StatusInternalServerError:
		zap.L().Error("internal error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		body["message"] = "Erro interno no servidor"
	case errors.As(err, &appErr):
		body["message"] = appErr.Message
		for k, v := range appErr.Fields {
			body[k] = v
		}
	default:
		body["message"] = err.Error()
	}

	c.AbortWithStatusJSON(code, body)
}

// BindError reports a binding/validation failure as 400.
func BindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"message": "Erro de validação",
		"errors":  validator.ValidationMessages(err),
	})
}

// ParamUUID parses a path parameter; malformed values become 400 with invalidId.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.BadRequest("ID inválido").With("invalidId", raw)
	}
	return id, nil
}
