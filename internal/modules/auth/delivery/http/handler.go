package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"perito.app/casetrack/internal/modules/auth/dto"
	auth "perito.app/casetrack/internal/modules/auth/service"
	"perito.app/casetrack/internal/modules/auth/token"
	"perito.app/casetrack/pkg/apperror"
	"perito.app/casetrack/pkg/ratelimiter"
	"perito.app/casetrack/pkg/response"
)

type AuthHandler struct {
	service      auth.AuthService
	cookieMaxAge time.Duration
	secureCookie bool
}

func NewAuthHandler(service auth.AuthService, cookieMaxAge time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		service:      service,
		cookieMaxAge: cookieMaxAge,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(token.CookieName, value, maxAge, "/", "", h.secureCookie, true)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.BadRequest(auth.MsgMissingCredentials))
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		var limited *ratelimiter.RateLimitError
		if errors.As(err, &limited) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		}
		response.Error(c, err)
		return
	}

	h.setSessionCookie(c, result.Token, int(h.cookieMaxAge.Seconds()))
	c.JSON(http.StatusOK, dto.LoginResponse{
		Message: "Login realizado com sucesso",
		User: dto.SessionUser{
			ID:       result.User.ID,
			Username: result.User.Username,
			Role:     result.User.Role,
		},
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Usuário registrado com sucesso", "user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logout realizado com sucesso"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.Error(c, apperror.Unauthorized("Usuário não autenticado"))
		return
	}

	user, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
