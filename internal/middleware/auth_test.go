package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"perito.app/casetrack/internal/authz"
	"perito.app/casetrack/internal/entity"
	"perito.app/casetrack/internal/modules/auth/token"
	"perito.app/casetrack/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, issuer *token.Issuer) *gin.Engine {
	t.Helper()
	policy, err := authz.NewPolicy(authz.DefaultTable)
	require.NoError(t, err)

	m := NewAuthMiddleware(issuer, policy)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/whoami", m.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetString(response.ContextUserID), "role": response.GetRole(c)})
	})
	r.DELETE("/casos/:id", m.RequireAuth(), m.Require(authz.CasoDelete), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequireAuthMissingCredential(t *testing.T) {
	r := newRouter(t, token.NewIssuer([]byte("secret"), time.Hour))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, MsgTokenMissing, decode(t, w)["message"])
}

func TestRequireAuthInvalidCredential(t *testing.T) {
	issuer := token.NewIssuer([]byte("secret"), time.Hour)
	r := newRouter(t, issuer)

	forged, _, err := token.NewIssuer([]byte("other"), time.Hour).Issue(uuid.New(), entity.RoleAdmin)
	require.NoError(t, err)
	expired, _, err := token.NewIssuer([]byte("secret"), -time.Minute).Issue(uuid.New(), entity.RoleAdmin)
	require.NoError(t, err)

	for name, tok := range map[string]string{"garbage": "abc.def.ghi", "wrong secret": forged, "expired": expired} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, MsgTokenInvalid, decode(t, w)["message"])
		})
	}
}

func TestRequireAuthHeaderWinsOverCookie(t *testing.T) {
	issuer := token.NewIssuer([]byte("secret"), time.Hour)
	r := newRouter(t, issuer)

	headerUser, cookieUser := uuid.New(), uuid.New()
	headerTok, _, err := issuer.Issue(headerUser, entity.RolePerito)
	require.NoError(t, err)
	cookieTok, _, err := issuer.Issue(cookieUser, entity.RoleAssistente)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+headerTok)
	req.AddCookie(&http.Cookie{Name: token.CookieName, Value: cookieTok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, headerUser.String(), body["id"])
	assert.Equal(t, entity.RolePerito, body["role"])

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: token.CookieName, Value: cookieTok})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, cookieUser.String(), decode(t, w)["id"])
}

func TestRequireDeniesBeforeHandler(t *testing.T) {
	issuer := token.NewIssuer([]byte("secret"), time.Hour)
	r := newRouter(t, issuer)

	tests := []struct {
		role string
		want int
	}{
		{entity.RoleAdmin, http.StatusNoContent},
		{entity.RolePerito, http.StatusForbidden},
		{entity.RoleAssistente, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			tok, _, err := issuer.Issue(uuid.New(), tt.role)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodDelete, "/casos/"+uuid.NewString(), nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusForbidden {
				assert.Equal(t, authz.MsgForbidden, decode(t, w)["message"])
			}
		})
	}
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, int64(http.StatusInternalServerError), entries[1].ContextMap()["status"])
}
