package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skusync/internal/core/apperror"
	appctx "skusync/internal/core/context"
)

type stubValidator struct {
	user *appctx.UserContext
	err  error
}

func (v *stubValidator) ValidateToken(string) (*appctx.UserContext, error) {
	return v.user, v.err
}

func newTestRouter(validator JWTValidator, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())

	group := router.Group("", Auth(validator))
	if len(roles) > 0 {
		group.Use(RequireRole(roles...))
	}
	group.GET("/probe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": appctx.GetUserID(c.Request.Context())})
	})
	return router
}

func doGet(t *testing.T, router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuth_ValidTokenPopulatesUserContext(t *testing.T) {
	validator := &stubValidator{user: &appctx.UserContext{UserID: "u-1", Role: "editor"}}
	router := newTestRouter(validator)

	rec := doGet(t, router, "Bearer token")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "u-1")
}

func TestAuth_MissingHeaderRejected(t *testing.T) {
	router := newTestRouter(&stubValidator{})

	rec := doGet(t, router, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), apperror.CodeUnauthorized)
}

func TestAuth_MalformedHeaderRejected(t *testing.T) {
	router := newTestRouter(&stubValidator{user: &appctx.UserContext{UserID: "u-1"}})

	rec := doGet(t, router, "Token abc")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_InvalidTokenRejected(t *testing.T) {
	validator := &stubValidator{err: apperror.NewUnauthorized("bad token")}
	router := newTestRouter(validator)

	rec := doGet(t, router, "Bearer expired")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_AllowsListedRole(t *testing.T) {
	validator := &stubValidator{user: &appctx.UserContext{UserID: "u-1", Role: "admin"}}
	router := newTestRouter(validator, "admin", "editor")

	rec := doGet(t, router, "Bearer token")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_RejectsOtherRole(t *testing.T) {
	validator := &stubValidator{user: &appctx.UserContext{UserID: "u-1", Role: "viewer"}}
	router := newTestRouter(validator, "admin")

	rec := doGet(t, router, "Bearer token")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), apperror.CodeForbidden)
}
