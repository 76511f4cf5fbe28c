package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, role string, method jwt.SigningMethod, key any) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "op-1",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}
	raw, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return raw
}

func runAdminAuth(t *testing.T, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := AdminAuth(testSecret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec
}

func TestAdminAuthAcceptsAdminToken(t *testing.T) {
	token := signToken(t, "ADMIN", jwt.SigningMethodHS256, []byte(testSecret))
	rec := runAdminAuth(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminAuthMissingHeader(t *testing.T) {
	rec := runAdminAuth(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuthRejectsWrongSecret(t *testing.T) {
	token := signToken(t, "ADMIN", jwt.SigningMethodHS256, []byte("other-secret"))
	rec := runAdminAuth(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuthRejectsNonAdminRole(t *testing.T) {
	token := signToken(t, "USER", jwt.SigningMethodHS256, []byte(testSecret))
	rec := runAdminAuth(t, "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
