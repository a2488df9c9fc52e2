package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"healup/internal/models"
)

const testSecret = "test-secret"

func signTestToken(t *testing.T, userID primitive.ObjectID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID.Hex(),
		"role":   role,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func guardedRouter(allowed ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", AuthGuard(testSecret, allowed...), func(c *gin.Context) {
		userID := c.MustGet("userId").(primitive.ObjectID)
		c.JSON(http.StatusOK, gin.H{"userId": userID.Hex()})
	})
	return r
}

func TestAuthGuardRejectsMissingToken(t *testing.T) {
	w := httptest.NewRecorder()
	guardedRouter().ServeHTTP(w, httptest.NewRequest("GET", "/guarded", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthGuardRejectsMalformedHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Token abc")

	w := httptest.NewRecorder()
	guardedRouter().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthGuardRejectsWrongSignature(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": primitive.NewObjectID().Hex(),
		"role":   "user",
	})
	signed, _ := token.SignedString([]byte("other-secret"))

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+signed)

	w := httptest.NewRecorder()
	guardedRouter().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthGuardAllowsListedRole(t *testing.T) {
	userID := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, userID, "admin"))

	w := httptest.NewRecorder()
	guardedRouter(models.RoleAdmin, models.RoleSuperAdmin).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestAuthGuardForbidsUnlistedRole(t *testing.T) {
	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, primitive.NewObjectID(), "user"))

	w := httptest.NewRecorder()
	guardedRouter(models.RoleAdmin).ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestAuthGuardRejectsUnknownRole(t *testing.T) {
	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+signTestToken(t, primitive.NewObjectID(), "root"))

	w := httptest.NewRecorder()
	guardedRouter().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
