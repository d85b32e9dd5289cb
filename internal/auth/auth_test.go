package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func protectedEcho() (*echo.Echo, *string) {
	e := echo.New()
	var seenUserID string
	e.GET("/protected", JwtAuthMiddleware(func(c echo.Context) error {
		seenUserID, _ = c.Get("user_id").(string)
		return c.NoContent(http.StatusOK)
	}))
	return e, &seenUserID
}

func TestJwtAuthMiddleware_AcceptsIssuedToken(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	token, err := GenerateAccessToken("user-42")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	e, seenUserID := protectedEcho()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if *seenUserID != "user-42" {
		t.Fatalf("expected user id from claims, got %q", *seenUserID)
	}
}

func TestJwtAuthMiddleware_RejectsBadTokens(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	e, _ := protectedEcho()
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc123",
		"garbage token":  "Bearer not.a.jwt",
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
	}
}

func TestJwtAuthMiddleware_RejectsTokenSignedWithOtherSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "other-secret")
	token, err := GenerateAccessToken("user-42")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	t.Setenv("SESSION_SECRET", "test-secret")
	e, _ := protectedEcho()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for mismatched secret, got %d", rec.Code)
	}
}
