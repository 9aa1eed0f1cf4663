package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"trello-cloney/domain"
)

var testSecret = []byte("test-secret")

func signTestToken(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub": sub,
		"aud": "api://aud",
		"iss": "https://issuer/",
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"nbf": time.Now().Add(-time.Minute).Unix(),
		"iat": time.Now().Add(-time.Minute).Unix(),
	}
}

func newTestAuth() *Auth {
	return NewAuth(AuthConfig{Audience: "api://aud", Issuer: "https://issuer/", SharedSecret: testSecret})
}

func TestBearerTokenSuccess(t *testing.T) {
	token, err := bearerToken("  Bearer header.payload.signature ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "header.payload.signature" {
		t.Fatalf("unexpected token content: %s", token)
	}
}

func TestBearerTokenMissing(t *testing.T) {
	if _, err := bearerToken(""); err == nil || err.Error() != "missing authorization header" {
		t.Fatalf("expected missing header error, got %v", err)
	}
}

func TestBearerTokenManyPeriods(t *testing.T) {
	header := "Bearer " + strings.Repeat(".", 1000)
	if _, err := bearerToken(header); err == nil || err.Error() != "bad auth header" {
		t.Fatalf("expected bad auth header error, got %v", err)
	}
}

func TestBearerTokenWrongScheme(t *testing.T) {
	if _, err := bearerToken("Basic dXNlcjpwYXNz"); err != errBadAuthorization {
		t.Fatalf("expected bad auth header error, got %v", err)
	}
}

func TestAuthHeaderFallsBackToQuery(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/views/v1/stream?access_token=a.b.c", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if got := authHeader(c); got != "Bearer a.b.c" {
		t.Fatalf("unexpected header: %q", got)
	}

	req.Header.Set(echo.HeaderAuthorization, "Bearer x.y.z")
	if got := authHeader(c); got != "Bearer x.y.z" {
		t.Fatalf("expected header to take precedence, got %q", got)
	}
}

func TestUserIDFromAuthHeaderHS256(t *testing.T) {
	signed := signTestToken(t, validClaims("user-123"))

	userID, err := newTestAuth().UserIDFromAuthHeader("Bearer " + signed)
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if userID != "user-123" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestUserIDFromAuthHeaderRejectsInvalidTokens(t *testing.T) {
	expired := validClaims("user")
	expired["exp"] = time.Now().Add(-5 * time.Minute).Unix()
	wrongAudience := validClaims("user")
	wrongAudience["aud"] = "api://other"
	noSubject := validClaims("")

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "expired", header: "Bearer " + signTestToken(t, expired)},
		{name: "audience", header: "Bearer " + signTestToken(t, wrongAudience)},
		{name: "subject", header: "Bearer " + signTestToken(t, noSubject)},
		{name: "garbage", header: "Bearer a.b.c"},
	}
	auth := newTestAuth()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := auth.UserIDFromAuthHeader(tt.header); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestUserIDFromAuthHeaderRequiresJWKSWithoutSecret(t *testing.T) {
	auth := NewAuth(AuthConfig{})
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("user"))
	signed, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := auth.UserIDFromAuthHeader("Bearer " + signed); err == nil {
		t.Fatal("expected HS256 token to be rejected in RS256 mode")
	}
}

func TestSessionFromAuthHeader(t *testing.T) {
	withProfile := validClaims("user-1")
	withProfile["name"] = "Ada Lovelace"
	withProfile["picture"] = "https://example.com/ada.png"

	tests := []struct {
		name   string
		header string
		want   domain.Session
	}{
		{name: "missing header", header: "", want: domain.SignedOut{}},
		{name: "invalid token", header: "Bearer a.b.c", want: domain.SignedOut{}},
		{
			name:   "profile claims",
			header: "Bearer " + signTestToken(t, withProfile),
			want:   domain.SignedIn{UserID: "user-1", Name: "Ada Lovelace", Image: "https://example.com/ada.png"},
		},
		{
			name:   "no profile claims",
			header: "Bearer " + signTestToken(t, validClaims("user-2")),
			want:   domain.SignedIn{UserID: "user-2"},
		},
	}
	auth := newTestAuth()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := auth.SessionFromAuthHeader(tt.header); got != tt.want {
				t.Fatalf("SessionFromAuthHeader() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
