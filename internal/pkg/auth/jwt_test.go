package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/campusmind/campusmind/internal/app/models"
)

func testService(accessExp, socketExp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  accessExp,
		RefreshTokenExp: 720 * time.Hour,
		SocketTokenExp:  socketExp,
		TokenIssuer:     "test",
	})
}

func testUser() *models.User {
	return &models.User{
		ID:        42,
		CollegeID: 7,
		Email:     "student@example.edu",
		Role:      models.RoleStudent,
	}
}

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := testService(time.Hour, time.Minute)

	access, refresh, expiresIn, _, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}
	if refresh == "" {
		t.Error("refresh token should be issued")
	}
	if expiresIn != 3600 {
		t.Errorf("expiresIn = %d, want 3600", expiresIn)
	}

	claims, err := svc.ValidateAndExtractClaims(access)
	if err != nil {
		t.Fatalf("ValidateAndExtractClaims: %v", err)
	}
	if claims.UserID != 42 || claims.CollegeID != 7 || claims.Role != "student" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Scope != ScopeAccess {
		t.Errorf("scope = %q, want %q", claims.Scope, ScopeAccess)
	}
}

func TestSocketTokenScopeAndExpiry(t *testing.T) {
	svc := testService(time.Hour, 60*time.Second)

	token, expiresIn, err := svc.GenerateSocketToken(testUser())
	if err != nil {
		t.Fatalf("GenerateSocketToken: %v", err)
	}
	if expiresIn != 60 {
		t.Errorf("expiresIn = %d, want 60", expiresIn)
	}

	claims, err := svc.ValidateAndExtractClaims(token)
	if err != nil {
		t.Fatalf("ValidateAndExtractClaims: %v", err)
	}
	if claims.Scope != ScopeSocket {
		t.Errorf("scope = %q, want %q", claims.Scope, ScopeSocket)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	svc := testService(-time.Minute, time.Minute)

	access, _, _, _, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	_, err = svc.ValidateAndExtractClaims(access)
	if !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	svc := testService(time.Hour, time.Minute)
	other := NewJWTService(JWTConfig{SecretKey: "other-secret", AccessTokenExp: time.Hour})

	access, _, _, _, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair: %v", err)
	}

	if _, err := other.ValidateAndExtractClaims(access); err == nil {
		t.Error("token signed with another secret must not validate")
	}
}

func TestValidateGarbage(t *testing.T) {
	svc := testService(time.Hour, time.Minute)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.ValidateAndExtractClaims(token); err == nil {
			t.Errorf("token %q must not validate", token)
		}
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"abc", "abc", false},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ExtractBearerToken(tt.header)
		if tt.wantErr {
			if err == nil {
				t.Errorf("header %q: expected error", tt.header)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ExtractBearerToken(%q) = %q, %v; want %q", tt.header, got, err, tt.want)
		}
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !CheckPassword(hash, "s3cret-password") {
		t.Error("correct password should verify")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Error("wrong password must not verify")
	}
}
