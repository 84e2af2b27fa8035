package auth

import (
	"testing"
	"time"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("user-1", "alice")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "user-1")
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want %q", claims.Username, "alice")
	}
}

func TestJWTManager_Invalid(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{
			name:    "garbage token",
			token:   func() string { return "not-a-token" },
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: func() string {
				tok, _ := other.Generate("user-1", "alice")
				return tok
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			token: func() string {
				expired := NewJWTManager("test-secret", -time.Minute)
				tok, _ := expired.Generate("user-1", "alice")
				return tok
			},
			wantErr: ErrExpiredToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token()); err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStripBearer(t *testing.T) {
	if got := StripBearer("Bearer abc"); got != "abc" {
		t.Errorf("StripBearer() = %q, want %q", got, "abc")
	}
	if got := StripBearer("abc"); got != "abc" {
		t.Errorf("StripBearer() = %q, want %q", got, "abc")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if !VerifyPassword("s3cret", hash) {
		t.Error("VerifyPassword() = false for correct password")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("VerifyPassword() = true for wrong password")
	}
}
