package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	userID := uuid.New()

	token, err := svc.Generate(userID, "viewer@example.com", "Viewer")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "viewer@example.com" {
		t.Fatalf("Email = %q", claims.Email)
	}
	if claims.Name != "Viewer" {
		t.Fatalf("Name = %q", claims.Name)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(uuid.New(), "a@example.com", "A")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := NewJWTService("secret-b", 1).Validate(token); err == nil {
		t.Fatal("token signed with another secret validated")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := NewJWTService("secret", 1).Validate("not.a.jwt"); err == nil {
		t.Fatal("garbage token validated")
	}
}
