package auth

import "testing"

func TestUserTokenRoundTrip(t *testing.T) {
	token, err := GenerateUserToken("user-123")
	if err != nil {
		t.Fatalf("GenerateUserToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want user-123", claims.UserID)
	}
	if claims.Role != "user" {
		t.Errorf("Role = %q, want user", claims.Role)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		t.Error("registered claims not populated")
	}
}

func TestGenerateUserTokenRequiresID(t *testing.T) {
	if _, err := GenerateUserToken(""); err == nil {
		t.Error("empty user ID accepted")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Error("garbage token accepted")
	}
	if _, err := ValidateToken(""); err == nil {
		t.Error("empty token accepted")
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	token, err := GenerateUserToken("user-123")
	if err != nil {
		t.Fatalf("GenerateUserToken failed: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := ValidateToken(tampered); err == nil {
		t.Error("tampered token accepted")
	}
}
