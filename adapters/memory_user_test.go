package adapters

import (
	"context"
	"testing"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/entities"
)

func TestMemoryUserRepositoryCreateAndGet(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := &entities.User{Email: "learner@example.com", Name: "Learner"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if user.ID == "" {
		t.Error("ID not generated")
	}

	byID, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if byID.Email != user.Email {
		t.Errorf("Email = %q", byID.Email)
	}

	byEmail, err := repo.GetByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("ID = %q", byEmail.ID)
	}

	// Duplicate email rejected.
	if err := repo.Create(ctx, &entities.User{Email: user.Email, Name: "Other"}); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestMemoryUserRepositoryCredentials(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user := &entities.User{Email: "learner@example.com", Name: "Learner"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := repo.RegisterAPIKey(user.Email, "key-123"); err != nil {
		t.Fatalf("RegisterAPIKey failed: %v", err)
	}

	got, err := repo.ValidateCredentials(user.Email, "key-123")
	if err != nil {
		t.Fatalf("ValidateCredentials failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID = %q", got.ID)
	}

	if _, err := repo.ValidateCredentials(user.Email, "wrong"); err == nil {
		t.Error("wrong api key accepted")
	}
	if _, err := repo.ValidateCredentials("nobody@example.com", "key-123"); err == nil {
		t.Error("unknown email accepted")
	}

	if err := repo.RemoveAPIKey(user.Email); err != nil {
		t.Fatalf("RemoveAPIKey failed: %v", err)
	}
	if _, err := repo.ValidateCredentials(user.Email, "key-123"); err == nil {
		t.Error("removed api key still accepted")
	}
}
