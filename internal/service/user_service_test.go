package service

import (
	"context"
	"errors"
	"testing"

	"github.com/traveltrust/trustd/internal/domain"
)

func TestUserRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		params RegisterUserParams
	}{
		{"empty email", RegisterUserParams{Email: "", Role: domain.UserRoleTourist}},
		{"email without at sign", RegisterUserParams{Email: "nope", Role: domain.UserRoleTourist}},
		{"unknown role", RegisterUserParams{Email: "a@example.com", Role: "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.users.Register(ctx, tt.params); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("Register() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestUserRegister_DuplicateEmailRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.users.Register(ctx, RegisterUserParams{Email: "dup@example.com", Role: domain.UserRoleTourist}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := f.users.Register(ctx, RegisterUserParams{Email: "DUP@example.com", Role: domain.UserRoleGuide})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate register: error = %v, want ErrAlreadyExists", err)
	}
}

func TestUserSetKYCStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.registerTourist(t, "t@example.com")

	if _, err := f.users.SetKYCStatus(ctx, u.ID, "approved"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("bogus status: error = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.users.SetKYCStatus(ctx, "missing", domain.KYCStatusVerified); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing user: error = %v, want ErrNotFound", err)
	}

	updated, err := f.users.SetKYCStatus(ctx, u.ID, domain.KYCStatusVerified)
	if err != nil {
		t.Fatalf("set kyc: %v", err)
	}
	if updated.KYCStatus != domain.KYCStatusVerified {
		t.Errorf("kyc status = %s, want verified", updated.KYCStatus)
	}
	if updated.Role != domain.UserRoleTourist {
		t.Errorf("role changed by kyc update: %s", updated.Role)
	}
}
