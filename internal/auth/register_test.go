package auth

import (
	"context"
	"testing"

	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/security"
)

// The gorm-backed repository must satisfy every consumer-side interface.
var (
	_ registrarRepository = Repository(nil)
	_ profileRepository   = Repository(nil)
)

func newTestRegistrar(t *testing.T, repo *stubProfileRepo) Registrar {
	t.Helper()
	reg, err := NewRegistrar(repo, testPasswordConfig())
	if err != nil {
		t.Fatalf("build registrar: %v", err)
	}
	return reg
}

func TestRegisterCourier(t *testing.T) {
	repo := newStubProfileRepo()
	reg := newTestRegistrar(t, repo)

	dto, err := reg.Register(context.Background(), enums.ActorRoleDispatcher, RegisterRequest{
		Email:    " New.Courier@Rapidus.app ",
		Password: "s3cure-pass",
		FullName: "New Courier",
		Role:     enums.ActorRoleCourier,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if dto.Email != "new.courier@rapidus.app" {
		t.Fatalf("expected normalized email, got %q", dto.Email)
	}
	if dto.Role != enums.ActorRoleCourier {
		t.Fatalf("unexpected role %s", dto.Role)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one profile, got %d", len(repo.created))
	}
	created := repo.created[0]
	if !created.IsActive {
		t.Fatal("expected new profile active")
	}
	valid, err := security.VerifyPassword("s3cure-pass", created.PasswordHash)
	if err != nil || !valid {
		t.Fatalf("expected stored hash to verify, valid=%v err=%v", valid, err)
	}
}

func TestRegisterRequiresDispatcher(t *testing.T) {
	repo := newStubProfileRepo()
	reg := newTestRegistrar(t, repo)

	_, err := reg.Register(context.Background(), enums.ActorRoleCourier, RegisterRequest{
		Email:    "new.courier@rapidus.app",
		Password: "s3cure-pass",
		FullName: "New Courier",
		Role:     enums.ActorRoleCourier,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatal("expected no profile created")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newStubProfileRepo()
	seedProfile(t, repo, "taken@rapidus.app", "whatever1", enums.ActorRoleCourier, true)
	reg := newTestRegistrar(t, repo)

	_, err := reg.Register(context.Background(), enums.ActorRoleDispatcher, RegisterRequest{
		Email:    "Taken@rapidus.app",
		Password: "s3cure-pass",
		FullName: "Duplicate",
		Role:     enums.ActorRoleCourier,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	reg := newTestRegistrar(t, newStubProfileRepo())

	cases := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing email", RegisterRequest{Password: "s3cure-pass", FullName: "X", Role: enums.ActorRoleCourier}},
		{"missing name", RegisterRequest{Email: "x@rapidus.app", Password: "s3cure-pass", Role: enums.ActorRoleCourier}},
		{"unknown role", RegisterRequest{Email: "x@rapidus.app", Password: "s3cure-pass", FullName: "X", Role: enums.ActorRole("admin")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := reg.Register(context.Background(), enums.ActorRoleDispatcher, tc.req); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
