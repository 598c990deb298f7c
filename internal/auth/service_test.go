package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/rapidusexpress/rapidus-backend/pkg/auth"
	"github.com/rapidusexpress/rapidus-backend/pkg/auth/session"
	"github.com/rapidusexpress/rapidus-backend/pkg/config"
	"github.com/rapidusexpress/rapidus-backend/pkg/db/models"
	"github.com/rapidusexpress/rapidus-backend/pkg/enums"
	pkgerrors "github.com/rapidusexpress/rapidus-backend/pkg/errors"
	"github.com/rapidusexpress/rapidus-backend/pkg/security"
)

type stubProfileRepo struct {
	profiles  map[string]*models.Profile
	lastLogin map[uuid.UUID]time.Time
	created   []*models.Profile
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{
		profiles:  make(map[string]*models.Profile),
		lastLogin: make(map[uuid.UUID]time.Time),
	}
}

func (s *stubProfileRepo) FindByEmail(_ context.Context, email string) (*models.Profile, error) {
	profile, ok := s.profiles[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return profile, nil
}

func (s *stubProfileRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin[id] = at
	return nil
}

func (s *stubProfileRepo) Create(_ context.Context, profile *models.Profile) error {
	s.created = append(s.created, profile)
	s.profiles[profile.Email] = profile
	return nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	if provided != "refresh-"+oldAccessID {
		return "", "", session.ErrInvalidRefreshToken
	}
	newAccessID := session.NewAccessID()
	return newAccessID, "refresh-" + newAccessID, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret-test-secret-test-secret!",
		Issuer:            "rapidus-test",
		ExpirationMinutes: 15,
	}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8 * 1024,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func seedProfile(t *testing.T, repo *stubProfileRepo, email, password string, role enums.ActorRole, active bool) *models.Profile {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	profile := &models.Profile{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test Actor",
		Role:         role,
		IsActive:     active,
		CreatedAt:    time.Now().UTC(),
	}
	repo.profiles[email] = profile
	return profile
}

func newTestAuthService(t *testing.T, repo *stubProfileRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		ProfileRepo:    repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestLoginSuccess(t *testing.T) {
	repo := newStubProfileRepo()
	sessions := &stubSessionManager{}
	profile := seedProfile(t, repo, "dispatch@rapidus.app", "s3cure-pass", enums.ActorRoleDispatcher, true)
	svc := newTestAuthService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "  Dispatch@Rapidus.app ", Password: "s3cure-pass"})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if resp.Profile.ID != profile.ID {
		t.Fatalf("unexpected profile %s", resp.Profile.ID)
	}
	if _, ok := repo.lastLogin[profile.ID]; !ok {
		t.Fatal("expected last login recorded")
	}
	if len(sessions.generated) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions.generated))
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.ActorID != profile.ID {
		t.Fatalf("unexpected actor %s", claims.ActorID)
	}
	if claims.Role != enums.ActorRoleDispatcher {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.ID != sessions.generated[0] {
		t.Fatal("expected token jti to match stored session")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newStubProfileRepo()
	sessions := &stubSessionManager{}
	seedProfile(t, repo, "courier@rapidus.app", "right-pass", enums.ActorRoleCourier, true)
	svc := newTestAuthService(t, repo, sessions)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "courier@rapidus.app", Password: "wrong-pass"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if len(sessions.generated) != 0 {
		t.Fatal("expected no session on failed login")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := newTestAuthService(t, newStubProfileRepo(), &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ghost@rapidus.app", Password: "whatever"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginInactiveProfile(t *testing.T) {
	repo := newStubProfileRepo()
	seedProfile(t, repo, "former@rapidus.app", "s3cure-pass", enums.ActorRoleCourier, false)
	svc := newTestAuthService(t, repo, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "former@rapidus.app", Password: "s3cure-pass"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	repo := newStubProfileRepo()
	sessions := &stubSessionManager{}
	profile := seedProfile(t, repo, "dispatch@rapidus.app", "s3cure-pass", enums.ActorRoleDispatcher, true)
	svc := newTestAuthService(t, repo, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "dispatch@rapidus.app", Password: "s3cure-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if refreshed.AccessToken == login.AccessToken {
		t.Fatal("expected a fresh access token")
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Fatal("expected a fresh refresh token")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.ActorID != profile.ID {
		t.Fatalf("unexpected actor %s", claims.ActorID)
	}
}

func TestRefreshRejectsMismatchedToken(t *testing.T) {
	repo := newStubProfileRepo()
	sessions := &stubSessionManager{}
	seedProfile(t, repo, "dispatch@rapidus.app", "s3cure-pass", enums.ActorRoleDispatcher, true)
	svc := newTestAuthService(t, repo, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{Email: "dispatch@rapidus.app", Password: "s3cure-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: "stolen-token",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRejectsGarbageAccessToken(t *testing.T) {
	svc := newTestAuthService(t, newStubProfileRepo(), &stubSessionManager{})

	_, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "not-a-jwt",
		RefreshToken: "anything",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessionManager{}
	svc := newTestAuthService(t, newStubProfileRepo(), sessions)

	if err := svc.Logout(context.Background(), "access-123"); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "access-123" {
		t.Fatalf("expected revoke call, got %v", sessions.revoked)
	}
}
