package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/acero-crm/acero-crm/internal/auth"
	"github.com/acero-crm/acero-crm/internal/profile"
	"github.com/acero-crm/acero-crm/internal/shared"
	_ "github.com/acero-crm/acero-crm/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil {
		return nil, shared.ErrInvalidCredentials
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

type stubDirectory struct {
	display profile.Display
}

func (s stubDirectory) Lookup(ctx context.Context, email string) profile.Display {
	return s.display
}

func newAuthRouter(t *testing.T, repo auth.Repository) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	directory := stubDirectory{display: profile.Display{Name: "Ana Torres", Role: "Ventas"}}
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager, directory)

	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)
	return router, sessionManager
}

func doLogin(t *testing.T, router http.Handler, sessionManager *shared.SessionManager, email, password string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	body := strings.NewReader(`{"email":"` + email + `","password":"` + password + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr, sess
}

func TestLoginSuccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	repo := &stubRepo{user: &auth.User{
		ID:           7,
		Email:        "ana@acero.mx",
		FullName:     "Ana Torres",
		PasswordHash: string(hash),
		IsActive:     true,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	rr, sess := doLogin(t, router, sessionManager, "ana@acero.mx", "supersecret")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if sess.User() != "7" {
		t.Fatalf("expected session user 7, got %q", sess.User())
	}
	if !strings.Contains(rr.Body.String(), "Ana Torres") {
		t.Fatalf("expected display name in response, got %s", rr.Body.String())
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	repo := &stubRepo{user: &auth.User{
		ID:           7,
		Email:        "ana@acero.mx",
		PasswordHash: string(hash),
		IsActive:     true,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	rr, sess := doLogin(t, router, sessionManager, "ana@acero.mx", "wrongpassword")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if sess.User() != "" {
		t.Fatalf("expected no session user, got %q", sess.User())
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	repo := &stubRepo{user: &auth.User{
		ID:           7,
		Email:        "ana@acero.mx",
		PasswordHash: string(hash),
		IsActive:     false,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	rr, _ := doLogin(t, router, sessionManager, "ana@acero.mx", "supersecret")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestLoginValidatesPayload(t *testing.T) {
	router, sessionManager := newAuthRouter(t, &stubRepo{})

	rr, _ := doLogin(t, router, sessionManager, "not-an-email", "short")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	repo := &stubRepo{user: &auth.User{
		ID:           7,
		Email:        "ana@acero.mx",
		PasswordHash: string(hash),
		IsActive:     true,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("7")
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
