package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/diarioapp/diario/internal/apperror"
	"github.com/diarioapp/diario/internal/auth"
	"github.com/diarioapp/diario/internal/model"
	"github.com/rs/xid"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests dependency-free and easy
// to read — you can see exactly what the fake does.
type fakeUserRepo struct {
	users map[string]*model.User // keyed by email
	// set to a non-nil error to simulate a database failure
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[user.Email]; ok {
		return apperror.Conflict("user", user.Email)
	}
	user.ID = xid.New().String()
	user.CreatedAt = time.Now()
	copied := *user
	f.users[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.users[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return u, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum — makes tests fast
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(repo, ts, ps, testLogger())
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_NewUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	result, err := svc.Register(context.Background(), "mario@example.com", "Mario", "segretissimo")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if result.Token == "" {
		t.Fatal("Register() returned empty Token")
	}
	if result.User.Email != "mario@example.com" {
		t.Errorf("User.Email = %q, want %q", result.User.Email, "mario@example.com")
	}
	if result.User.PasswordHash == "segretissimo" {
		t.Error("password stored in plaintext")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), "mario@example.com", "Mario", "pw1"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(context.Background(), "mario@example.com", "Impostor", "pw2")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("second Register() error = %v, want ErrConflict", err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), "", "Mario", "pw"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Register() without email: error = %v, want ErrValidation", err)
	}
	if _, err := svc.Register(context.Background(), "mario@example.com", "Mario", ""); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Register() without password: error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), "mario@example.com", "Mario", "segretissimo"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.Login(context.Background(), "mario@example.com", "segretissimo")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// The token subject must be the email — it is the identity everything
	// else is scoped to.
	identity, err := svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if identity != "mario@example.com" {
		t.Errorf("token subject = %q, want %q", identity, "mario@example.com")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), "mario@example.com", "Mario", "segretissimo"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Login(context.Background(), "mario@example.com", "wrong")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Login() error = %v, want ErrUnauthorized", err)
	}
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), "mario@example.com", "Mario", "segretissimo"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Unknown email and wrong password must be indistinguishable.
	_, errUnknown := svc.Login(context.Background(), "nobody@example.com", "segretissimo")
	_, errWrongPw := svc.Login(context.Background(), "mario@example.com", "wrong")

	if !errors.Is(errUnknown, apperror.ErrUnauthorized) {
		t.Fatalf("unknown email error = %v, want ErrUnauthorized", errUnknown)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Errorf("error messages differ: %q vs %q", errUnknown, errWrongPw)
	}
}

func TestLogin_GitHubOnlyAccountHasNoPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	gh := &auth.GitHubUser{ID: 42, Login: "octocat", Email: "octo@example.com"}
	if _, err := svc.LoginOrRegisterGitHub(context.Background(), gh); err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	// An empty stored hash must never verify, whatever the guess.
	_, err := svc.Login(context.Background(), "octo@example.com", "")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Login() on GitHub-only account: error = %v, want ErrUnauthorized", err)
	}
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	gh := &auth.GitHubUser{ID: 42, Login: "octocat", Name: "The Octocat", Email: "octo@example.com"}
	result, err := svc.LoginOrRegisterGitHub(context.Background(), gh)
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if result.User.Email != "octo@example.com" {
		t.Errorf("User.Email = %q, want %q", result.User.Email, "octo@example.com")
	}
	if result.User.Name != "The Octocat" {
		t.Errorf("User.Name = %q, want %q", result.User.Name, "The Octocat")
	}
	if result.Token == "" {
		t.Error("LoginOrRegisterGitHub() returned empty Token")
	}
}

func TestLoginOrRegisterGitHub_ExistingAccountIsReused(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	if _, err := svc.Register(context.Background(), "mario@example.com", "Mario", "pw"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// GitHub sign-in with the same email lands on the existing account.
	gh := &auth.GitHubUser{ID: 7, Login: "mario-gh", Email: "mario@example.com"}
	result, err := svc.LoginOrRegisterGitHub(context.Background(), gh)
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.User.Name != "Mario" {
		t.Errorf("User.Name = %q, want existing %q", result.User.Name, "Mario")
	}
	if len(repo.users) != 1 {
		t.Errorf("account count = %d, want 1", len(repo.users))
	}
}

func TestLoginOrRegisterGitHub_NoEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	gh := &auth.GitHubUser{ID: 42, Login: "octocat"}
	_, err := svc.LoginOrRegisterGitHub(context.Background(), gh)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("LoginOrRegisterGitHub() without email: error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginOrRegisterGitHub_NilUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Fatal("LoginOrRegisterGitHub() should reject a nil GitHub user")
	}
}
