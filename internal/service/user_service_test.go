package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"compass-llm/internal/domain"
)

type mockUserRepo struct {
	byEmail map[string]domain.User
	created []domain.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: make(map[string]domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.created = append(m.created, user)
	m.byEmail[user.Email] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	for _, user := range m.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func TestUserRegister(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(nil, repo)

	user, err := svc.Register(context.Background(), " User@Example.com ", " Ana ", "supersecret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "user@example.com" {
		t.Fatalf("expected normalized email, got %q", user.Email)
	}
	if user.DisplayName != "Ana" {
		t.Fatalf("expected trimmed display name, got %q", user.DisplayName)
	}
	if user.ID == "" || user.CreatedAt.IsZero() {
		t.Fatalf("expected id and created_at set")
	}
	if user.PasswordHash == "supersecret" || user.PasswordHash == "" {
		t.Fatalf("expected hashed password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")) != nil {
		t.Fatalf("expected hash to verify against original password")
	}
}

func TestUserRegister_Validation(t *testing.T) {
	svc := NewUserService(nil, newMockUserRepo())

	if _, err := svc.Register(context.Background(), "not-an-email", "X", "supersecret"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "a@b.com", "X", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestUserRegister_EmailTaken(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(nil, repo)

	if _, err := svc.Register(context.Background(), "a@b.com", "X", "supersecret"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "A@B.com", "Y", "othersecret"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserAuthenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(nil, repo)

	registered, err := svc.Register(context.Background(), "a@b.com", "X", "supersecret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Authenticate(context.Background(), "A@B.com", "supersecret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("expected same user, got %+v", user)
	}

	if _, err := svc.Authenticate(context.Background(), "a@b.com", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@b.com", "supersecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUserService_NotConfigured(t *testing.T) {
	var svc *UserService
	if _, err := svc.Register(context.Background(), "a@b.com", "X", "supersecret"); !errors.Is(err, ErrUserServiceNotConfigured) {
		t.Fatalf("expected ErrUserServiceNotConfigured, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "a@b.com", "supersecret"); !errors.Is(err, ErrUserServiceNotConfigured) {
		t.Fatalf("expected ErrUserServiceNotConfigured, got %v", err)
	}
}
