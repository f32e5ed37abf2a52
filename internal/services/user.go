package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/cybercards/apiserver/internal/store"
	"github.com/cybercards/apiserver/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Count(ctx context.Context) (int, error)
}

// SeedUser describes an account created at process start if absent.
type SeedUser struct {
	Username string
	Email    string
	Password string
	Role     string
}

// DefaultSeedUsers are the demo accounts the reference server ships with.
var DefaultSeedUsers = []SeedUser{
	{Username: "admin", Email: "admin@cybercards.com", Password: "admin123", Role: types.RoleAdmin},
	{Username: "demo", Email: "demo@example.com", Password: "demo123", Role: types.RoleUser},
}

// dummyHash keeps the bcrypt comparison on the unknown-username path, so
// a login failure takes the same time whether or not the username exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("credential-timing-pad"), bcrypt.DefaultCost)

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Register hashes the password and creates an account with the standard
// role. Returns store.ErrDuplicate if the username or email is taken.
func (s *UserService) Register(ctx context.Context, username, email, password string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Role:         types.RoleUser,
		PasswordHash: string(hashed),
	})
}

// Authenticate verifies a username/password pair. Unknown username and
// wrong password both map to store.ErrNotFound so callers cannot tell
// which check failed.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

// EnsureSeedUsers creates the given accounts if they do not already
// exist. Idempotent across restarts of a persistent store.
func (s *UserService) EnsureSeedUsers(ctx context.Context, seeds []SeedUser) error {
	for _, seed := range seeds {
		_, err := s.repo.GetByUsername(ctx, seed.Username)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash seed password: %w", err)
		}
		_, err = s.repo.Create(ctx, types.User{
			ID:           uuid.NewString(),
			Username:     seed.Username,
			Email:        seed.Email,
			Role:         seed.Role,
			PasswordHash: string(hashed),
		})
		if err != nil && !errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("seed user %s: %w", seed.Username, err)
		}
	}
	return nil
}
