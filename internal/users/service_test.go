package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kaucher/gatehouse/internal/shared"
)

type stubRepo struct {
	byEmail  map[string]*User
	assigns  map[int64][]int64
	nextID   int64
	lastHash string
}

func newStubRepo() *stubRepo {
	return &stubRepo{byEmail: make(map[string]*User), assigns: make(map[int64][]int64), nextID: 1}
}

func (s *stubRepo) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	all := make([]User, 0, len(s.byEmail))
	for _, u := range s.byEmail {
		all = append(all, *u)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *stubRepo) CountUsers(ctx context.Context) (int, error) {
	return len(s.byEmail), nil
}

func (s *stubRepo) GetUser(ctx context.Context, id int64) (*User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) CreateUser(ctx context.Context, email, username, passwordHash string) (*User, error) {
	if _, ok := s.byEmail[email]; ok {
		return nil, shared.ErrDuplicateUser
	}
	user := &User{
		ID:        s.nextID,
		Email:     email,
		Username:  username,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.nextID++
	s.byEmail[email] = user
	s.lastHash = passwordHash
	return user, nil
}

func (s *stubRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	s.assigns[userID] = append(s.assigns[userID], roleID)
	return nil
}

func TestRegisterNormalizesIdentifiers(t *testing.T) {
	repo := newStubRepo()
	service := NewService(repo)

	user, err := service.Register(context.Background(), RegisterInput{
		Email:    "  New.User@Example.COM ",
		Username: "  NewUser ",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", user.Email)
	assert.Equal(t, "newuser", user.Username)

	err = bcrypt.CompareHashAndPassword([]byte(repo.lastHash), []byte("correct horse"))
	assert.NoError(t, err, "stored hash should verify against the original password")
}

func TestRegisterDuplicate(t *testing.T) {
	repo := newStubRepo()
	service := NewService(repo)
	ctx := context.Background()

	_, err := service.Register(ctx, RegisterInput{Email: "a@b.c", Username: "alpha", Password: "secret1234"})
	require.NoError(t, err)

	_, err = service.Register(ctx, RegisterInput{Email: "A@B.C", Username: "alpha2", Password: "secret1234"})
	assert.ErrorIs(t, err, shared.ErrDuplicateUser, "email comparison is case-insensitive")
}

func TestListUsersPagination(t *testing.T) {
	repo := newStubRepo()
	service := NewService(repo)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three", "four", "five"} {
		_, err := service.Register(ctx, RegisterInput{
			Email:    name + "@example.com",
			Username: name,
			Password: "secret1234",
		})
		require.NoError(t, err)
	}

	page, meta, err := service.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, 5, meta.Total)
	assert.Equal(t, 3, meta.TotalPages)

	// Out-of-range page numbers clamp to the defaults rather than erroring.
	_, meta, err = service.ListUsers(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.Page)
	assert.Equal(t, 20, meta.PerPage)
}

func TestAssignRoleUnknownUser(t *testing.T) {
	repo := newStubRepo()
	service := NewService(repo)

	err := service.AssignRole(context.Background(), 42, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
