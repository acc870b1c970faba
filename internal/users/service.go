package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/secure/precis"

	"github.com/kaucher/gatehouse/internal/shared"
)

// RegisterInput carries the validated registration payload.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns a page of users plus pagination metadata.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	meta := shared.NewPagination(page, perPage, total)
	list, err := s.repo.ListUsers(ctx, meta.PerPage, (meta.Page-1)*meta.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, meta, nil
}

// GetUser fetches a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// Register normalizes identifiers, hashes the password and stores the user.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	username, err := normalizeIdentifier(input.Username)
	if err != nil {
		return nil, fmt.Errorf("users: invalid username: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, email, username, string(hash))
}

// AssignRole links a role to a user.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	return s.repo.AssignRole(ctx, userID, roleID)
}

// normalizeIdentifier case-folds and confusable-checks usernames so two
// visually identical names cannot coexist.
func normalizeIdentifier(raw string) (string, error) {
	return precis.UsernameCaseMapped.String(strings.TrimSpace(raw))
}
