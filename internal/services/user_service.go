package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken       = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrPasswordTooShort = fmt.Errorf("password too short: %w", ErrValidation)
	ErrNameRequired     = fmt.Errorf("name is required: %w", ErrValidation)
	ErrEmailRequired    = fmt.Errorf("email is required: %w", ErrValidation)
	ErrInvalidRole      = fmt.Errorf("invalid role: %w", ErrValidation)
)

// UserService handles user business logic
type UserService struct {
	userRepo repository.UserRepository
	auth     *AuthService
}

// NewUserService creates a new UserService
func NewUserService(userRepo repository.UserRepository, auth *AuthService) *UserService {
	return &UserService{
		userRepo: userRepo,
		auth:     auth,
	}
}

// CreateUserInput represents input for registering a user
type CreateUserInput struct {
	Name     string
	Email    string
	Role     models.Role
	Password string
}

// UpdateUserInput represents a partial user update. Nil fields are kept.
type UpdateUserInput struct {
	Name  *string
	Email *string
	Role  *models.Role
}

// CreateUser registers a user with a unique email
func (s *UserService) CreateUser(input CreateUserInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" {
		return nil, ErrNameRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if err := s.ensureEmailAvailable(email, 0); err != nil {
		return nil, err
	}

	hash, err := s.auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.Create(&models.User{
		Name:         name,
		Email:        email,
		Role:         input.Role,
		PasswordHash: hash,
	})
	if err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// UpdateUser overwrites the provided fields of an existing user
func (s *UserService) UpdateUser(id uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.GetUser(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		user.Name = name
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		if email != user.Email {
			if err := s.ensureEmailAvailable(email, user.ID); err != nil {
				return nil, err
			}
		}
		user.Email = email
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, ErrInvalidRole
		}
		user.Role = *input.Role
	}

	updated, err := s.userRepo.Update(user)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrEmailTaken
		default:
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	return updated, nil
}

// ListUsers returns users filtered by role and by a name/email search term
func (s *UserService) ListUsers(role *models.Role, search string) ([]models.User, error) {
	if role != nil && !role.Valid() {
		return nil, ErrInvalidRole
	}

	users, err := s.userRepo.List(role, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(id uint64) (*models.User, error) {
	return s.auth.GetUser(id)
}

// GetUserByEmail retrieves a user by email
func (s *UserService) GetUserByEmail(email string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ensureEmailAvailable fails with ErrEmailTaken when email belongs to a user
// other than ownerID
func (s *UserService) ensureEmailAvailable(email string, ownerID uint64) error {
	existing, err := s.userRepo.FindByEmail(email)
	if err == nil {
		if existing.ID != ownerID {
			return ErrEmailTaken
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}
