package services

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

// RegisterInput is the data needed to open an account.
type RegisterInput struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginInput holds login credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates the caller's own account. Empty fields are kept.
type ProfileInput struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password"`
}

// AdminUserInput updates another account. IsAdmin is applied only when present.
type AdminUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsAdmin  *bool  `json:"isAdmin"`
}

// UserService handles business logic related to user accounts.
type UserService struct {
	repo   repositories.UserRepository
	hasher PasswordHasher
	events EventPublisher
}

// NewUserService creates a new UserService. events may be nil.
func NewUserService(repo repositories.UserRepository, hasher PasswordHasher, events EventPublisher) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		events: events,
	}
}

// Register opens a regular account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (models.UserProfile, error) {
	return s.register(ctx, input, false)
}

// CreateAdmin opens an account with administrator rights.
func (s *UserService) CreateAdmin(ctx context.Context, input RegisterInput) (models.UserProfile, error) {
	return s.register(ctx, input, true)
}

func (s *UserService) register(ctx context.Context, input RegisterInput, isAdmin bool) (models.UserProfile, error) {
	trim(&input.Username, &input.Email)
	if err := validateInput(&input); err != nil {
		return models.UserProfile{}, err
	}

	_, err := s.repo.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		return models.UserProfile{}, conflictError(nil, "user already exists")
	case !errors.Is(err, repositories.ErrNotFound):
		return models.UserProfile{}, fmt.Errorf("failed to look up user: %w", err)
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.UserProfile{}, err
	}
	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hashed,
		IsAdmin:  isAdmin,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return models.UserProfile{}, conflictError(err, "user already exists")
		}
		return models.UserProfile{}, fmt.Errorf("failed to register user: %w", err)
	}

	publishEvent(s.events, EventUserRegistered, map[string]interface{}{
		"id":      user.ID,
		"email":   user.Email,
		"isAdmin": user.IsAdmin,
	})
	return user.Profile(), nil
}

// Login checks credentials and returns the matching account.
func (s *UserService) Login(ctx context.Context, input LoginInput) (models.UserProfile, error) {
	trim(&input.Email)
	if err := validateInput(&input); err != nil {
		return models.UserProfile{}, err
	}

	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.UserProfile{}, authError("user not found")
		}
		return models.UserProfile{}, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := s.hasher.Compare(user.Password, input.Password); err != nil {
		return models.UserProfile{}, authError("password mismatch")
	}
	return user.Profile(), nil
}

// ListAll returns every account without password hashes.
func (s *UserService) ListAll(ctx context.Context) ([]models.UserProfile, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	profiles := make([]models.UserProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}
	return profiles, nil
}

func (s *UserService) get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, notFoundError(err, "user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *models.User) error {
	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicate):
			return conflictError(err, "email already in use")
		case errors.Is(err, repositories.ErrNotFound):
			return notFoundError(err, "user not found")
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// GetSelf returns the caller's own account.
func (s *UserService) GetSelf(ctx context.Context, id string) (models.UserProfile, error) {
	return s.GetByID(ctx, id)
}

// UpdateSelf changes the caller's username, email or password.
func (s *UserService) UpdateSelf(ctx context.Context, id string, input ProfileInput) (models.UserProfile, error) {
	trim(&input.Username, &input.Email)
	if err := validateInput(&input); err != nil {
		return models.UserProfile{}, err
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return models.UserProfile{}, err
	}

	if input.Username != "" {
		user.Username = input.Username
	}
	if input.Email != "" {
		user.Email = input.Email
	}
	if input.Password != "" {
		hashed, err := s.hasher.Hash(input.Password)
		if err != nil {
			return models.UserProfile{}, err
		}
		user.Password = hashed
	}
	if err := s.save(ctx, user); err != nil {
		return models.UserProfile{}, err
	}
	return user.Profile(), nil
}

// DeleteByID removes an account. Administrators cannot be deleted.
func (s *UserService) DeleteByID(ctx context.Context, id string) error {
	user, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if user.IsAdmin {
		return forbiddenError("cannot delete admin")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundError(err, "user not found")
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	publishEvent(s.events, EventUserDeleted, map[string]interface{}{
		"id":    user.ID,
		"email": user.Email,
	})
	return nil
}

// GetByID returns any account.
func (s *UserService) GetByID(ctx context.Context, id string) (models.UserProfile, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return models.UserProfile{}, err
	}
	return user.Profile(), nil
}

// UpdateByID lets an administrator change another account.
func (s *UserService) UpdateByID(ctx context.Context, id string, input AdminUserInput) (models.UserProfile, error) {
	trim(&input.Username, &input.Email)
	if err := validateInput(&input); err != nil {
		return models.UserProfile{}, err
	}
	user, err := s.get(ctx, id)
	if err != nil {
		return models.UserProfile{}, err
	}

	if input.Username != "" {
		user.Username = input.Username
	}
	if input.Email != "" {
		user.Email = input.Email
	}
	if input.IsAdmin != nil {
		user.IsAdmin = *input.IsAdmin
	}
	if err := s.save(ctx, user); err != nil {
		return models.UserProfile{}, err
	}
	return user.Profile(), nil
}
