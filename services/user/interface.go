package user

import (
	"context"
	"fmt"
	"time"

	userRepo "localcity/database/repository/user"
	"localcity/models"
)

type UserService interface {
	// User management
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role, actorID string) (*models.User, error)
	Suspend(ctx context.Context, id, actorID string) (*models.User, error)
	Reactivate(ctx context.Context, id string) (*models.User, error)
	DeleteUser(ctx context.Context, id, actorID string) error

	// Admin authentication
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	BootstrapAdmin(ctx context.Context, email, password string) error
}

// DefaultUserService is the production implementation.
type DefaultUserService struct {
	Repo     userRepo.UserRepository
	TokenTTL time.Duration
	Now      func() time.Time
}

// AuthResponse contains the admin's ID, token, and additional details.
type AuthResponse struct {
	ID        string      `json:"id"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Email     string      `json:"email"`
	Name      string      `json:"name,omitempty"`
	Role      models.Role `json:"role"`
}

func NewDefaultUserService(repo userRepo.UserRepository, tokenTTL time.Duration) (*DefaultUserService, error) {
	if repo == nil {
		return nil, fmt.Errorf("user service initialization error: repository is nil")
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &DefaultUserService{Repo: repo, TokenTTL: tokenTTL, Now: time.Now}, nil
}
