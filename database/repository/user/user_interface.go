package userRepo

import (
	"context"

	"localcity/models"

	"go.mongodb.org/mongo-driver/bson"
)

// Recipient is the projection of a user needed to address an email.
type Recipient struct {
	Email string `bson:"email"`
	Name  string `bson:"name"`
}

// UserRepository defines methods for user data access.
type UserRepository interface {
	// GetByID retrieves a user by its unique ID.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail retrieves a user by its email address.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// List returns one page of users matching filter and the total count.
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	// Create inserts a new user record.
	Create(ctx context.Context, user *models.User) error
	// UpdateFields applies a $set document and returns the stored user.
	UpdateFields(ctx context.Context, id string, fields bson.M) (*models.User, error)
	// Delete removes a user record by its ID.
	Delete(ctx context.Context, id string) error
	// Recipients returns the active users holding any of roles.
	Recipients(ctx context.Context, roles []models.Role) ([]Recipient, error)
}
