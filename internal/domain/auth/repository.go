package auth

import (
	"context"

	"skusync/internal/core/id"
)

// Repository defines user storage operations.
type Repository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail retrieves a user by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates user data.
	Update(ctx context.Context, user *User) error

	// Delete removes a user.
	Delete(ctx context.Context, userID id.ID) error

	// List retrieves all users ordered by creation time.
	List(ctx context.Context) ([]User, error)

	// Exists checks if an email is taken.
	Exists(ctx context.Context, email string) (bool, error)

	// Count returns the number of users.
	Count(ctx context.Context) (int, error)
}
