// Package users provides credential store implementations. Lookups are by
// exact, case-sensitive username; records handed out are read-only copies.
package users

import (
	"context"

	"github.com/avolkovs/cookiegate/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// UpdatePassword swaps salt and digest in a single statement so the
	// stored pair can never go out of step.
	UpdatePassword(ctx context.Context, username string, salt []byte, passwordHash string) error
}
