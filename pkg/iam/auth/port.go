package auth

import (
	"context"
	"time"

	"github.com/Abraxas-365/escolar/pkg/kernel"
)

// UserRepository defines the contract for user persistence
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id kernel.UserID) (*User, error)
	Save(ctx context.Context, user User) error
	UpdateLastLogin(ctx context.Context, id kernel.UserID, at time.Time) error
}

// TokenService defines the contract for JWT token management
type TokenService interface {
	GenerateAccessToken(userID kernel.UserID, claims map[string]any) (string, time.Time, error)
	ValidateAccessToken(token string) (*TokenClaims, error)
}

// AuditService defines the contract for authentication audit logging
type AuditService interface {
	LogLoginAttempt(ctx context.Context, userID kernel.UserID, email string, success bool, ip string, userAgent string)
	LogLogout(ctx context.Context, userID kernel.UserID, ip string)
	LogAccountCreated(ctx context.Context, userID kernel.UserID, role kernel.Role, method string)
}
