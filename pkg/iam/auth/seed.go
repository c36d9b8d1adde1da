package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/logx"
)

// SeedUser creates the account when no user has the email yet. It is used at
// startup to guarantee a first admin.
func SeedUser(ctx context.Context, users UserRepository, audit AuditService, email, username, password string, role kernel.Role) (bool, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}
	if !role.IsValid() {
		return false, errx.Validation("invalid role").WithDetail("role", role)
	}

	_, err := users.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errx.IsCode(err, CodeUserNotFound) {
		return false, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}

	user := User{
		ID:           kernel.NewUserID(uuid.NewString()),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Save(ctx, user); err != nil {
		return false, err
	}

	audit.LogAccountCreated(ctx, user.ID, role, "seed")
	logx.WithFields(logx.Fields{"email": email, "role": role}).Warn("auth: seeded initial user, change its password")
	return true, nil
}
