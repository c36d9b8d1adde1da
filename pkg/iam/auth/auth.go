package auth

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/kernel"
)

// ============================================================================
// User
// ============================================================================

// User es una cuenta del colegio que puede iniciar sesión
type User struct {
	ID           kernel.UserID `db:"id" json:"id"`
	Email        string        `db:"email" json:"email"`
	Username     string        `db:"username" json:"username"`
	PasswordHash string        `db:"password_hash" json:"-"`
	Role         kernel.Role   `db:"role" json:"role"`
	IsActive     bool          `db:"is_active" json:"is_active"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	LastLoginAt  *time.Time    `db:"last_login_at" json:"last_login_at,omitempty"`
}

// CheckPassword compara la contraseña con el hash bcrypt guardado
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// AuthContext construye el contexto que el middleware pone en cada request
func (u *User) AuthContext() *kernel.AuthContext {
	id := u.ID
	return &kernel.AuthContext{
		UserID: &id,
		Email:  u.Email,
		Name:   u.Username,
		Role:   u.Role,
		Scopes: u.Role.Scopes(),
	}
}

// HashPassword genera el hash bcrypt de una contraseña
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}
	return string(hash), nil
}

// NormalizeEmail es la forma en que se guardan y buscan los emails
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ============================================================================
// Token Types
// ============================================================================

// TokenClaims represents JWT claims
type TokenClaims struct {
	UserID    kernel.UserID `json:"user_id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Role      kernel.Role   `json:"role"`
	Scopes    []string      `json:"scopes"`
	IssuedAt  time.Time     `json:"iat"`
	ExpiresAt time.Time     `json:"exp"`
}

// ============================================================================
// DTOs
// ============================================================================

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success   bool       `json:"success"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	User      *UserDTO   `json:"user,omitempty"`
	Message   string     `json:"message,omitempty"`
}

type UserDTO struct {
	ID       kernel.UserID `json:"id"`
	Email    string        `json:"email"`
	Username string        `json:"username"`
	Role     kernel.Role   `json:"role"`
}

func (u *User) DTO() *UserDTO {
	return &UserDTO{ID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role}
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeUserNotFound          = ErrRegistry.Register("USER_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "User not found")
	CodeTokenGenerationFailed = ErrRegistry.Register("TOKEN_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Token generation failed")
	CodeTokenValidationFailed = ErrRegistry.Register("TOKEN_VALIDATION_FAILED", errx.TypeAuthorization, http.StatusUnauthorized, "Token validation failed")
	CodeInvalidLogin          = ErrRegistry.Register("INVALID_LOGIN", errx.TypeValidation, http.StatusBadRequest, "Datos de login inválidos")
)

// Helper functions
func ErrUserNotFound() *errx.Error {
	return ErrRegistry.New(CodeUserNotFound)
}

func ErrTokenGenerationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenGenerationFailed)
}

func ErrTokenValidationFailed() *errx.Error {
	return ErrRegistry.New(CodeTokenValidationFailed)
}

func ErrInvalidLogin() *errx.Error {
	return ErrRegistry.New(CodeInvalidLogin)
}
