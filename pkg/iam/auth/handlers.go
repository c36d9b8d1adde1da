package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/iam"
	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/logx"
	"github.com/Abraxas-365/escolar/pkg/ptrx"
)

// AuthHandlers expone login, logout y el perfil del usuario autenticado
type AuthHandlers struct {
	users      UserRepository
	tokens     TokenService
	audit      AuditService
	middleware *TokenMiddleware
	cfg        config.JWTConfig
}

func NewAuthHandlers(users UserRepository, tokens TokenService, audit AuditService, cfg config.JWTConfig) *AuthHandlers {
	return &AuthHandlers{
		users:      users,
		tokens:     tokens,
		audit:      audit,
		middleware: NewAuthMiddleware(tokens, cfg.CookieName),
		cfg:        cfg,
	}
}

// Middleware devuelve el middleware que protege las rutas de la API
func (h *AuthHandlers) Middleware() *TokenMiddleware { return h.middleware }

// RegisterRoutes registra /api/auth/login, /api/auth/logout y /api/auth/me
func (h *AuthHandlers) RegisterRoutes(router fiber.Router) {
	group := router.Group("/api/auth")
	group.Post("/login", h.Login)
	group.Post("/logout", h.middleware.Authenticate(), h.Logout)
	group.Get("/me", h.middleware.Authenticate(), h.Me)
}

// Login valida email y contraseña y devuelve un token de acceso. Las
// credenciales inválidas responden 401 con success=false.
func (h *AuthHandlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(LoginResponse{
			Success: false,
			Message: ErrInvalidLogin().Message,
		})
	}

	resp, err := h.login(c.UserContext(), req, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		if errx.IsCode(err, iam.CodeInvalidCredentials) || errx.IsCode(err, iam.CodeUserInactive) {
			return c.Status(fiber.StatusUnauthorized).JSON(LoginResponse{
				Success: false,
				Message: errx.From(err).Message,
			})
		}
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.middleware.cookieName,
		Value:    resp.Token,
		Expires:  ptrx.Value(resp.ExpiresAt),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(resp)
}

func (h *AuthHandlers) login(ctx context.Context, req LoginRequest, ip, userAgent string) (*LoginResponse, error) {
	email := NormalizeEmail(req.Email)

	user, err := h.users.FindByEmail(ctx, email)
	if err != nil {
		if errx.IsCode(err, CodeUserNotFound) {
			h.audit.LogLoginAttempt(ctx, "", email, false, ip, userAgent)
			return nil, iam.ErrInvalidCredentials()
		}
		return nil, err
	}

	if !user.CheckPassword(req.Password) {
		h.audit.LogLoginAttempt(ctx, user.ID, email, false, ip, userAgent)
		return nil, iam.ErrInvalidCredentials()
	}
	if !user.IsActive {
		h.audit.LogLoginAttempt(ctx, user.ID, email, false, ip, userAgent)
		return nil, iam.ErrUserInactive()
	}

	token, expires, err := h.tokens.GenerateAccessToken(user.ID, map[string]any{
		"email": user.Email,
		"name":  user.Username,
		"role":  user.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := h.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		logx.WithError(err).WithField("user_id", user.ID).Warn("auth: failed to update last login")
	}
	h.audit.LogLoginAttempt(ctx, user.ID, email, true, ip, userAgent)

	return &LoginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: ptrx.To(expires),
		User:      user.DTO(),
	}, nil
}

func (h *AuthHandlers) Logout(c *fiber.Ctx) error {
	if auth, ok := c.Locals("auth").(*kernel.AuthContext); ok && auth.IsValid() {
		h.audit.LogLogout(c.UserContext(), *auth.UserID, c.IP())
	}
	c.ClearCookie(h.middleware.cookieName)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandlers) Me(c *fiber.Ctx) error {
	auth, ok := c.Locals("auth").(*kernel.AuthContext)
	if !ok || !auth.IsValid() {
		return iam.ErrUnauthorized()
	}

	user, err := h.users.FindByID(c.UserContext(), *auth.UserID)
	if err != nil {
		return err
	}
	return c.JSON(user.DTO())
}
