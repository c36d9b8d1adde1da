package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Abraxas-365/escolar/pkg/iam"
	"github.com/Abraxas-365/escolar/pkg/kernel"
)

// TokenMiddleware middleware para autenticación JWT con Fiber
type TokenMiddleware struct {
	tokenService TokenService
	cookieName   string
}

// NewAuthMiddleware crea un nuevo middleware de autenticación
func NewAuthMiddleware(tokenService TokenService, cookieName string) *TokenMiddleware {
	if cookieName == "" {
		cookieName = "access_token"
	}
	return &TokenMiddleware{
		tokenService: tokenService,
		cookieName:   cookieName,
	}
}

// Authenticate middleware que valida tokens JWT del header Authorization o
// de la cookie de acceso
func (am *TokenMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Cookies(am.cookieName)
		}
		if token == "" {
			if c.Get(fiber.HeaderAuthorization) != "" {
				return iam.ErrInvalidToken()
			}
			return iam.ErrUnauthorized()
		}

		claims, err := am.tokenService.ValidateAccessToken(token)
		if err != nil {
			return err
		}

		userID := claims.UserID
		scopes := claims.Scopes
		if len(scopes) == 0 {
			scopes = claims.Role.Scopes()
		}

		c.Locals("auth", &kernel.AuthContext{
			UserID: &userID,
			Email:  claims.Email,
			Name:   claims.Name,
			Role:   claims.Role,
			Scopes: scopes,
		})
		return c.Next()
	}
}

// RequireAdmin middleware que requiere permisos de administrador
func (am *TokenMiddleware) RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authContext, ok := c.Locals("auth").(*kernel.AuthContext)
		if !ok || authContext == nil {
			return iam.ErrUnauthorized()
		}
		if !authContext.IsAdmin() {
			return iam.ErrAccessDenied()
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
