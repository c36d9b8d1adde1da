package kernel

// ============================================================================
// Context Types - Tipos para context.Context
// ============================================================================

// AuthContext es el contexto de autenticación que se inyecta en cada request
type AuthContext struct {
	UserID *UserID  `json:"user_id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Role   Role     `json:"role"`
	Scopes []string `json:"scopes"`
}

// IsValid verifica si el AuthContext es válido
func (ac *AuthContext) IsValid() bool {
	return ac.UserID != nil && !ac.UserID.IsEmpty()
}

// HasScope verifica si el contexto tiene un scope específico.
// "*" concede todo y "ocr:*" concede cualquier "ocr:<acción>".
func (ac *AuthContext) HasScope(scope string) bool {
	for _, s := range ac.Scopes {
		if s == scope || s == "*" {
			return true
		}
		if len(s) > 2 && s[len(s)-2:] == ":*" {
			prefix := s[:len(s)-2]
			if len(scope) > len(prefix) && scope[:len(prefix)] == prefix && scope[len(prefix)] == ':' {
				return true
			}
		}
	}
	return false
}

// IsAdmin verifica si el contexto tiene permisos de administrador
func (ac *AuthContext) IsAdmin() bool {
	return ac.Role == RoleAdmin || ac.HasScope("*")
}

// ============================================================================
// Context Keys - Claves para context.Context
// ============================================================================

type ContextKey string

const (
	AuthContextKey ContextKey = "auth_context"
	RequestIDKey   ContextKey = "request_id"
)
