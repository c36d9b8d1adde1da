package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/errx/errxfiber"
	"github.com/Abraxas-365/escolar/pkg/iam/auth"
	"github.com/Abraxas-365/escolar/pkg/kernel"
)

var jwtConfig = config.JWTConfig{
	SecretKey:      "test-secret",
	AccessTokenTTL: time.Hour,
	Issuer:         "escolar-test",
	CookieName:     "access_token",
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]auth.User
	login map[kernel.UserID]time.Time
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]auth.User{}, login: map[kernel.UserID]time.Time{}}
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[auth.NormalizeEmail(email)]
	if !ok {
		return nil, auth.ErrUserNotFound()
	}
	return &u, nil
}

func (m *memUsers) FindByID(_ context.Context, id kernel.UserID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound()
}

func (m *memUsers) Save(_ context.Context, user auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.Email] = user
	return nil
}

func (m *memUsers) UpdateLastLogin(_ context.Context, id kernel.UserID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.login[id] = at
	return nil
}

type recordingAudit struct {
	mu       sync.Mutex
	attempts []bool
	created  int
}

func (a *recordingAudit) LogLoginAttempt(_ context.Context, _ kernel.UserID, _ string, success bool, _, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts = append(a.attempts, success)
}
func (a *recordingAudit) LogLogout(context.Context, kernel.UserID, string) {}
func (a *recordingAudit) LogAccountCreated(context.Context, kernel.UserID, kernel.Role, string) {
	a.created++
}

func seed(t *testing.T, users *memUsers, audit *recordingAudit, email string, role kernel.Role) {
	t.Helper()
	created, err := auth.SeedUser(context.Background(), users, audit, email, "user", "Secret123!", role)
	require.NoError(t, err)
	require.True(t, created)
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := auth.NewJWTService(jwtConfig)

	token, expires, err := svc.GenerateAccessToken("u1", map[string]any{
		"email": "t@escolar.local",
		"role":  kernel.RoleTeacher,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, kernel.UserID("u1"), claims.UserID)
	assert.Equal(t, kernel.RoleTeacher, claims.Role)
	assert.Equal(t, kernel.RoleTeacher.Scopes(), claims.Scopes)
}

func TestJWTService_RejectsForeignTokens(t *testing.T) {
	token, _, err := auth.NewJWTService(jwtConfig).GenerateAccessToken("u1", nil)
	require.NoError(t, err)

	other := jwtConfig
	other.SecretKey = "another-secret"
	_, err = auth.NewJWTService(other).ValidateAccessToken(token)
	assert.True(t, errx.IsCode(err, auth.CodeTokenValidationFailed))

	other = jwtConfig
	other.Issuer = "someone-else"
	_, err = auth.NewJWTService(other).ValidateAccessToken(token)
	assert.True(t, errx.IsCode(err, auth.CodeTokenValidationFailed))
}

func TestSeedUser_Idempotent(t *testing.T) {
	users := newMemUsers()
	audit := &recordingAudit{}

	seed(t, users, audit, "Admin@Escolar.local", kernel.RoleAdmin)

	created, err := auth.SeedUser(context.Background(), users, audit, "admin@escolar.local", "admin", "x", kernel.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, audit.created)

	u, err := users.FindByEmail(context.Background(), "admin@escolar.local")
	require.NoError(t, err)
	assert.True(t, u.CheckPassword("Secret123!"))
	assert.False(t, u.CheckPassword("wrong"))

	created, err = auth.SeedUser(context.Background(), users, audit, "x@y.z", "x", "", kernel.RoleAdmin)
	assert.NoError(t, err)
	assert.False(t, created)
}

func newAuthApp(t *testing.T) (*fiber.App, *memUsers, *recordingAudit) {
	t.Helper()
	users := newMemUsers()
	audit := &recordingAudit{}
	seed(t, users, audit, "teacher@escolar.local", kernel.RoleTeacher)

	handlers := auth.NewAuthHandlers(users, auth.NewJWTService(jwtConfig), audit, jwtConfig)
	app := fiber.New(fiber.Config{ErrorHandler: errxfiber.ErrorHandler(false)})
	handlers.RegisterRoutes(app)

	protected := app.Group("/api/private", handlers.Middleware().Authenticate())
	protected.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(c.Locals("auth"))
	})
	protected.Get("/admin", handlers.Middleware().RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app, users, audit
}

func login(t *testing.T, app *fiber.App, email, password string) (*http.Response, auth.LoginResponse) {
	t.Helper()
	body, _ := json.Marshal(auth.LoginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var out auth.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	return resp, out
}

func get(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestLogin_Success(t *testing.T) {
	app, users, audit := newAuthApp(t)

	resp, out := login(t, app, "Teacher@escolar.local", "Secret123!")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.Token)
	require.NotNil(t, out.User)
	assert.Equal(t, kernel.RoleTeacher, out.User.Role)
	assert.Len(t, users.login, 1)
	assert.Equal(t, []bool{true}, audit.attempts)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "access_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	who := get(t, app, "/api/private/whoami", out.Token)
	defer who.Body.Close()
	assert.Equal(t, http.StatusOK, who.StatusCode)

	var ac kernel.AuthContext
	require.NoError(t, json.NewDecoder(who.Body).Decode(&ac))
	assert.Equal(t, "teacher@escolar.local", ac.Email)
	assert.Contains(t, ac.Scopes, "ocr:*")

	assert.Equal(t, http.StatusForbidden, get(t, app, "/api/private/admin", out.Token).StatusCode)
	assert.Equal(t, http.StatusOK, get(t, app, "/api/auth/me", out.Token).StatusCode)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app, _, audit := newAuthApp(t)

	resp, out := login(t, app, "teacher@escolar.local", "nope")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, out.Success)
	assert.Equal(t, "Usuario o contraseña incorrectos", out.Message)

	resp, _ = login(t, app, "ghost@escolar.local", "Secret123!")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, []bool{false, false}, audit.attempts)

	resp, out = login(t, app, "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Datos de login inválidos", out.Message)
}

func TestLogin_InactiveUser(t *testing.T) {
	app, users, _ := newAuthApp(t)
	u := users.users["teacher@escolar.local"]
	u.IsActive = false
	users.users[u.Email] = u

	resp, out := login(t, app, "teacher@escolar.local", "Secret123!")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "El usuario está desactivado", out.Message)
}

func TestAuthenticate_Rejections(t *testing.T) {
	app, _, _ := newAuthApp(t)

	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/api/private/whoami", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(t, app, "/api/private/whoami", "garbage").StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/private/whoami", nil)
	req.Header.Set("Authorization", "Basic abc")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthenticate_Cookie(t *testing.T) {
	app, _, _ := newAuthApp(t)
	_, out := login(t, app, "teacher@escolar.local", "Secret123!")

	req := httptest.NewRequest(http.MethodGet, "/api/private/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: out.Token})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
