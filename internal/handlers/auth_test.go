package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/dto"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/notifier"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"github.com/yukikurage/task-tracker-api/internal/services"
	"github.com/yukikurage/task-tracker-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db          *gorm.DB
	router      *gin.Engine
	tokens      *auth.TokenManager
	userService *services.UserService
	taskService *services.TaskService
}

func setupTestEnv(t *testing.T) testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	authService := services.NewAuthService(userRepo, bcrypt.MinCost)
	userService := services.NewUserService(userRepo, authService)
	taskService := services.NewTaskService(taskRepo, userRepo, notifier.New(), nil)
	tokens := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.Use(middleware.Language())

	RegisterRoutes(r, Dependencies{
		AuthService: authService,
		UserService: userService,
		TaskService: taskService,
		Tokens:      tokens,
	})

	return testEnv{
		db:          db,
		router:      r,
		tokens:      tokens,
		userService: userService,
		taskService: taskService,
	}
}

// createUser registers a user through the service so the password hash is real
func (env testEnv) createUser(t *testing.T, name, email string, role models.Role) *models.User {
	t.Helper()

	user, err := env.userService.CreateUser(services.CreateUserInput{
		Name:     name,
		Email:    email,
		Role:     role,
		Password: "supersecret",
	})
	require.NoError(t, err)
	return user
}

func (env testEnv) accessToken(t *testing.T, user *models.User) string {
	t.Helper()

	pair, err := env.tokens.Issue(user)
	require.NoError(t, err)
	return pair.AccessToken
}

// do sends a JSON request; token may be empty for anonymous calls
func (env testEnv) do(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, ok := payload.(string)
		if !ok {
			b, err := json.Marshal(payload)
			require.NoError(t, err)
			raw = string(b)
		}
		body = bytes.NewReader([]byte(raw))
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "Lead", "lead@example.com", models.RoleTechLead)

	w := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "lead@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "lead@example.com", resp.User.Email)
	assert.Equal(t, models.RoleTechLead, resp.User.Role)

	// The session cookie authenticates follow-up requests without a token
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	me := httptest.NewRecorder()
	env.router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	var user dto.UserDTO
	require.NoError(t, json.Unmarshal(me.Body.Bytes(), &user))
	assert.Equal(t, resp.User.ID, user.ID)
}

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	env := setupTestEnv(t)
	env.createUser(t, "Dev", "dev@example.com", models.RoleDeveloper)

	tests := []struct {
		name    string
		payload interface{}
		status  int
	}{
		{"wrong password", map[string]string{"email": "dev@example.com", "password": "wrongpass"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "ghost@example.com", "password": "supersecret"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"email": "dev@example.com"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/auth/login", "", tt.payload)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "dev@example.com", "password": "wrongpass"})
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestAuthHandler_Refresh(t *testing.T) {
	env := setupTestEnv(t)
	user := env.createUser(t, "Dev", "dev@example.com", models.RoleDeveloper)

	pair, err := env.tokens.Issue(user)
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/api/auth/refresh", pair.RefreshToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.RefreshResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)

	me := env.do(t, http.MethodGet, "/api/auth/me", resp.AccessToken, nil)
	assert.Equal(t, http.StatusOK, me.Code)

	t.Run("access token cannot refresh", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/refresh", pair.AccessToken, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/auth/refresh", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Logged out successfully")
}

func TestAuthHandler_MeRequiresAuth(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
