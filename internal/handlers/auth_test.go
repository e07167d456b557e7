package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/field-service-api/internal/constants"
	"github.com/yukikurage/field-service-api/internal/dto"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/repository"
	"github.com/yukikurage/field-service-api/internal/services"
	"github.com/yukikurage/field-service-api/internal/testutil"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db          *gorm.DB
	handler     *AuthHandler
	authService *services.AuthService
}

func setupAuthTestEnv(t *testing.T, tokens *services.TokenService) authTestEnv {
	t.Helper()

	db := testutil.NewDB(t)
	authService := services.NewAuthService(repository.NewUserRepository(db), tokens)

	return authTestEnv{
		db:          db,
		handler:     NewAuthHandler(authService),
		authService: authService,
	}
}

func authRouter(env authTestEnv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.POST("/api/auth/signup", env.handler.Signup)
	r.POST("/api/auth/login", env.handler.Login)
	r.POST("/api/auth/token", env.handler.IssueToken)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, url string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAuthTestEnv(t, nil)
	r := authRouter(env)

	payload := map[string]string{
		"username": "newuser",
		"password": "supersecret",
	}
	w := postJSON(t, r, "/api/auth/signup", payload)

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, payload["username"], response.Username)

	w = postJSON(t, r, "/api/auth/signup", payload)
	require.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(t, r, "/api/auth/signup", map[string]string{"username": "shorty", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTestEnv(t, nil)

	_, err := env.authService.Signup(context.Background(), services.SignupInput{
		Username: "existing",
		Password: "supersecret",
	})
	require.NoError(t, err)

	r := authRouter(env)

	w := postJSON(t, r, "/api/auth/login", map[string]string{
		"username": "existing",
		"password": "supersecret",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "existing", response.Username)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")

	w = postJSON(t, r, "/api/auth/login", map[string]string{
		"username": "  Existing ",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, r, "/api/auth/login", map[string]string{
		"username": "existing",
		"password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupAuthTestEnv(t, nil)

	user, err := env.authService.Signup(context.Background(), services.SignupInput{
		Username: "current-user",
		Password: "supersecret",
	})
	require.NoError(t, err)

	org := testutil.CreateOrganization(t, env.db, "crew")
	testutil.AddMember(t, env.db, org.ID, user.ID, models.RoleEmployee)
	require.NoError(t, env.db.Create(&models.Employee{
		OrganizationID: org.ID,
		UserID:         user.ID,
		FullName:       "Current User",
		Status:         models.EmployeeAvailable,
	}).Error)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	c.Set(constants.ContextKeyUserID, user.ID)

	env.handler.GetCurrentUser(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.ProfileDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, user.Username, response.Username)
	require.Len(t, response.EmployeeProfiles, 1)
	require.Equal(t, org.ID, response.EmployeeProfiles[0].OrganizationID)
	require.Equal(t, "Current User", response.EmployeeProfiles[0].FullName)
}

func TestAuthHandler_IssueToken(t *testing.T) {
	tokens := services.NewTokenService("token-secret", time.Hour)
	env := setupAuthTestEnv(t, tokens)

	user, err := env.authService.Signup(context.Background(), services.SignupInput{
		Username: "mobile",
		Password: "supersecret",
	})
	require.NoError(t, err)

	r := authRouter(env)
	w := postJSON(t, r, "/api/auth/token", map[string]string{
		"username": "mobile",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Bearer", response.TokenType)

	userID, err := tokens.Parse(response.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}

func TestAuthHandler_IssueTokenDisabled(t *testing.T) {
	env := setupAuthTestEnv(t, nil)
	r := authRouter(env)

	w := postJSON(t, r, "/api/auth/token", map[string]string{
		"username": "anyone",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRequireAuth_BearerAndSession(t *testing.T) {
	env := newAPIEnv(t)
	user := testutil.CreateUser(t, env.db, "me")

	w := env.do(http.MethodGet, "/api/auth/me", user.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "me", decode[dto.UserDTO](t, w).Username)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = env.send(req, 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	w = env.send(req, 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
