package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/field-service-api/internal/constants"
	"github.com/yukikurage/field-service-api/internal/lifecycle"
	"github.com/yukikurage/field-service-api/internal/logger"
	"github.com/yukikurage/field-service-api/internal/repository"
	"github.com/yukikurage/field-service-api/internal/services"
	"github.com/yukikurage/field-service-api/internal/storage"
	"github.com/yukikurage/field-service-api/internal/testutil"
	"gorm.io/gorm"
)

// apiEnv is the full HTTP stack over an in-memory database.
type apiEnv struct {
	t         *testing.T
	db        *gorm.DB
	router    *gin.Engine
	routes    *Router
	tokens    *services.TokenService
	tasks     *services.TaskService
	auth      *services.AuthService
	publisher *testutil.Publisher
	storage   *storage.MemoryStorage
	updates   *recordingUpdates
}

func newAPIEnv(t *testing.T, opts ...services.TaskServiceOption) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	log := logger.Discard()

	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)

	tokens := services.NewTokenService("test-secret", time.Hour)
	publisher := &testutil.Publisher{}
	store := storage.NewMemoryStorage()

	authService := services.NewAuthService(userRepo, tokens)
	employeeService := services.NewEmployeeService(employeeRepo, orgRepo)
	taskService := services.NewTaskService(
		taskRepo,
		repository.NewPauseRepository(db),
		employeeRepo,
		orgRepo,
		lifecycle.NewMachine(nil),
		publisher,
		append([]services.TaskServiceOption{services.WithLogger(log)}, opts...)...,
	)
	photoService := services.NewPhotoService(repository.NewPhotoRepository(db), taskRepo, store)
	commentService := services.NewCommentService(repository.NewCommentRepository(db), taskRepo)
	updates := &recordingUpdates{}

	rt := &Router{
		Auth:          NewAuthHandler(authService),
		Organizations: NewOrganizationHandler(services.NewOrganizationService(orgRepo)),
		Tasks:         NewTaskHandler(taskService, employeeService, photoService, commentService),
		Employees:     NewEmployeeHandler(employeeService),
		Reports:       NewReportHandler(services.NewReportService(taskRepo, time.UTC)),
		Bot:           NewBotHandler(updates, "hook-secret", log),
		Tokens:        tokens,
		OrgRepo:       orgRepo,
		TaskRepo:      taskRepo,
		EmployeeRepo:  employeeRepo,
	}

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	rt.Register(r)

	return &apiEnv{
		t:         t,
		db:        db,
		router:    r,
		routes:    rt,
		tokens:    tokens,
		tasks:     taskService,
		auth:      authService,
		publisher: publisher,
		storage:   store,
		updates:   updates,
	}
}

// do sends a JSON request as userID. A zero userID sends no credentials.
func (e *apiEnv) do(method, path string, userID uint64, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, userID)
}

func (e *apiEnv) send(req *http.Request, userID uint64) *httptest.ResponseRecorder {
	e.t.Helper()
	if userID != 0 {
		token, _, err := e.tokens.Issue(userID)
		require.NoError(e.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details"`
}

func urlf(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
