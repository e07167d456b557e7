package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/field-service-api/internal/dto"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/services"
	"github.com/yukikurage/field-service-api/internal/testutil"
)

// TaskHandlerTestSuite drives the task endpoints through the router
type TaskHandlerTestSuite struct {
	suite.Suite
	env      *apiEnv
	org      *models.Organization
	operator *models.User
	manager  *models.User
	outsider *models.User
	employee *models.Employee
	other    *models.Employee
}

func (suite *TaskHandlerTestSuite) SetupTest() {
	suite.env = newAPIEnv(suite.T())
	db := suite.env.db
	t := suite.T()

	suite.org = testutil.CreateOrganization(t, db, "acme")
	suite.operator = testutil.CreateUser(t, db, "operator")
	testutil.AddMember(t, db, suite.org.ID, suite.operator.ID, models.RoleOperator)
	suite.manager = testutil.CreateUser(t, db, "manager")
	testutil.AddMember(t, db, suite.org.ID, suite.manager.ID, models.RoleManager)
	suite.outsider = testutil.CreateUser(t, db, "outsider")
	suite.employee = testutil.CreateEmployee(t, db, suite.org.ID, "ivan", nil)
	suite.other = testutil.CreateEmployee(t, db, suite.org.ID, "petr", nil)
}

func (suite *TaskHandlerTestSuite) createTask(body map[string]interface{}) dto.TaskDTO {
	if _, ok := body["organization_id"]; !ok {
		body["organization_id"] = suite.org.ID
	}
	if _, ok := body["address"]; !ok {
		body["address"] = "12 Baker Street"
	}
	w := suite.env.do(http.MethodPost, "/api/tasks", suite.operator.ID, body)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.TaskDTO](suite.T(), w)
}

func (suite *TaskHandlerTestSuite) transition(taskID uint64, userID uint64, body map[string]interface{}) *httptest.ResponseRecorder {
	return suite.env.do(http.MethodPost, urlf("/api/tasks/%d/transition", taskID), userID, body)
}

func (suite *TaskHandlerTestSuite) TestRequiresAuthentication() {
	w := suite.env.do(http.MethodGet, "/api/tasks", 0, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Success() {
	task := suite.createTask(map[string]interface{}{
		"address":   "  12 Baker Street ",
		"latitude":  51.5237,
		"longitude": -0.1585,
		"work_type": "boiler repair",
		"priority":  "high",
	})

	assert.Equal(suite.T(), int64(1), task.OrderNumber)
	assert.Equal(suite.T(), "12 Baker Street", task.Address)
	assert.Equal(suite.T(), models.TaskStatusPending, task.Status)
	assert.Equal(suite.T(), models.PriorityHigh, task.Priority)
	suite.Require().NotNil(task.Location)
	assert.InDelta(suite.T(), 51.5237, task.Location.Latitude, 1e-9)
	assert.Equal(suite.T(), []models.TaskStatus{models.TaskStatusAssigned, models.TaskStatusCancelled}, task.NextStatuses)

	second := suite.createTask(map[string]interface{}{})
	assert.Equal(suite.T(), int64(2), second.OrderNumber)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_WithEmployeeStartsAssigned() {
	task := suite.createTask(map[string]interface{}{"employee_id": suite.employee.ID})

	assert.Equal(suite.T(), models.TaskStatusAssigned, task.Status)
	suite.Require().NotNil(task.Employee)
	assert.Equal(suite.T(), "ivan", task.Employee.FullName)
}

func (suite *TaskHandlerTestSuite) TestCreateTask_Rejected() {
	w := suite.env.do(http.MethodPost, "/api/tasks", suite.operator.ID, map[string]interface{}{
		"organization_id": suite.org.ID,
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.env.do(http.MethodPost, "/api/tasks", suite.operator.ID, map[string]interface{}{
		"organization_id": suite.org.ID,
		"address":         "1 Elm Street",
		"priority":        "whenever",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.env.do(http.MethodPost, "/api/tasks", suite.outsider.ID, map[string]interface{}{
		"organization_id": suite.org.ID,
		"address":         "1 Elm Street",
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.env.do(http.MethodPost, "/api/tasks", suite.manager.ID, map[string]interface{}{
		"organization_id": suite.org.ID,
		"address":         "1 Elm Street",
	})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
	assert.Equal(suite.T(), "INSUFFICIENT_PERMISSIONS", decode[errorBody](suite.T(), w).Code)
}

func (suite *TaskHandlerTestSuite) TestListTasks_Filters() {
	suite.createTask(map[string]interface{}{})
	suite.createTask(map[string]interface{}{"employee_id": suite.employee.ID})
	suite.createTask(map[string]interface{}{"employee_id": suite.other.ID})

	w := suite.env.do(http.MethodGet, urlf("/api/tasks?organization_id=%d", suite.org.ID), suite.operator.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	all := decode[dto.TaskListResponse](suite.T(), w)
	assert.Equal(suite.T(), int64(3), all.TotalCount)
	assert.Len(suite.T(), all.Tasks, 3)

	w = suite.env.do(http.MethodGet, "/api/tasks?status=assigned", suite.operator.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), int64(2), decode[dto.TaskListResponse](suite.T(), w).TotalCount)

	w = suite.env.do(http.MethodGet, urlf("/api/tasks?employee_id=%d", suite.employee.ID), suite.operator.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	mine := decode[dto.TaskListResponse](suite.T(), w)
	suite.Require().Len(mine.Tasks, 1)
	assert.Equal(suite.T(), int64(2), mine.Tasks[0].OrderNumber)

	w = suite.env.do(http.MethodGet, "/api/tasks?limit=2&page=2", suite.operator.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	paged := decode[dto.TaskListResponse](suite.T(), w)
	assert.Len(suite.T(), paged.Tasks, 1)
	assert.Equal(suite.T(), 2, paged.TotalPages)

	w = suite.env.do(http.MethodGet, "/api/tasks?status=sleeping", suite.operator.ID, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.env.do(http.MethodGet, urlf("/api/tasks?organization_id=%d", suite.org.ID), suite.outsider.ID, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.env.do(http.MethodGet, "/api/tasks", suite.outsider.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Empty(suite.T(), decode[dto.TaskListResponse](suite.T(), w).Tasks)
}

func (suite *TaskHandlerTestSuite) TestGetTask_AccessControl() {
	task := suite.createTask(map[string]interface{}{})

	w := suite.env.do(http.MethodGet, urlf("/api/tasks/%d", task.ID), suite.manager.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), task.ID, decode[dto.TaskDTO](suite.T(), w).ID)

	w = suite.env.do(http.MethodGet, urlf("/api/tasks/%d", task.ID), suite.outsider.ID, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.env.do(http.MethodGet, "/api/tasks/999", suite.operator.ID, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.env.do(http.MethodGet, "/api/tasks/abc", suite.operator.ID, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *TaskHandlerTestSuite) TestRoundTrip() {
	task := suite.createTask(map[string]interface{}{})
	loc := map[string]interface{}{"latitude": 55.75, "longitude": 37.62}

	w := suite.env.do(http.MethodPost, urlf("/api/tasks/%d/assign", task.ID), suite.operator.ID,
		map[string]interface{}{"employee_id": suite.employee.ID})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.transition(task.ID, suite.employee.UserID, map[string]interface{}{"status": "en_route"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.transition(task.ID, suite.employee.UserID, map[string]interface{}{"status": "in_progress"})
	suite.Require().Equal(http.StatusUnprocessableEntity, w.Code)
	assert.Equal(suite.T(), "MISSING_LOCATION", decode[errorBody](suite.T(), w).Code)

	body := map[string]interface{}{"status": "in_progress"}
	for k, v := range loc {
		body[k] = v
	}
	w = suite.transition(task.ID, suite.employee.UserID, body)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	started := decode[dto.TaskDTO](suite.T(), w)
	suite.Require().NotNil(started.StartLocation)
	assert.InDelta(suite.T(), 55.75, started.StartLocation.Latitude, 1e-9)

	w = suite.env.do(http.MethodPost, urlf("/api/tasks/%d/pause", task.ID), suite.employee.UserID, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), models.TaskStatusPaused, decode[dto.TaskDTO](suite.T(), w).Status)

	w = suite.env.do(http.MethodPost, urlf("/api/tasks/%d/pause", task.ID), suite.employee.UserID, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "ALREADY_PAUSED", decode[errorBody](suite.T(), w).Code)

	w = suite.env.do(http.MethodPost, urlf("/api/tasks/%d/resume", task.ID), suite.employee.UserID, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.env.do(http.MethodPost, urlf("/api/tasks/%d/resume", task.ID), suite.employee.UserID, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "NO_ACTIVE_PAUSE", decode[errorBody](suite.T(), w).Code)

	w = suite.env.do(http.MethodGet, urlf("/api/tasks/%d/time", task.ID), suite.operator.ID, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.transition(task.ID, suite.employee.UserID, map[string]interface{}{"status": "completed"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	completed := decode[dto.TaskDTO](suite.T(), w)
	suite.Require().NotNil(completed.CompletedAt)
	suite.Require().NotNil(completed.StartedAt)
	assert.False(suite.T(), completed.CompletedAt.Before(*completed.StartedAt))
	assert.Empty(suite.T(), completed.NextStatuses)

	w = suite.transition(task.ID, suite.operator.ID, map[string]interface{}{"status": "completed"})
	suite.Require().Equal(http.StatusConflict, w.Code)
	errBody := decode[errorBody](suite.T(), w)
	assert.Equal(suite.T(), "INVALID_TRANSITION", errBody.Code)
	assert.Equal(suite.T(), "completed", errBody.Details["from"])

	w = suite.env.do(http.MethodGet, urlf("/api/tasks/%d/pauses", task.ID), suite.operator.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	pauses := decode[struct {
		Pauses []models.PauseRecord `json:"pauses"`
	}](suite.T(), w)
	suite.Require().Len(pauses.Pauses, 1)
	assert.NotNil(suite.T(), pauses.Pauses[0].ResumedAt)

	w = suite.env.do(http.MethodGet, urlf("/api/tasks/%d/time", task.ID), suite.operator.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.True(suite.T(), decode[map[string]interface{}](suite.T(), w)["has_real_data"].(bool))

	statuses := make([]models.TaskStatus, 0)
	for _, e := range suite.env.publisher.Events() {
		statuses = append(statuses, e.To)
	}
	assert.Equal(suite.T(), []models.TaskStatus{
		models.TaskStatusAssigned,
		models.TaskStatusEnRoute,
		models.TaskStatusInProgress,
		models.TaskStatusPaused,
		models.TaskStatusInProgress,
		models.TaskStatusCompleted,
	}, statuses)
}

func (suite *TaskHandlerTestSuite) TestTransition_OnlyAssigneeOrDispatcher() {
	task := suite.createTask(map[string]interface{}{"employee_id": suite.employee.ID})

	w := suite.transition(task.ID, suite.other.UserID, map[string]interface{}{"status": "en_route"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.transition(task.ID, suite.manager.ID, map[string]interface{}{"status": "en_route"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.transition(task.ID, suite.operator.ID, map[string]interface{}{"status": "cancelled"})
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), models.TaskStatusCancelled, decode[dto.TaskDTO](suite.T(), w).Status)
}

func (suite *TaskHandlerTestSuite) TestTransition_BadRequests() {
	task := suite.createTask(map[string]interface{}{})

	w := suite.transition(task.ID, suite.operator.ID, map[string]interface{}{"status": "flying"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.transition(task.ID, suite.operator.ID, map[string]interface{}{"status": "in_progress", "latitude": 10.0})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.transition(task.ID, suite.operator.ID, map[string]interface{}{"status": "in_progress"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.transition(task.ID, suite.operator.ID, map[string]interface{}{"status": "assigned"})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
	errBody := decode[errorBody](suite.T(), w)
	assert.Equal(suite.T(), "MISSING_DEPENDENCY", errBody.Code)
	assert.Equal(suite.T(), "assignee", errBody.Details["missing"])
}

func (suite *TaskHandlerTestSuite) TestUpdateAndDelete() {
	task := suite.createTask(map[string]interface{}{})

	w := suite.env.do(http.MethodPatch, urlf("/api/tasks/%d", task.ID), suite.operator.ID,
		map[string]interface{}{"description": "bring a ladder", "priority": "urgent"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	updated := decode[dto.TaskDTO](suite.T(), w)
	assert.Equal(suite.T(), "bring a ladder", updated.Description)
	assert.Equal(suite.T(), models.PriorityUrgent, updated.Priority)

	w = suite.env.do(http.MethodPatch, urlf("/api/tasks/%d", task.ID), suite.employee.UserID,
		map[string]interface{}{"description": "nope"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.transition(task.ID, suite.operator.ID, map[string]interface{}{"status": "cancelled"})
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.env.do(http.MethodPatch, urlf("/api/tasks/%d", task.ID), suite.operator.ID,
		map[string]interface{}{"description": "too late"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.env.do(http.MethodDelete, urlf("/api/tasks/%d", task.ID), suite.employee.UserID, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.env.do(http.MethodDelete, urlf("/api/tasks/%d", task.ID), suite.operator.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	w = suite.env.do(http.MethodGet, urlf("/api/tasks/%d", task.ID), suite.operator.ID, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *TaskHandlerTestSuite) TestPhotosAndComments() {
	task := suite.createTask(map[string]interface{}{"employee_id": suite.employee.ID})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range []struct{ name, contentType, data string }{
		{"meter.jpg", "image/jpeg", "jpeg-bytes"},
		{"notes.txt", "text/plain", "plain"},
	} {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="photos"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		suite.Require().NoError(err)
		_, err = part.Write([]byte(f.data))
		suite.Require().NoError(err)
	}
	suite.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, urlf("/api/tasks/%d/photos", task.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := suite.env.send(req, suite.employee.UserID)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	result := decode[services.UploadResult](suite.T(), w)
	suite.Require().Len(result.Uploaded, 1)
	assert.Equal(suite.T(), 1, result.Failed)
	data, ok := suite.env.storage.Get(result.Uploaded[0].ObjectKey)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), []byte("jpeg-bytes"), data)

	w = suite.env.do(http.MethodGet, urlf("/api/tasks/%d/photos", task.ID), suite.operator.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Len(suite.T(), decode[map[string][]models.TaskPhoto](suite.T(), w)["photos"], 1)

	w = suite.env.do(http.MethodPost, urlf("/api/tasks/%d/comments", task.ID), suite.operator.ID,
		map[string]string{"body": "gate code 1234"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.env.do(http.MethodPost, urlf("/api/tasks/%d/comments", task.ID), suite.operator.ID,
		map[string]string{"body": "   "})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.env.do(http.MethodGet, urlf("/api/tasks/%d/comments", task.ID), suite.employee.UserID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	comments := decode[map[string][]models.TaskComment](suite.T(), w)["comments"]
	suite.Require().Len(comments, 1)
	assert.Equal(suite.T(), "gate code 1234", comments[0].Body)
	assert.Equal(suite.T(), suite.operator.ID, *comments[0].UserID)
}

func (suite *TaskHandlerTestSuite) TestDraftTasks_NotConfigured() {
	w := suite.env.do(http.MethodPost, "/api/tasks/draft", suite.operator.ID, map[string]string{"text": "my sink leaks"})
	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}

type stubDrafter struct {
	drafts []services.DraftTask
}

func (d stubDrafter) DraftTasks(context.Context, string) ([]services.DraftTask, error) {
	return d.drafts, nil
}

func TestTaskHandler_DraftTasks(t *testing.T) {
	env := newAPIEnv(t, services.WithDrafter(stubDrafter{drafts: []services.DraftTask{
		{Address: "7 Park Lane", WorkType: "plumbing", Priority: models.PriorityHigh},
	}}))
	user := testutil.CreateUser(t, env.db, "operator")

	w := env.do(http.MethodPost, "/api/tasks/draft", user.ID, map[string]string{"text": "my sink leaks at 7 Park Lane"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	drafts := decode[map[string][]services.DraftTask](t, w)["drafts"]
	if assert.Len(t, drafts, 1) {
		assert.Equal(t, "7 Park Lane", drafts[0].Address)
	}

	w = env.do(http.MethodPost, "/api/tasks/draft", user.ID, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
