package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/field-service-api/internal/constants"
	"github.com/yukikurage/field-service-api/internal/dto"
	apierrors "github.com/yukikurage/field-service-api/internal/errors"
	"github.com/yukikurage/field-service-api/internal/lifecycle"
	"github.com/yukikurage/field-service-api/internal/middleware"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/services"
	"github.com/yukikurage/field-service-api/internal/utils"
)

type TaskHandler struct {
	tasks     *services.TaskService
	employees *services.EmployeeService
	photos    *services.PhotoService
	comments  *services.CommentService
}

func NewTaskHandler(
	tasks *services.TaskService,
	employees *services.EmployeeService,
	photos *services.PhotoService,
	comments *services.CommentService,
) *TaskHandler {
	return &TaskHandler{
		tasks:     tasks,
		employees: employees,
		photos:    photos,
		comments:  comments,
	}
}

// ListTasks returns all tasks accessible by the current user
// Can filter by organization_id, status, employee_id and active=true
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		UserID:          userID,
		ActiveOnly:      c.Query("active") == "true",
		SortByScheduled: c.Query("sort") == "scheduled",
		Page:            params.Page,
		PageSize:        params.Limit,
	}

	if v := c.Query("organization_id"); v != "" {
		orgID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid organization_id")
			return
		}
		input.OrganizationID = &orgID
	}
	if v := c.Query("employee_id"); v != "" {
		employeeID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid employee_id")
			return
		}
		input.EmployeeID = &employeeID
	}
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.IsValid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &status
	}

	tasks, total, err := h.tasks.ListTasks(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}

// GetTask returns a specific task with its assignee and pause ledger
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, _ := middleware.GetTask(c)

	full, err := h.tasks.GetTask(c.Request.Context(), task.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskDTO(full))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), services.CreateTaskInput{
		OrganizationID: req.OrganizationID,
		CreatorID:      userID,
		Address:        req.Address,
		Location:       models.PointFrom(req.Latitude, req.Longitude),
		WorkType:       req.WorkType,
		Description:    req.Description,
		Priority:       req.Priority,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		ScheduledTime:  req.ScheduledTime,
		EmployeeID:     req.EmployeeID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTaskDTO(task))
}

// UpdateTask edits the descriptive fields of a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	if !requireDispatcher(c) {
		return
	}
	task, _ := middleware.GetTask(c)

	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.tasks.UpdateTask(c.Request.Context(), task.ID, services.UpdateTaskInput{
		Address:            req.Address,
		Location:           models.PointFrom(req.Latitude, req.Longitude),
		WorkType:           req.WorkType,
		Description:        req.Description,
		Priority:           req.Priority,
		CustomerName:       req.CustomerName,
		CustomerPhone:      req.CustomerPhone,
		ScheduledTime:      req.ScheduledTime,
		ClearScheduledTime: req.ClearScheduledTime,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskDTO(updated))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	if err := h.tasks.DeleteTask(c.Request.Context(), task.ID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// AssignTask hands a pending task to an employee
func (h *TaskHandler) AssignTask(c *gin.Context) {
	if !requireDispatcher(c) {
		return
	}
	task, _ := middleware.GetTask(c)

	var req dto.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	assigned, err := h.tasks.Assign(c.Request.Context(), task.ID, req.EmployeeID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskDTO(assigned))
}

// TransitionTask moves a task to the requested status
func (h *TaskHandler) TransitionTask(c *gin.Context) {
	task, _ := middleware.GetTask(c)

	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		apierrors.BadRequest(c, "latitude and longitude must be sent together")
		return
	}

	actor, ok := h.actorFor(c, task)
	if !ok {
		return
	}

	updated, err := h.tasks.Transition(c.Request.Context(), services.TransitionInput{
		TaskID:          task.ID,
		To:              req.Status,
		Channel:         lifecycle.ChannelWeb,
		Location:        req.Point(),
		ActorEmployeeID: actor,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskDTO(updated))
}

// PauseTask opens a pause on an in-progress task
func (h *TaskHandler) PauseTask(c *gin.Context) {
	task, _ := middleware.GetTask(c)
	actor, ok := h.actorFor(c, task)
	if !ok {
		return
	}

	updated, err := h.tasks.Pause(c.Request.Context(), task.ID, lifecycle.ChannelWeb, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskDTO(updated))
}

// ResumeTask closes the open pause
func (h *TaskHandler) ResumeTask(c *gin.Context) {
	task, _ := middleware.GetTask(c)
	actor, ok := h.actorFor(c, task)
	if !ok {
		return
	}

	updated, err := h.tasks.Resume(c.Request.Context(), task.ID, lifecycle.ChannelWeb, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskDTO(updated))
}

// GetTimeBreakdown returns travel and work minutes of a completed task
func (h *TaskHandler) GetTimeBreakdown(c *gin.Context) {
	task, _ := middleware.GetTask(c)

	breakdown, err := h.tasks.TimeBreakdown(c.Request.Context(), task.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

func (h *TaskHandler) ListPauses(c *gin.Context) {
	task, _ := middleware.GetTask(c)

	records, err := h.tasks.ListPauses(c.Request.Context(), task.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pauses":         records,
		"paused_minutes": lifecycle.TotalPausedMinutes(records),
	})
}

// UploadPhotos stores every file of the "photos" multipart field
func (h *TaskHandler) UploadPhotos(c *gin.Context) {
	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		apierrors.BadRequest(c, "Expected a multipart form")
		return
	}

	headers := form.File["photos"]
	files := make([]services.PhotoFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			apierrors.BadRequest(c, fmt.Sprintf("Failed to read %s", fh.Filename))
			return
		}
		files = append(files, services.PhotoFile{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	result, err := h.photos.Upload(c.Request.Context(), task.ID, userID, files)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if len(result.Uploaded) == 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{
		"uploaded": result.Uploaded,
		"failed":   result.Failed,
		"errors":   result.Errors,
	})
}

func (h *TaskHandler) ListPhotos(c *gin.Context) {
	task, _ := middleware.GetTask(c)

	photos, err := h.photos.List(c.Request.Context(), task.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"photos": photos})
}

func (h *TaskHandler) AddComment(c *gin.Context) {
	task, _ := middleware.GetTask(c)
	userID, _ := middleware.GetUserID(c)

	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.comments.Add(c.Request.Context(), services.AddCommentInput{
		TaskID: task.ID,
		UserID: &userID,
		Body:   req.Body,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func (h *TaskHandler) ListComments(c *gin.Context) {
	task, _ := middleware.GetTask(c)

	comments, err := h.comments.List(c.Request.Context(), task.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// DraftTasks proposes tasks from a customer's free-text request. Nothing is
// stored; the operator reviews the drafts and creates tasks from them.
func (h *TaskHandler) DraftTasks(c *gin.Context) {
	var req dto.DraftTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.tasks.DraftTasks(c.Request.Context(), req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}

// actorFor returns the employee acting on task. Owners and operators act as
// dispatchers (nil); everyone else must be the task's employee.
func (h *TaskHandler) actorFor(c *gin.Context, task *models.Task) (*uint64, bool) {
	member, ok := middleware.GetOrganizationMember(c)
	if !ok {
		apierrors.Forbidden(c, "")
		return nil, false
	}
	if member.Role.CanDispatch() {
		return nil, true
	}

	employee, err := h.employees.FindForUser(c.Request.Context(), task.OrganizationID, member.UserID)
	if err != nil {
		if errors.Is(err, services.ErrEmployeeNotFound) {
			apierrors.Forbidden(c, "Only the assigned employee or a dispatcher can change this task")
		} else {
			respondServiceError(c, err)
		}
		return nil, false
	}
	return &employee.ID, true
}

func requireDispatcher(c *gin.Context) bool {
	member, ok := middleware.GetOrganizationMember(c)
	if !ok || !member.Role.CanDispatch() {
		respondServiceError(c, services.ErrNotDispatcher)
		return false
	}
	return true
}

func toTaskDTO(task *models.Task) dto.TaskDTO {
	return dto.ToTaskDTO(*task, lifecycle.Next(task.Status))
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, constants.MaxPhotoSize+1))
}
