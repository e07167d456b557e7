package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/field-service-api/internal/errors"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/repository"
)

const contextKeyTask = "task"

// RequireTaskAccess checks if the user has access to a task
// User must be a member of the task's organization
func RequireTaskAccess(taskRepo repository.TaskRepository, orgRepo repository.OrganizationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := taskRepo.FindByID(c.Request.Context(), taskID)
		if err != nil {
			abortLookup(c, err, "Task not found")
			return
		}

		member, err := orgRepo.FindMember(c.Request.Context(), task.OrganizationID, userID)
		if err != nil {
			// 404 instead of 403 to avoid leaking task existence
			abortLookup(c, err, "Task not found")
			return
		}

		c.Set(contextKeyTask, task)
		c.Set(contextKeyMember, member)
		c.Next()
	}
}

// GetTask returns the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	v, ok := c.Get(contextKeyTask)
	if !ok {
		return nil, false
	}
	task, ok := v.(*models.Task)
	return task, ok
}
