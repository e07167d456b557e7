package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/field-service-api/internal/errors"
	"github.com/yukikurage/field-service-api/internal/lifecycle"
	"github.com/yukikurage/field-service-api/internal/logger"
	"github.com/yukikurage/field-service-api/internal/reports"
	"github.com/yukikurage/field-service-api/internal/services"
)

// respondServiceError maps task, employee and report errors onto the API
// envelope. Unknown errors are logged and answered with 500.
func respondServiceError(c *gin.Context, err error) {
	if apierrors.Lifecycle(c, err) {
		return
	}

	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrEmployeeNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotOrganizationMember),
		errors.Is(err, services.ErrNotTaskAssignee):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrNotDispatcher):
		apierrors.RespondWithError(c, http.StatusForbidden, apierrors.NewAPIError(apierrors.ErrCodeInsufficientPermissions, err.Error()))
	case errors.Is(err, services.ErrAddressRequired),
		errors.Is(err, services.ErrFullNameRequired):
		apierrors.RespondWithError(c, http.StatusBadRequest, apierrors.NewAPIError(apierrors.ErrCodeMissingField, err.Error()))
	case errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidEmployeeStatus),
		errors.Is(err, services.ErrInvalidTaskAssignee),
		errors.Is(err, services.ErrInvalidReportQuery),
		errors.Is(err, services.ErrCommentEmpty),
		errors.Is(err, services.ErrNoPhotos),
		errors.Is(err, services.ErrTooManyPhotos):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrTaskClosed),
		errors.Is(err, reports.ErrTaskNotCompleted),
		errors.Is(err, lifecycle.ErrOverlappingPauses):
		apierrors.RespondWithError(c, http.StatusConflict, apierrors.NewAPIError(apierrors.ErrCodeInvalidOperation, err.Error()))
	case errors.Is(err, services.ErrEmployeeExists):
		apierrors.RespondWithError(c, http.StatusConflict, apierrors.NewAPIError(apierrors.ErrCodeAlreadyExists, err.Error()))
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI drafting is not configured")
	case errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.RespondWithError(c, http.StatusUnprocessableEntity, apierrors.NewAPIError(apierrors.ErrCodeOperationFailed, err.Error()))
	default:
		logger.Logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		apierrors.InternalError(c, "")
	}
}
