package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/field-service-api/internal/dto"
	apierrors "github.com/yukikurage/field-service-api/internal/errors"
	"github.com/yukikurage/field-service-api/internal/middleware"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/services"
)

type EmployeeHandler struct {
	employees *services.EmployeeService
}

func NewEmployeeHandler(employees *services.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{employees: employees}
}

// ListEmployees returns the field staff of an organization
// Optional ?status=available|busy|offline
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)

	var status *models.EmployeeStatus
	if v := c.Query("status"); v != "" {
		s := models.EmployeeStatus(v)
		status = &s
	}

	employees, err := h.employees.ListEmployees(c.Request.Context(), org.ID, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]dto.EmployeeDTO, len(employees))
	for i, e := range employees {
		items[i] = dto.ToEmployeeDTO(e)
	}
	c.JSON(http.StatusOK, gin.H{"employees": items})
}

// CreateEmployee registers an organization member as field staff
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)

	var req dto.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	employee, err := h.employees.CreateEmployee(c.Request.Context(), services.CreateEmployeeInput{
		OrganizationID: org.ID,
		UserID:         req.UserID,
		FullName:       req.FullName,
		Phone:          req.Phone,
		TelegramUserID: req.TelegramUserID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToEmployeeDTO(*employee))
}

func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	employee, _ := middleware.GetEmployee(c)
	c.JSON(http.StatusOK, dto.ToEmployeeDTO(*employee))
}

func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	if !requireDispatcher(c) {
		return
	}
	employee, _ := middleware.GetEmployee(c)

	var req dto.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.employees.UpdateEmployee(c.Request.Context(), employee.ID, services.UpdateEmployeeInput{
		FullName:       req.FullName,
		Phone:          req.Phone,
		TelegramUserID: req.TelegramUserID,
		UnlinkTelegram: req.UnlinkTelegram,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEmployeeDTO(*updated))
}

// UpdateLocation stores a position report from the employee's device
func (h *EmployeeHandler) UpdateLocation(c *gin.Context) {
	if !middleware.IsSelfOrDispatcher(c) {
		apierrors.Forbidden(c, "Only the employee or a dispatcher can report a location")
		return
	}
	employee, _ := middleware.GetEmployee(c)

	var req dto.LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.employees.UpdateLocation(c.Request.Context(), employee.ID, models.Point{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEmployeeDTO(*updated))
}

func (h *EmployeeHandler) SetStatus(c *gin.Context) {
	if !middleware.IsSelfOrDispatcher(c) {
		apierrors.Forbidden(c, "Only the employee or a dispatcher can change availability")
		return
	}
	employee, _ := middleware.GetEmployee(c)

	var req dto.EmployeeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.employees.SetStatus(c.Request.Context(), employee.ID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEmployeeDTO(*updated))
}
