package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/field-service-api/internal/errors"
	"github.com/yukikurage/field-service-api/internal/middleware"
	"github.com/yukikurage/field-service-api/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Daily returns completed work grouped by day
// Query: from, to (YYYY-MM-DD, inclusive, in the organization's timezone),
// employee_id, sort, order, net=true
func (h *ReportHandler) Daily(c *gin.Context) {
	org, _ := middleware.GetOrganization(c)

	input := services.DailyReportInput{
		OrganizationID: org.ID,
		Location:       org.Location(h.reports.DefaultLocation()),
		From:           c.Query("from"),
		To:             c.Query("to"),
		SortBy:         c.Query("sort"),
		Order:          c.Query("order"),
		NetOfPause:     c.Query("net") == "true",
	}
	if v := c.Query("employee_id"); v != "" {
		employeeID, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid employee_id")
			return
		}
		input.EmployeeID = &employeeID
	}

	days, err := h.reports.Daily(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days})
}
