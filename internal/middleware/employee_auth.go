package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/field-service-api/internal/errors"
	"github.com/yukikurage/field-service-api/internal/models"
	"github.com/yukikurage/field-service-api/internal/repository"
)

const contextKeyEmployee = "employee"

// RequireEmployeeAccess loads the employee named by :id. The user must be a
// member of the employee's organization.
func RequireEmployeeAccess(employeeRepo repository.EmployeeRepository, orgRepo repository.OrganizationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		employeeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid employee ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		employee, err := employeeRepo.FindByID(c.Request.Context(), employeeID)
		if err != nil {
			abortLookup(c, err, "Employee not found")
			return
		}

		member, err := orgRepo.FindMember(c.Request.Context(), employee.OrganizationID, userID)
		if err != nil {
			abortLookup(c, err, "Employee not found")
			return
		}

		c.Set(contextKeyEmployee, employee)
		c.Set(contextKeyMember, member)
		c.Next()
	}
}

func GetEmployee(c *gin.Context) (*models.Employee, bool) {
	v, ok := c.Get(contextKeyEmployee)
	if !ok {
		return nil, false
	}
	employee, ok := v.(*models.Employee)
	return employee, ok
}

// IsSelfOrDispatcher reports whether the current user is the employee or
// may dispatch in the employee's organization.
func IsSelfOrDispatcher(c *gin.Context) bool {
	employee, ok := GetEmployee(c)
	if !ok {
		return false
	}
	if userID, ok := GetUserID(c); ok && userID == employee.UserID {
		return true
	}
	member, ok := GetOrganizationMember(c)
	return ok && member.Role.CanDispatch()
}
