package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/field-service-api/internal/middleware"
	"github.com/yukikurage/field-service-api/internal/repository"
	"github.com/yukikurage/field-service-api/internal/services"
)

// Router bundles everything the HTTP routes need. Bot may be nil when no
// chat transport is configured; a Bot without a webhook secret is not mounted.
type Router struct {
	Auth          *AuthHandler
	Organizations *OrganizationHandler
	Tasks         *TaskHandler
	Employees     *EmployeeHandler
	Reports       *ReportHandler
	Bot           *BotHandler

	Tokens       *services.TokenService
	OrgRepo      repository.OrganizationRepository
	TaskRepo     repository.TaskRepository
	EmployeeRepo repository.EmployeeRepository
}

// Register mounts the health check, the API and the bot webhook on r.
// Session middleware must already be installed.
func (rt *Router) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Field Service API is running",
		})
	})

	requireAuth := middleware.RequireAuth(rt.Tokens)
	orgAccess := middleware.RequireOrganizationAccess(rt.OrgRepo)
	taskAccess := middleware.RequireTaskAccess(rt.TaskRepo, rt.OrgRepo)
	employeeAccess := middleware.RequireEmployeeAccess(rt.EmployeeRepo, rt.OrgRepo)
	owner := middleware.RequireOrganizationOwner()

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", rt.Auth.Signup)
			auth.POST("/login", rt.Auth.Login)
			auth.POST("/logout", rt.Auth.Logout)
			auth.POST("/token", rt.Auth.IssueToken)
			auth.GET("/me", requireAuth, rt.Auth.GetCurrentUser)
		}

		orgs := api.Group("/organizations")
		orgs.Use(requireAuth)
		{
			orgs.POST("", rt.Organizations.CreateOrganization)
			orgs.GET("", rt.Organizations.ListOrganizations)
			orgs.POST("/join", rt.Organizations.JoinOrganization)
			orgs.GET("/:id", orgAccess, rt.Organizations.GetOrganization)
			orgs.PUT("/:id", orgAccess, owner, rt.Organizations.UpdateOrganization)
			orgs.DELETE("/:id", orgAccess, owner, rt.Organizations.DeleteOrganization)
			orgs.POST("/:id/regenerate-code", orgAccess, owner, rt.Organizations.RegenerateInviteCode)
			orgs.DELETE("/:id/members/:user_id", orgAccess, owner, rt.Organizations.RemoveMember)
			orgs.PUT("/:id/members/:user_id/role", orgAccess, owner, rt.Organizations.UpdateMemberRole)

			orgs.GET("/:id/employees", orgAccess, rt.Employees.ListEmployees)
			orgs.POST("/:id/employees", orgAccess, middleware.RequireDispatcher(), rt.Employees.CreateEmployee)
			orgs.GET("/:id/reports/daily", orgAccess, middleware.RequireReportViewer(), rt.Reports.Daily)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", rt.Tasks.ListTasks)
			tasks.POST("", rt.Tasks.CreateTask)
			tasks.POST("/draft", rt.Tasks.DraftTasks)
			tasks.GET("/:id", taskAccess, rt.Tasks.GetTask)
			tasks.PATCH("/:id", taskAccess, rt.Tasks.UpdateTask)
			tasks.DELETE("/:id", taskAccess, rt.Tasks.DeleteTask)
			tasks.POST("/:id/assign", taskAccess, rt.Tasks.AssignTask)
			tasks.POST("/:id/transition", taskAccess, rt.Tasks.TransitionTask)
			tasks.POST("/:id/pause", taskAccess, rt.Tasks.PauseTask)
			tasks.POST("/:id/resume", taskAccess, rt.Tasks.ResumeTask)
			tasks.GET("/:id/time", taskAccess, rt.Tasks.GetTimeBreakdown)
			tasks.GET("/:id/pauses", taskAccess, rt.Tasks.ListPauses)
			tasks.POST("/:id/photos", taskAccess, rt.Tasks.UploadPhotos)
			tasks.GET("/:id/photos", taskAccess, rt.Tasks.ListPhotos)
			tasks.POST("/:id/comments", taskAccess, rt.Tasks.AddComment)
			tasks.GET("/:id/comments", taskAccess, rt.Tasks.ListComments)
		}

		employees := api.Group("/employees")
		employees.Use(requireAuth)
		{
			employees.GET("/:id", employeeAccess, rt.Employees.GetEmployee)
			employees.PATCH("/:id", employeeAccess, rt.Employees.UpdateEmployee)
			employees.PUT("/:id/location", employeeAccess, rt.Employees.UpdateLocation)
			employees.PUT("/:id/status", employeeAccess, rt.Employees.SetStatus)
		}
	}

	switch {
	case rt.Bot == nil:
	case !rt.Bot.Secured():
		rt.Bot.log.Error("TELEGRAM_WEBHOOK_SECRET is empty, refusing to mount /bot/webhook")
	default:
		r.POST("/bot/webhook", rt.Bot.Webhook)
	}
}
