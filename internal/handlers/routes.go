package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/auth"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
	"github.com/yukikurage/task-tracker-api/internal/services"
)

// Dependencies holds what the HTTP layer needs to serve the API
type Dependencies struct {
	AuthService *services.AuthService
	UserService *services.UserService
	TaskService *services.TaskService
	Tokens      *auth.TokenManager
}

// RegisterRoutes mounts the health check and every API route on r. Session
// middleware must already be installed.
func RegisterRoutes(r gin.IRouter, deps Dependencies) {
	authHandler := NewAuthHandler(deps.AuthService, deps.Tokens)
	userHandler := NewUserHandler(deps.UserService)
	taskHandler := NewTaskHandler(deps.TaskService)

	requireAuth := middleware.RequireAuth(deps.AuthService, deps.Tokens)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Tracker API is running",
		})
	})

	api := r.Group("/api")
	{
		// Auth routes
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh", authHandler.Refresh)
			authRoutes.POST("/logout", authHandler.Logout)
			authRoutes.GET("/me", requireAuth, authHandler.GetCurrentUser)
		}

		// User routes; registration is public
		users := api.Group("/users")
		{
			users.POST("", userHandler.CreateUser)
			users.GET("", requireAuth, userHandler.ListUsers)
			users.GET("/:id", requireAuth, middleware.RequireIDParams("id"), userHandler.GetUser)
			users.PUT("/:id", requireAuth, middleware.RequireIDParams("id"), userHandler.UpdateUser)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/:id", middleware.RequireIDParams("id"), taskHandler.GetTask)
			tasks.PUT("/:id", middleware.RequireIDParams("id"), taskHandler.UpdateTask)
			tasks.DELETE("/:id", middleware.RequireIDParams("id"), taskHandler.DeleteTask)
			tasks.PUT("/:id/status", middleware.RequireIDParams("id"), taskHandler.UpdateTaskStatus)
			tasks.PUT("/:id/priority", middleware.RequireIDParams("id"), taskHandler.UpdateTaskPriority)
			tasks.POST("/:id/assign/:user_id", middleware.RequireIDParams("id", "user_id"), taskHandler.AssignTask)
			tasks.DELETE("/:id/unassign/:user_id", middleware.RequireIDParams("id", "user_id"), taskHandler.UnassignTask)
		}
	}
}
