package http

import (
	"github.com/labstack/echo/v4"
)

func Register(e *echo.Echo, h *TaskHandler) {
	e.GET("/health", h.Health)

	tasks := e.Group("/api/tasks")
	tasks.GET("", h.ListTasks)
	tasks.POST("", h.CreateTask)
	tasks.GET("/:id", h.GetTask)
	tasks.PUT("/:id", h.UpdateTask)
	tasks.DELETE("/:id", h.DeleteTask)
}
