package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"todo-app/backend/internal/middleware"
	"todo-app/backend/internal/models"
	"todo-app/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

type UpdateTaskRequest struct {
	Completed *bool `json:"completed" binding:"required"`
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

func caller(c *gin.Context) *models.User {
	user, _ := middleware.CurrentUser(c)
	return user
}

func (h *TaskHandler) ListPersonal(c *gin.Context) {
	tasks, err := h.taskService.ListPersonal(c.Request.Context(), h.db, caller(c))
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) ListShared(c *gin.Context) {
	tasks, err := h.taskService.ListShared(c.Request.Context(), h.db, caller(c))
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var input services.CreateTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		handleBindError(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), h.db, caller(c), input)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleBindError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), h.db, caller(c), id, *req.Completed)
	if err != nil {
		handleTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), h.db, caller(c), id); err != nil {
		handleTaskError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// taskID parses the :id path parameter. Anything that is not a positive
// integer cannot name a task and is answered with 404.
func taskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		handleTaskError(c, services.ErrNotFound)
		return 0, false
	}
	return uint(id), true
}

// handleBindError reports failed binding tags as a validation_error and
// anything else (malformed JSON, wrong types) as invalid_request.
func handleBindError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fieldErr := fieldErrs[0]
		message := "is invalid"
		if fieldErr.Tag() == "required" {
			message = "is required"
		}
		handleTaskError(c, &services.ValidationError{Field: strings.ToLower(fieldErr.Field()), Message: message})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": "Request body must be a JSON object",
	})
}

func handleTaskError(c *gin.Context, err error) {
	var validationErr *services.ValidationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"field":   validationErr.Field,
			"message": validationErr.Error(),
		})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
	case errors.Is(err, services.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	default:
		log.Printf("❌ Task request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process task request"})
	}
}
