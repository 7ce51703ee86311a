package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/dto"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
	"github.com/yukikurage/task-tracker-api/internal/middleware"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/services"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// ListTasks lists tasks visible to the current user. At most one filter
// applies: user_id, then status, then priority, then due_date.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var input services.ListTasksInput
	if v, ok := c.GetQuery("user_id"); ok {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			apierrors.BadRequest(c, "invalid_id")
			return
		}
		input.UserID = &id
	}
	if v, ok := c.GetQuery("status"); ok {
		status := models.TaskStatus(v)
		input.Status = &status
	}
	if v, ok := c.GetQuery("priority"); ok {
		priority := models.TaskPriority(v)
		input.Priority = &priority
	}
	if v, ok := c.GetQuery("due_date"); ok {
		dueDate, err := parseDueDate(v)
		if err != nil {
			apierrors.BadRequest(c, "invalid_due_date")
			return
		}
		input.DueDate = &dueDate
	}

	tasks, err := h.taskService.ListTasks(input, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	taskID, _ := middleware.GetIDParam(c, "id")

	task, err := h.taskService.GetTask(taskID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task owned by the current user
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title           string              `json:"title" binding:"required"`
		Description     string              `json:"description"`
		Priority        models.TaskPriority `json:"priority"`
		DueDate         *string             `json:"due_date"`
		AssignedUserIDs []uint64            `json:"assigned_user_ids"`
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "")
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		parsed, err := parseDueDate(*req.DueDate)
		if err != nil {
			apierrors.BadRequest(c, "invalid_due_date")
			return
		}
		dueDate = &parsed
	}

	if req.Priority == "" {
		req.Priority = models.TaskPriorityMedium
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		DueDate:         dueDate,
		AssignedUserIDs: req.AssignedUserIDs,
		CreatorID:       userID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. Only the fields present in the body
// change; an explicit null due_date clears it.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	taskID, _ := middleware.GetIDParam(c, "id")

	// Parse raw JSON to detect which fields were sent
	var rawReq map[string]json.RawMessage
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "")
		return
	}

	patch, fieldErr := decodeTaskPatch(rawReq)
	if fieldErr != nil {
		apierrors.BadRequestWithDetails(c, fieldErr.messageID, gin.H{"field": fieldErr.field})
		return
	}

	task, err := h.taskService.UpdateTask(taskID, patch, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTaskStatus changes only the status of a task
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	type UpdateStatusRequest struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}

	actor, _ := middleware.GetActor(c)
	taskID, _ := middleware.GetIDParam(c, "id")

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "")
		return
	}

	task, err := h.taskService.UpdateTaskStatus(taskID, req.Status, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTaskPriority changes only the priority of a task
func (h *TaskHandler) UpdateTaskPriority(c *gin.Context) {
	type UpdatePriorityRequest struct {
		Priority models.TaskPriority `json:"priority" binding:"required"`
	}

	actor, _ := middleware.GetActor(c)
	taskID, _ := middleware.GetIDParam(c, "id")

	var req UpdatePriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "")
		return
	}

	task, err := h.taskService.UpdateTaskPriority(taskID, req.Priority, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AssignTask assigns a user to a task
func (h *TaskHandler) AssignTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	taskID, _ := middleware.GetIDParam(c, "id")
	userID, _ := middleware.GetIDParam(c, "user_id")

	task, err := h.taskService.AssignUser(taskID, userID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UnassignTask removes a user from a task
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	taskID, _ := middleware.GetIDParam(c, "id")
	userID, _ := middleware.GetIDParam(c, "user_id")

	task, err := h.taskService.UnassignUser(taskID, userID, actor)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	taskID, _ := middleware.GetIDParam(c, "id")

	if err := h.taskService.DeleteTask(taskID, actor); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": apierrors.Message(c, "task_deleted", nil),
	})
}

// GenerateTasks drafts tasks from free text using AI. Drafts are returned to
// the caller and not saved.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "")
		return
	}

	drafts, err := h.taskService.GenerateTasks(c.Request.Context(), services.GenerateTasksInput{
		Text: req.Text,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToGeneratedTaskDTOs(drafts),
		"count": len(drafts),
	})
}

var jsonNull = []byte("null")

// patchFieldError names the first malformed field of a patch body
type patchFieldError struct {
	field     string
	messageID string
}

// decodeTaskPatch builds a patch from the fields present in raw. Only
// due_date may be null, which clears the date; null for any other field is
// rejected.
func decodeTaskPatch(raw map[string]json.RawMessage) (services.TaskPatch, *patchFieldError) {
	var patch services.TaskPatch

	decode := func(key string, dst interface{}) (bool, *patchFieldError) {
		v, ok := raw[key]
		if !ok {
			return false, nil
		}
		if isJSONNull(v) || json.Unmarshal(v, dst) != nil {
			return false, &patchFieldError{field: key, messageID: apierrors.MsgInvalidRequest}
		}
		return true, nil
	}

	var title string
	if ok, err := decode("title", &title); err != nil {
		return patch, err
	} else if ok {
		patch.Title = &title
	}

	var description string
	if ok, err := decode("description", &description); err != nil {
		return patch, err
	} else if ok {
		patch.Description = &description
	}

	if v, ok := raw["due_date"]; ok {
		if isJSONNull(v) {
			patch.ClearDueDate = true
		} else {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return patch, &patchFieldError{field: "due_date", messageID: "invalid_due_date"}
			}
			dueDate, err := parseDueDate(s)
			if err != nil {
				return patch, &patchFieldError{field: "due_date", messageID: "invalid_due_date"}
			}
			patch.DueDate = &dueDate
		}
	}

	var status models.TaskStatus
	if ok, err := decode("status", &status); err != nil {
		return patch, err
	} else if ok {
		patch.Status = &status
	}

	var priority models.TaskPriority
	if ok, err := decode("priority", &priority); err != nil {
		return patch, err
	} else if ok {
		patch.Priority = &priority
	}

	var ids []uint64
	if ok, err := decode("assigned_user_ids", &ids); err != nil {
		return patch, err
	} else if ok {
		patch.AssignedUserIDs = &ids
	}

	return patch, nil
}

func isJSONNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), jsonNull)
}
