package services

import (
	"time"

	"github.com/yukikurage/task-tracker-api/internal/models"
)

// TaskParams carries the caller-supplied fields of a new task.
type TaskParams struct {
	Title         string
	Description   string
	DueDate       *time.Time
	AssignedUsers []models.User
	CreatorID     uint64
}

type taskBuilder func(params TaskParams) *models.Task

// TaskFactory builds unsaved tasks keyed by priority. New tasks always start
// in pending; the priority only selects the builder.
type TaskFactory struct {
	now      func() time.Time
	builders map[models.TaskPriority]taskBuilder
}

// NewTaskFactory creates a TaskFactory. A nil clock uses time.Now.
func NewTaskFactory(now func() time.Time) *TaskFactory {
	if now == nil {
		now = time.Now
	}

	f := &TaskFactory{now: now}
	f.builders = map[models.TaskPriority]taskBuilder{
		models.TaskPriorityLow:    f.builderFor(models.TaskPriorityLow),
		models.TaskPriorityMedium: f.builderFor(models.TaskPriorityMedium),
		models.TaskPriorityHigh:   f.builderFor(models.TaskPriorityHigh),
		models.TaskPriorityUrgent: f.builderFor(models.TaskPriorityUrgent),
	}
	return f
}

func (f *TaskFactory) builderFor(priority models.TaskPriority) taskBuilder {
	return func(params TaskParams) *models.Task {
		now := f.now().UTC()
		task := &models.Task{
			Title:       params.Title,
			Description: params.Description,
			Status:      models.TaskStatusPending,
			Priority:    priority,
			DueDate:     params.DueDate,
			CreatorID:   params.CreatorID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for _, u := range params.AssignedUsers {
			task.AddUser(u)
		}
		return task
	}
}

// Create builds a task for priority. Unknown priorities fall back to medium.
func (f *TaskFactory) Create(priority models.TaskPriority, params TaskParams) *models.Task {
	build, ok := f.builders[priority]
	if !ok {
		build = f.builders[models.TaskPriorityMedium]
	}
	return build(params)
}
