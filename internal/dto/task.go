package dto

import (
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/services"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID            uint64              `json:"id"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Status        models.TaskStatus   `json:"status"`
	Priority      models.TaskPriority `json:"priority"`
	DueDate       *string             `json:"due_date"`
	CreatorID     uint64              `json:"creator_id"`
	CreatedAt     string              `json:"created_at"`
	UpdatedAt     string              `json:"updated_at"`
	AssignedUsers []UserDTO           `json:"assigned_users"`
}

// GeneratedTaskDTO represents an AI task draft
type GeneratedTaskDTO struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *string             `json:"due_date"`
}

// Conversion functions

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:            task.ID,
		Title:         task.Title,
		Description:   task.Description,
		Status:        task.Status,
		Priority:      task.Priority,
		DueDate:       FormatOptionalTime(task.DueDate),
		CreatorID:     task.CreatorID,
		CreatedAt:     FormatTime(task.CreatedAt),
		UpdatedAt:     FormatTime(task.UpdatedAt),
		AssignedUsers: ToUserDTOs(task.AssignedUsers()),
	}
	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}

// ToGeneratedTaskDTOs converts AI drafts
func ToGeneratedTaskDTOs(drafts []services.GeneratedTask) []GeneratedTaskDTO {
	dtos := make([]GeneratedTaskDTO, len(drafts))
	for i, d := range drafts {
		dtos[i] = GeneratedTaskDTO{
			Title:       d.Title,
			Description: d.Description,
			Priority:    d.Priority,
			DueDate:     FormatOptionalTime(d.DueDate),
		}
	}
	return dtos
}
