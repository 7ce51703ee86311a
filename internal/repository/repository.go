package repository

import (
	"time"

	"github.com/yukikurage/task-tracker-api/internal/models"
)

// TaskRepository defines the interface for task data access. Lookups that
// find nothing return gorm.ErrRecordNotFound.
type TaskRepository interface {
	// Create inserts a task and its assignments and returns the stored task
	Create(task *models.Task) (*models.Task, error)

	// Update writes the task's scalar fields; assignments are left untouched
	Update(task *models.Task) (*models.Task, error)

	// Delete soft deletes a task, reporting whether it existed
	Delete(id uint64) (bool, error)

	// FindByID finds a task by ID with its assignees loaded
	FindByID(id uint64) (*models.Task, error)

	// List retrieves tasks matching every set field of the filter
	List(filter TaskFilter) ([]models.Task, error)

	// FindByUserID lists tasks assigned to a user
	FindByUserID(userID uint64) ([]models.Task, error)

	// FindByStatus lists tasks in a status
	FindByStatus(status models.TaskStatus) ([]models.Task, error)

	// FindByPriority lists tasks with a priority
	FindByPriority(priority models.TaskPriority) ([]models.Task, error)

	// FindByDueDate lists tasks due on the calendar day (UTC) of dueDate
	FindByDueDate(dueDate time.Time) ([]models.Task, error)

	// AssignUser adds a user to a task's assignees and returns the task
	AssignUser(taskID, userID uint64) (*models.Task, error)

	// UnassignUser removes a user from a task's assignees and returns the task
	UnassignUser(taskID, userID uint64) (*models.Task, error)

	// Transaction runs fn against a repository bound to a single transaction
	Transaction(fn func(repo TaskRepository) error) error
}

// TaskFilter holds filtering options for listing tasks. Unset fields do not
// constrain the result.
type TaskFilter struct {
	Status         *models.TaskStatus
	Priority       *models.TaskPriority
	AssignedUserID *uint64
	DueDateFrom    *time.Time
	DueDateTo      *time.Time
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) (*models.User, error)

	// Update writes name, email and role of an existing user
	Update(user *models.User) (*models.User, error)

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// List returns users, optionally restricted to a role and to names or
	// emails containing search (case-insensitive)
	List(role *models.Role, search string) ([]models.User, error)
}
