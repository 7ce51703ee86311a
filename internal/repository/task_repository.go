package repository

import (
	"time"

	"github.com/yukikurage/task-tracker-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create inserts the task row and one assignment row per assignee
func (r *GormTaskRepository) Create(task *models.Task) (*models.Task, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(task).Error; err != nil {
			return err
		}

		if len(task.Assignments) == 0 {
			return nil
		}

		assignments := make([]models.TaskAssignment, len(task.Assignments))
		for i, a := range task.Assignments {
			assignments[i] = models.TaskAssignment{
				TaskID: task.ID,
				UserID: a.UserID,
			}
		}
		return tx.Omit(clause.Associations).Create(&assignments).Error
	})
	if err != nil {
		return nil, err
	}

	return r.FindByID(task.ID)
}

// Update writes the scalar fields of an existing task
func (r *GormTaskRepository) Update(task *models.Task) (*models.Task, error) {
	if _, err := r.FindByID(task.ID); err != nil {
		return nil, err
	}

	if err := r.db.Model(&models.Task{ID: task.ID}).Updates(map[string]interface{}{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"priority":    task.Priority,
		"due_date":    task.DueDate,
		"updated_at":  task.UpdatedAt,
	}).Error; err != nil {
		return nil, err
	}

	return r.FindByID(task.ID)
}

// Delete soft deletes a task and drops its assignments
func (r *GormTaskRepository) Delete(id uint64) (bool, error) {
	deleted := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// FindByID finds a task by ID with its assignees preloaded
func (r *GormTaskRepository) FindByID(id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.Preload("Assignments.User").First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, error) {
	tasks := []models.Task{}
	query := r.db.Model(&models.Task{})

	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssignedUserID != nil {
		assignmentSubQuery := r.db.Model(&models.TaskAssignment{}).
			Select("1").
			Where("task_assignments.task_id = tasks.id").
			Where("task_assignments.user_id = ?", *filter.AssignedUserID)
		query = query.Where("EXISTS (?)", assignmentSubQuery)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueDateTo)
	}

	if err := query.
		Preload("Assignments.User").
		Order("tasks.created_at DESC").
		Order("tasks.id DESC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	return tasks, nil
}

// FindByUserID lists tasks assigned to userID
func (r *GormTaskRepository) FindByUserID(userID uint64) ([]models.Task, error) {
	return r.List(TaskFilter{AssignedUserID: &userID})
}

// FindByStatus lists tasks in status
func (r *GormTaskRepository) FindByStatus(status models.TaskStatus) ([]models.Task, error) {
	return r.List(TaskFilter{Status: &status})
}

// FindByPriority lists tasks with priority
func (r *GormTaskRepository) FindByPriority(priority models.TaskPriority) ([]models.Task, error) {
	return r.List(TaskFilter{Priority: &priority})
}

// FindByDueDate lists tasks due on the same UTC calendar day as dueDate
func (r *GormTaskRepository) FindByDueDate(dueDate time.Time) ([]models.Task, error) {
	d := dueDate.UTC()
	startOfDay := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.Add(24 * time.Hour)
	return r.List(TaskFilter{DueDateFrom: &startOfDay, DueDateTo: &endOfDay})
}

// AssignUser assigns a user to a task; an existing assignment is kept as is
func (r *GormTaskRepository) AssignUser(taskID, userID uint64) (*models.Task, error) {
	if _, err := r.FindByID(taskID); err != nil {
		return nil, err
	}

	assignment := models.TaskAssignment{TaskID: taskID, UserID: userID}
	if err := r.db.
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&assignment).Error; err != nil {
		return nil, err
	}

	return r.FindByID(taskID)
}

// UnassignUser removes a user assignment from a task
func (r *GormTaskRepository) UnassignUser(taskID, userID uint64) (*models.Task, error) {
	if _, err := r.FindByID(taskID); err != nil {
		return nil, err
	}

	if err := r.db.Where("task_id = ? AND user_id = ?", taskID, userID).
		Delete(&models.TaskAssignment{}).Error; err != nil {
		return nil, err
	}

	return r.FindByID(taskID)
}

// Transaction runs fn with a repository bound to one database transaction
func (r *GormTaskRepository) Transaction(fn func(repo TaskRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormTaskRepository{db: tx})
	})
}
