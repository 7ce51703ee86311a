package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusBlocked    TaskStatus = "blocked"
	TaskStatusInReview   TaskStatus = "in_review"
	TaskStatusCompleted  TaskStatus = "completed"
)

var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusBlocked,
	TaskStatusInReview,
	TaskStatusCompleted,
}

func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

var TaskPriorities = []TaskPriority{
	TaskPriorityLow,
	TaskPriorityMedium,
	TaskPriorityHigh,
	TaskPriorityUrgent,
}

func (p TaskPriority) Valid() bool {
	for _, known := range TaskPriorities {
		if p == known {
			return true
		}
	}
	return false
}

type Task struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	Title       string         `gorm:"type:varchar(200);not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      TaskStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Priority    TaskPriority   `gorm:"type:varchar(20);not null;default:'medium';index" json:"priority"`
	DueDate     *time.Time     `gorm:"index" json:"due_date"`
	CreatorID   uint64         `gorm:"not null;index" json:"creator_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator     User             `gorm:"foreignKey:CreatorID" json:"-"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
}

// IsCompleted reports whether the task is in its terminal status.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// AssignedUsers returns the users currently assigned to the task. Only
// assignments loaded with their user carry a populated User.
func (t *Task) AssignedUsers() []User {
	users := make([]User, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		users = append(users, a.User)
	}
	return users
}

// AssignedUserIDs returns the ids of the assigned users.
func (t *Task) AssignedUserIDs() []uint64 {
	ids := make([]uint64, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

// IsAssigned reports whether userID is among the assignees.
func (t *Task) IsAssigned(userID uint64) bool {
	for _, a := range t.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// AddUser assigns user to the task in memory. Assigning the same user twice
// is a no-op.
func (t *Task) AddUser(user User) {
	if t.IsAssigned(user.ID) {
		return
	}
	t.Assignments = append(t.Assignments, TaskAssignment{
		TaskID: t.ID,
		UserID: user.ID,
		User:   user,
	})
}

// RemoveUser drops userID from the in-memory assignee set.
func (t *Task) RemoveUser(userID uint64) {
	kept := t.Assignments[:0]
	for _, a := range t.Assignments {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	t.Assignments = kept
}

// UpdateStatus sets the status and bumps UpdatedAt.
func (t *Task) UpdateStatus(status TaskStatus, now time.Time) {
	t.Status = status
	t.UpdatedAt = now
}

// UpdatePriority sets the priority and bumps UpdatedAt.
func (t *Task) UpdatePriority(priority TaskPriority, now time.Time) {
	t.Priority = priority
	t.UpdatedAt = now
}
