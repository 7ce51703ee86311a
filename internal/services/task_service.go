package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/task-tracker-api/internal/constants"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/notifier"
	"github.com/yukikurage/task-tracker-api/internal/policy"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound             = fmt.Errorf("task %w", ErrNotFound)
	ErrCreatorNotFound          = fmt.Errorf("creator %w", ErrNotFound)
	ErrAssigneeNotFound         = fmt.Errorf("assignee %w", ErrNotFound)
	ErrTaskPermissionDenied     = fmt.Errorf("user does not have permission to modify this task: %w", ErrPermissionDenied)
	ErrStatusPermissionDenied   = fmt.Errorf("user does not have permission to update this task's status: %w", ErrPermissionDenied)
	ErrCompletePermissionDenied = fmt.Errorf("user does not have permission to complete this task: %w", ErrPermissionDenied)
	ErrTaskDetailsDenied        = fmt.Errorf("user may only update the status of this task: %w", ErrPermissionDenied)
	ErrTaskDeleteDenied         = fmt.Errorf("only the task creator or an admin can delete this task: %w", ErrPermissionDenied)
	ErrTitleEmpty               = fmt.Errorf("title cannot be empty: %w", ErrValidation)
	ErrInvalidStatus            = fmt.Errorf("invalid status: %w", ErrValidation)
	ErrInvalidPriority          = fmt.Errorf("invalid priority: %w", ErrValidation)
	ErrTextRequired             = fmt.Errorf("text is required: %w", ErrValidation)
	ErrAIServiceNotConfigured   = fmt.Errorf("AI service is not configured: %w", ErrUnavailable)
	ErrAINoTasksGenerated       = fmt.Errorf("AI did not generate any tasks: %w", ErrValidation)
	ErrAITooManyTasks           = fmt.Errorf("AI generated too many tasks (max %d): %w", constants.MaxAIGeneratedTasks, ErrValidation)
	ErrAINoValidTasks           = fmt.Errorf("no valid tasks could be created from AI output: %w", ErrValidation)
)

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	factory   *TaskFactory
	notifier  *notifier.Notifier
	aiService *AIService
	now       func() time.Time
}

// NewTaskService creates a new TaskService. A nil notifier is replaced by one
// without subscribers and a nil aiService disables task generation.
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, n *notifier.Notifier, aiService *AIService) *TaskService {
	if n == nil {
		n = notifier.New()
	}
	s := &TaskService{
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		notifier:  n,
		aiService: aiService,
		now:       time.Now,
	}
	s.factory = NewTaskFactory(func() time.Time { return s.now() })
	return s
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title           string
	Description     string
	Priority        models.TaskPriority
	DueDate         *time.Time
	AssignedUserIDs []uint64
	CreatorID       uint64
}

// ListTasksInput holds the optional list filters. Only the first set field in
// the order UserID, Status, Priority, DueDate is applied.
type ListTasksInput struct {
	UserID   *uint64
	Status   *models.TaskStatus
	Priority *models.TaskPriority
	DueDate  *time.Time
}

// TaskPatch is a partial task update. Nil fields are left unchanged;
// ClearDueDate removes the due date.
type TaskPatch struct {
	Title           *string
	Description     *string
	DueDate         *time.Time
	ClearDueDate    bool
	Status          *models.TaskStatus
	Priority        *models.TaskPriority
	AssignedUserIDs *[]uint64
}

// StatusOnly reports whether the patch sets the status and nothing else.
func (p TaskPatch) StatusOnly() bool {
	return p.Status != nil &&
		p.Title == nil &&
		p.Description == nil &&
		p.DueDate == nil &&
		!p.ClearDueDate &&
		p.Priority == nil &&
		p.AssignedUserIDs == nil
}

func (p TaskPatch) validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleEmpty
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// CreateTask validates the creator and every assignee, builds the task through
// the factory and persists it. Nothing is written if any referenced user is
// missing.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	if _, err := s.userRepo.FindByID(input.CreatorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCreatorNotFound
		}
		return nil, fmt.Errorf("failed to find creator: %w", err)
	}

	assignees, err := s.resolveUsers(input.AssignedUserIDs)
	if err != nil {
		return nil, err
	}

	task := s.factory.Create(input.Priority, TaskParams{
		Title:         input.Title,
		Description:   input.Description,
		DueDate:       utcTime(input.DueDate),
		AssignedUsers: assignees,
		CreatorID:     input.CreatorID,
	})

	created, err := s.taskRepo.Create(task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return created, nil
}

// ListTasks returns the tasks matching the most specific filter in input.
// Completed tasks are hidden from actors who may not view them; a nil actor
// sees everything.
func (s *TaskService) ListTasks(input ListTasksInput, actor *models.User) ([]models.Task, error) {
	canViewCompleted := policy.CanViewCompleted(actor)

	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		// Asking for completed tasks without the right yields nothing,
		// whichever filter ends up selected
		if *input.Status == models.TaskStatusCompleted && !canViewCompleted {
			return []models.Task{}, nil
		}
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, ErrInvalidPriority
	}

	var (
		tasks []models.Task
		err   error
	)
	switch {
	case input.UserID != nil:
		tasks, err = s.taskRepo.FindByUserID(*input.UserID)
	case input.Status != nil:
		tasks, err = s.taskRepo.FindByStatus(*input.Status)
	case input.Priority != nil:
		tasks, err = s.taskRepo.FindByPriority(*input.Priority)
	case input.DueDate != nil:
		tasks, err = s.taskRepo.FindByDueDate(*input.DueDate)
	default:
		tasks, err = s.taskRepo.List(repository.TaskFilter{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	if !canViewCompleted {
		visible := tasks[:0]
		for _, t := range tasks {
			if !t.IsCompleted() {
				visible = append(visible, t)
			}
		}
		tasks = visible
	}

	return tasks, nil
}

// GetTask returns a task. A completed task the actor may not view is reported
// as missing.
func (s *TaskService) GetTask(taskID uint64, actor *models.User) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if !policy.CanViewTask(actor, task) {
		return nil, ErrTaskHidden
	}

	return task, nil
}

// UpdateTaskStatus moves a task to status and notifies subscribers when the
// task becomes completed
func (s *TaskService) UpdateTaskStatus(taskID uint64, status models.TaskStatus, actor *models.User) (*models.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if !policy.CanUpdateStatus(actor, task) {
		return nil, ErrTaskPermissionDenied
	}
	if status == models.TaskStatusCompleted && !policy.CanCompleteTask(actor, task) {
		return nil, ErrCompletePermissionDenied
	}

	previous := task.Status
	task.UpdateStatus(status, s.now().UTC())

	updated, err := s.taskRepo.Update(task)
	if err != nil {
		return nil, translateWriteError(err, "failed to update status")
	}

	if becameCompleted(previous, updated.Status) {
		s.notifyCompleted(updated)
	}

	return updated, nil
}

// UpdateTaskPriority changes the priority of a task
func (s *TaskService) UpdateTaskPriority(taskID uint64, priority models.TaskPriority, actor *models.User) (*models.Task, error) {
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if !policy.CanUpdatePriority(actor, task) {
		return nil, ErrTaskPermissionDenied
	}

	task.UpdatePriority(priority, s.now().UTC())

	updated, err := s.taskRepo.Update(task)
	if err != nil {
		return nil, translateWriteError(err, "failed to update priority")
	}

	return updated, nil
}

// AssignUser adds userID to the task's assignees
func (s *TaskService) AssignUser(taskID, userID uint64, actor *models.User) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if _, err := s.resolveUsers([]uint64{userID}); err != nil {
		return nil, err
	}

	if !policy.CanAssign(actor, task) {
		return nil, ErrTaskPermissionDenied
	}

	updated, err := s.taskRepo.AssignUser(taskID, userID)
	if err != nil {
		return nil, translateWriteError(err, "failed to assign user")
	}

	return updated, nil
}

// UnassignUser removes userID from the task's assignees. Actors may always
// unassign themselves.
func (s *TaskService) UnassignUser(taskID, userID uint64, actor *models.User) (*models.Task, error) {
	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	if !policy.CanUnassign(actor, task, userID) {
		return nil, ErrTaskPermissionDenied
	}

	updated, err := s.taskRepo.UnassignUser(taskID, userID)
	if err != nil {
		return nil, translateWriteError(err, "failed to unassign user")
	}

	return updated, nil
}

// UpdateTask applies a partial update. Field changes and assignee changes are
// written in one transaction, so a failing patch leaves the task untouched.
func (s *TaskService) UpdateTask(taskID uint64, patch TaskPatch, actor *models.User) (*models.Task, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}

	task, err := s.findTask(taskID)
	if err != nil {
		return nil, err
	}

	switch policy.CheckPatch(actor, task, patch.StatusOnly()) {
	case policy.PatchDetailsDenied:
		return nil, ErrTaskDetailsDenied
	case policy.PatchStatusDenied:
		return nil, ErrStatusPermissionDenied
	}

	var added, removed []uint64
	if patch.AssignedUserIDs != nil {
		added, removed = diffIDs(task.AssignedUserIDs(), *patch.AssignedUserIDs)
		if _, err := s.resolveUsers(added); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	previous := task.Status

	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	} else if patch.DueDate != nil {
		task.DueDate = utcTime(patch.DueDate)
	}
	if patch.Status != nil {
		task.UpdateStatus(*patch.Status, now)
	}
	if patch.Priority != nil {
		task.UpdatePriority(*patch.Priority, now)
	}
	task.UpdatedAt = now

	err = s.taskRepo.Transaction(func(repo repository.TaskRepository) error {
		if _, err := repo.Update(task); err != nil {
			return err
		}
		for _, id := range removed {
			if _, err := repo.UnassignUser(task.ID, id); err != nil {
				return err
			}
		}
		for _, id := range added {
			if _, err := repo.AssignUser(task.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateWriteError(err, "failed to update task")
	}

	updated, err := s.findTask(task.ID)
	if err != nil {
		return nil, err
	}

	if becameCompleted(previous, updated.Status) {
		s.notifyCompleted(updated)
	}

	return updated, nil
}

// DeleteTask soft deletes a task if the actor is its creator or an admin
func (s *TaskService) DeleteTask(taskID uint64, actor *models.User) error {
	task, err := s.findTask(taskID)
	if err != nil {
		return err
	}

	if !policy.CanDeleteTask(actor, task) {
		return ErrTaskDeleteDenied
	}

	deleted, err := s.taskRepo.Delete(taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !deleted {
		return ErrTaskNotFound
	}

	return nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text string
}

// GenerateTasks uses AI to draft tasks from text. Drafts are not persisted.
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrTextRequired
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, ErrAITooManyTasks
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}

		if !aiTask.Priority.Valid() {
			aiTask.Priority = models.TaskPriorityMedium
		}

		if aiTask.DueDate != nil {
			if aiTask.DueDate.Before(cutoff) {
				aiTask.DueDate = nil
			} else {
				aiTask.DueDate = utcTime(aiTask.DueDate)
			}
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

// findTask loads a task with its assignees
func (s *TaskService) findTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// resolveUsers loads every id in order and fails on the first unknown one
func (s *TaskService) resolveUsers(ids []uint64) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.userRepo.FindByID(id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %d", ErrAssigneeNotFound, id)
			}
			return nil, fmt.Errorf("failed to find user %d: %w", id, err)
		}
		users = append(users, *user)
	}
	return users, nil
}

// notifyCompleted fans a completion out to subscribers with the current tech
// leads as recipients. The status change is already committed, so a failed
// recipient lookup is logged rather than returned.
func (s *TaskService) notifyCompleted(task *models.Task) {
	role := models.RoleTechLead
	leads, err := s.userRepo.List(&role, "")
	if err != nil {
		zap.L().Warn("failed to load completion recipients",
			zap.Uint64("task_id", task.ID),
			zap.Error(err),
		)
		return
	}
	s.notifier.NotifyTaskCompleted(task, leads)
}

func translateWriteError(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func becameCompleted(previous, current models.TaskStatus) bool {
	return previous != models.TaskStatusCompleted && current == models.TaskStatusCompleted
}

// diffIDs returns the ids in want but not in have, and those in have but not
// in want. Duplicates in want are ignored.
func diffIDs(have, want []uint64) (added, removed []uint64) {
	current := make(map[uint64]struct{}, len(have))
	for _, id := range have {
		current[id] = struct{}{}
	}

	requested := make(map[uint64]struct{}, len(want))
	for _, id := range want {
		if _, seen := requested[id]; seen {
			continue
		}
		requested[id] = struct{}{}
		if _, ok := current[id]; !ok {
			added = append(added, id)
		}
	}

	for _, id := range have {
		if _, ok := requested[id]; !ok {
			removed = append(removed, id)
		}
	}

	return added, removed
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
