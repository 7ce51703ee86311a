package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/notifier"
	"github.com/yukikurage/task-tracker-api/internal/repository"
	"github.com/yukikurage/task-tracker-api/internal/testutil"
	"gorm.io/gorm"
)

type completion struct {
	taskID     uint64
	recipients []uint64
}

type TaskServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	taskRepo    repository.TaskRepository
	service     *TaskService
	completions []completion
	now         time.Time

	admin *models.User
	lead  *models.User
	lead2 *models.User
	dev   *models.User
	other *models.User
}

func (s *TaskServiceTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.taskRepo = repository.NewTaskRepository(s.db)
	userRepo := repository.NewUserRepository(s.db)

	s.completions = nil
	n := notifier.New(notifier.SubscriberFunc(func(task *models.Task, recipients []models.User) {
		ids := make([]uint64, len(recipients))
		for i, r := range recipients {
			ids[i] = r.ID
		}
		s.completions = append(s.completions, completion{taskID: task.ID, recipients: ids})
	}))

	s.service = NewTaskService(s.taskRepo, userRepo, n, nil)
	s.now = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	s.service.now = func() time.Time { return s.now }

	s.admin = testutil.CreateUser(s.T(), s.db, "Admin", "admin@example.com", models.RoleAdmin)
	s.lead = testutil.CreateUser(s.T(), s.db, "Lead", "lead@example.com", models.RoleTechLead)
	s.dev = testutil.CreateUser(s.T(), s.db, "Dev", "dev@example.com", models.RoleDeveloper)
	s.other = testutil.CreateUser(s.T(), s.db, "Other", "other@example.com", models.RoleDeveloper)
	s.lead2 = testutil.CreateUser(s.T(), s.db, "Lead Two", "lead2@example.com", models.RoleTechLead)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}

func (s *TaskServiceTestSuite) createTask(creator *models.User, priority models.TaskPriority, assignees ...uint64) *models.Task {
	task, err := s.service.CreateTask(CreateTaskInput{
		Title:           "Implement login",
		Description:     "Wire the login form",
		Priority:        priority,
		AssignedUserIDs: assignees,
		CreatorID:       creator.ID,
	})
	s.Require().NoError(err)
	return task
}

func (s *TaskServiceTestSuite) complete(task *models.Task) *models.Task {
	updated, err := s.service.UpdateTaskStatus(task.ID, models.TaskStatusCompleted, s.lead)
	s.Require().NoError(err)
	return updated
}

func (s *TaskServiceTestSuite) TestCreateTask_StartsPendingWithRequestedPriority() {
	for _, priority := range models.TaskPriorities {
		created := s.createTask(s.lead, priority, s.dev.ID)

		got, err := s.service.GetTask(created.ID, s.lead)
		s.Require().NoError(err)
		s.Equal(models.TaskStatusPending, got.Status)
		s.Equal(priority, got.Priority)
		s.Equal(s.lead.ID, got.CreatorID)
		s.Equal([]uint64{s.dev.ID}, got.AssignedUserIDs())
		s.True(s.now.Equal(got.CreatedAt))
	}
}

func (s *TaskServiceTestSuite) TestCreateTask_UnknownReferencesAbort() {
	_, err := s.service.CreateTask(CreateTaskInput{
		Title:     "Orphan",
		Priority:  models.TaskPriorityLow,
		CreatorID: 999,
	})
	s.ErrorIs(err, ErrCreatorNotFound)
	s.ErrorIs(err, ErrNotFound)

	_, err = s.service.CreateTask(CreateTaskInput{
		Title:           "Partial",
		Priority:        models.TaskPriorityLow,
		AssignedUserIDs: []uint64{s.dev.ID, 999},
		CreatorID:       s.lead.ID,
	})
	s.ErrorIs(err, ErrAssigneeNotFound)

	tasks, err := s.service.ListTasks(ListTasksInput{}, nil)
	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *TaskServiceTestSuite) TestCreateTask_InvalidPriority() {
	_, err := s.service.CreateTask(CreateTaskInput{
		Title:     "Bad",
		Priority:  models.TaskPriority("critical"),
		CreatorID: s.lead.ID,
	})
	s.ErrorIs(err, ErrValidation)
}

func (s *TaskServiceTestSuite) TestAssignThenUnassignRestoresAssignees() {
	task := s.createTask(s.lead, models.TaskPriorityMedium, s.dev.ID)

	assigned, err := s.service.AssignUser(task.ID, s.other.ID, s.lead)
	s.Require().NoError(err)
	s.ElementsMatch([]uint64{s.dev.ID, s.other.ID}, assigned.AssignedUserIDs())

	restored, err := s.service.UnassignUser(task.ID, s.other.ID, s.lead)
	s.Require().NoError(err)
	s.ElementsMatch(task.AssignedUserIDs(), restored.AssignedUserIDs())
}

func (s *TaskServiceTestSuite) TestAssignUser_Checks() {
	task := s.createTask(s.lead, models.TaskPriorityMedium)

	_, err := s.service.AssignUser(999, s.dev.ID, s.lead)
	s.ErrorIs(err, ErrTaskNotFound)

	_, err = s.service.AssignUser(task.ID, 999, s.lead)
	s.ErrorIs(err, ErrAssigneeNotFound)

	_, err = s.service.AssignUser(task.ID, s.dev.ID, s.dev)
	s.ErrorIs(err, ErrPermissionDenied)
	s.False(errors.Is(err, ErrNotFound))
}

func (s *TaskServiceTestSuite) TestUnassignUser_SelfAllowedOthersDenied() {
	task := s.createTask(s.lead, models.TaskPriorityMedium, s.dev.ID, s.other.ID)

	_, err := s.service.UnassignUser(task.ID, s.other.ID, s.dev)
	s.ErrorIs(err, ErrPermissionDenied)

	updated, err := s.service.UnassignUser(task.ID, s.dev.ID, s.dev)
	s.Require().NoError(err)
	s.Equal([]uint64{s.other.ID}, updated.AssignedUserIDs())
}

func (s *TaskServiceTestSuite) TestGetTask_CompletedIsHiddenFromDevelopers() {
	task := s.createTask(s.lead, models.TaskPriorityHigh, s.other.ID)
	s.complete(task)

	_, err := s.service.GetTask(task.ID, s.dev)
	s.ErrorIs(err, ErrTaskNotFound)
	s.ErrorIs(err, ErrPermissionDenied)
	s.Equal("task not found", err.Error())

	got, err := s.service.GetTask(task.ID, s.lead2)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusCompleted, got.Status)

	got, err = s.service.GetTask(task.ID, nil)
	s.Require().NoError(err)
	s.Equal(task.ID, got.ID)

	_, err = s.service.GetTask(task.ID, s.admin)
	s.ErrorIs(err, ErrTaskNotFound, "admins lack view_all_completed_tasks")

	_, err = s.service.GetTask(999, s.lead)
	s.ErrorIs(err, ErrTaskNotFound)
	s.False(errors.Is(err, ErrPermissionDenied))
}

func (s *TaskServiceTestSuite) TestListTasks_CompletedVisibility() {
	open := s.createTask(s.lead, models.TaskPriorityLow, s.dev.ID)
	done := s.createTask(s.lead, models.TaskPriorityLow, s.dev.ID)
	s.complete(done)

	forLead, err := s.service.ListTasks(ListTasksInput{}, s.lead)
	s.Require().NoError(err)
	s.ElementsMatch([]uint64{open.ID, done.ID}, idsOf(forLead))

	forDev, err := s.service.ListTasks(ListTasksInput{}, s.dev)
	s.Require().NoError(err)
	s.Equal([]uint64{open.ID}, idsOf(forDev))

	completed := models.TaskStatusCompleted
	devCompleted, err := s.service.ListTasks(ListTasksInput{Status: &completed}, s.dev)
	s.Require().NoError(err)
	s.Empty(devCompleted)

	leadCompleted, err := s.service.ListTasks(ListTasksInput{Status: &completed}, s.lead)
	s.Require().NoError(err)
	s.Equal([]uint64{done.ID}, idsOf(leadCompleted))

	byUser, err := s.service.ListTasks(ListTasksInput{UserID: &s.dev.ID}, s.dev)
	s.Require().NoError(err)
	s.Equal([]uint64{open.ID}, idsOf(byUser), "completed tasks are filtered on the user branch too")

	byUserCompleted, err := s.service.ListTasks(ListTasksInput{UserID: &s.dev.ID, Status: &completed}, s.dev)
	s.Require().NoError(err)
	s.Empty(byUserCompleted, "a completed status filter yields nothing even when the user filter wins")

	pending := models.TaskStatusPending
	byUserPending, err := s.service.ListTasks(ListTasksInput{UserID: &s.dev.ID, Status: &pending}, s.dev)
	s.Require().NoError(err)
	s.Equal([]uint64{open.ID}, idsOf(byUserPending))

	leadByUser, err := s.service.ListTasks(ListTasksInput{UserID: &s.dev.ID, Status: &completed}, s.lead)
	s.Require().NoError(err)
	s.ElementsMatch([]uint64{open.ID, done.ID}, idsOf(leadByUser))
}

func (s *TaskServiceTestSuite) TestNilActorCannotMutate() {
	task := s.createTask(s.lead, models.TaskPriorityLow, s.dev.ID)

	_, err := s.service.UpdateTaskStatus(task.ID, models.TaskStatusInProgress, nil)
	s.ErrorIs(err, ErrPermissionDenied)

	_, err = s.service.UpdateTaskPriority(task.ID, models.TaskPriorityHigh, nil)
	s.ErrorIs(err, ErrPermissionDenied)

	title := "Renamed"
	_, err = s.service.UpdateTask(task.ID, TaskPatch{Title: &title}, nil)
	s.ErrorIs(err, ErrPermissionDenied)

	_, err = s.service.UnassignUser(task.ID, s.dev.ID, nil)
	s.ErrorIs(err, ErrPermissionDenied)

	s.ErrorIs(s.service.DeleteTask(task.ID, nil), ErrPermissionDenied)
}

func (s *TaskServiceTestSuite) TestListTasks_FirstFilterWins() {
	high := s.createTask(s.lead, models.TaskPriorityHigh, s.dev.ID)
	low := s.createTask(s.lead, models.TaskPriorityLow, s.other.ID)

	priority := models.TaskPriorityHigh
	status := models.TaskStatusPending

	byUser, err := s.service.ListTasks(ListTasksInput{UserID: &s.other.ID, Priority: &priority}, s.lead)
	s.Require().NoError(err)
	s.Equal([]uint64{low.ID}, idsOf(byUser), "user filter outranks priority")

	byStatus, err := s.service.ListTasks(ListTasksInput{Status: &status, Priority: &priority}, s.lead)
	s.Require().NoError(err)
	s.ElementsMatch([]uint64{high.ID, low.ID}, idsOf(byStatus), "status filter outranks priority")

	byPriority, err := s.service.ListTasks(ListTasksInput{Priority: &priority}, s.lead)
	s.Require().NoError(err)
	s.Equal([]uint64{high.ID}, idsOf(byPriority))
}

func (s *TaskServiceTestSuite) TestListTasks_DueDateMatchesCalendarDay() {
	task := s.createTask(s.lead, models.TaskPriorityLow)
	due := time.Date(2026, 4, 3, 17, 30, 0, 0, time.UTC)
	_, err := s.service.UpdateTask(task.ID, TaskPatch{DueDate: &due}, s.lead)
	s.Require().NoError(err)
	s.createTask(s.lead, models.TaskPriorityLow)

	day := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)
	tasks, err := s.service.ListTasks(ListTasksInput{DueDate: &day}, s.lead)
	s.Require().NoError(err)
	s.Equal([]uint64{task.ID}, idsOf(tasks))
}

func (s *TaskServiceTestSuite) TestUpdateTaskStatus_NotifiesOnceOnCompletion() {
	task := s.createTask(s.lead, models.TaskPriorityUrgent, s.dev.ID)

	_, err := s.service.UpdateTaskStatus(task.ID, models.TaskStatusInProgress, s.dev)
	s.Require().NoError(err)
	s.Empty(s.completions)

	s.now = s.now.Add(time.Hour)
	updated, err := s.service.UpdateTaskStatus(task.ID, models.TaskStatusCompleted, s.dev)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusCompleted, updated.Status)
	s.True(s.now.Equal(updated.UpdatedAt))
	s.Require().Len(s.completions, 1)
	s.Equal(task.ID, s.completions[0].taskID)
	s.ElementsMatch([]uint64{s.lead.ID, s.lead2.ID}, s.completions[0].recipients)

	_, err = s.service.UpdateTaskStatus(task.ID, models.TaskStatusCompleted, s.dev)
	s.Require().NoError(err)
	s.Len(s.completions, 1, "completed to completed does not notify")
}

func (s *TaskServiceTestSuite) TestUpdateTaskStatus_Permissions() {
	task := s.createTask(s.dev, models.TaskPriorityMedium)

	_, err := s.service.UpdateTaskStatus(task.ID, models.TaskStatusInProgress, s.other)
	s.ErrorIs(err, ErrTaskPermissionDenied)

	_, err = s.service.UpdateTaskStatus(task.ID, models.TaskStatusBlocked, s.dev)
	s.Require().NoError(err, "creators may move their tasks")

	_, err = s.service.UpdateTaskStatus(task.ID, models.TaskStatusCompleted, s.dev)
	s.ErrorIs(err, ErrCompletePermissionDenied, "unassigned developer creators may not complete")

	_, err = s.service.UpdateTaskStatus(task.ID, models.TaskStatusCompleted, s.admin)
	s.Require().NoError(err)
	s.Len(s.completions, 1)

	_, err = s.service.UpdateTaskStatus(task.ID, models.TaskStatus("done"), s.admin)
	s.ErrorIs(err, ErrValidation)
}

func (s *TaskServiceTestSuite) TestUpdateTaskPriority() {
	task := s.createTask(s.lead, models.TaskPriorityLow, s.dev.ID)

	_, err := s.service.UpdateTaskPriority(task.ID, models.TaskPriorityUrgent, s.dev)
	s.ErrorIs(err, ErrPermissionDenied)

	updated, err := s.service.UpdateTaskPriority(task.ID, models.TaskPriorityUrgent, s.lead)
	s.Require().NoError(err)
	s.Equal(models.TaskPriorityUrgent, updated.Priority)
}

func (s *TaskServiceTestSuite) TestUpdateTask_DeveloperStatusOnlyScenario() {
	task := s.createTask(s.lead, models.TaskPriorityMedium, s.dev.ID)

	inProgress := models.TaskStatusInProgress
	updated, err := s.service.UpdateTask(task.ID, TaskPatch{Status: &inProgress}, s.dev)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusInProgress, updated.Status)

	high := models.TaskPriorityHigh
	_, err = s.service.UpdateTask(task.ID, TaskPatch{Status: &inProgress, Priority: &high}, s.dev)
	s.ErrorIs(err, ErrTaskDetailsDenied)
	s.ErrorIs(err, ErrPermissionDenied)

	_, err = s.service.UpdateTask(task.ID, TaskPatch{Status: &inProgress}, s.other)
	s.ErrorIs(err, ErrStatusPermissionDenied)

	reloaded, err := s.service.GetTask(task.ID, s.lead)
	s.Require().NoError(err)
	s.Equal(models.TaskPriorityMedium, reloaded.Priority)
}

func (s *TaskServiceTestSuite) TestUpdateTask_UnknownAssigneeAbortsWholePatch() {
	task := s.createTask(s.lead, models.TaskPriorityMedium, s.dev.ID)

	title := "Renamed"
	assignees := []uint64{s.other.ID, 999}
	_, err := s.service.UpdateTask(task.ID, TaskPatch{Title: &title, AssignedUserIDs: &assignees}, s.lead)
	s.ErrorIs(err, ErrAssigneeNotFound)

	reloaded, err := s.service.GetTask(task.ID, s.lead)
	s.Require().NoError(err)
	s.Equal("Implement login", reloaded.Title)
	s.Equal([]uint64{s.dev.ID}, reloaded.AssignedUserIDs())
}

func (s *TaskServiceTestSuite) TestUpdateTask_AppliesFieldsAndAssigneeDiff() {
	due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	task := s.createTask(s.lead, models.TaskPriorityLow, s.dev.ID)

	title := "Implement SSO"
	description := "SAML and OIDC"
	completed := models.TaskStatusCompleted
	urgent := models.TaskPriorityUrgent
	assignees := []uint64{s.other.ID, s.other.ID}

	updated, err := s.service.UpdateTask(task.ID, TaskPatch{
		Title:           &title,
		Description:     &description,
		DueDate:         &due,
		Status:          &completed,
		Priority:        &urgent,
		AssignedUserIDs: &assignees,
	}, s.lead)
	s.Require().NoError(err)
	s.Equal(title, updated.Title)
	s.Equal(description, updated.Description)
	s.Require().NotNil(updated.DueDate)
	s.True(due.Equal(*updated.DueDate))
	s.Equal(models.TaskStatusCompleted, updated.Status)
	s.Equal(models.TaskPriorityUrgent, updated.Priority)
	s.Equal([]uint64{s.other.ID}, updated.AssignedUserIDs())
	s.Len(s.completions, 1)

	cleared, err := s.service.UpdateTask(task.ID, TaskPatch{ClearDueDate: true}, s.lead)
	s.Require().NoError(err)
	s.Nil(cleared.DueDate)
	s.Len(s.completions, 1)
}

func (s *TaskServiceTestSuite) TestUpdateTask_Validation() {
	task := s.createTask(s.lead, models.TaskPriorityLow)

	empty := "  "
	_, err := s.service.UpdateTask(task.ID, TaskPatch{Title: &empty}, s.lead)
	s.ErrorIs(err, ErrTitleEmpty)

	bogus := models.TaskStatus("archived")
	_, err = s.service.UpdateTask(task.ID, TaskPatch{Status: &bogus}, s.lead)
	s.ErrorIs(err, ErrInvalidStatus)

	_, err = s.service.UpdateTask(999, TaskPatch{}, s.lead)
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *TaskServiceTestSuite) TestDeleteTask() {
	task := s.createTask(s.dev, models.TaskPriorityLow, s.other.ID)

	err := s.service.DeleteTask(task.ID, s.other)
	s.ErrorIs(err, ErrTaskDeleteDenied)

	err = s.service.DeleteTask(task.ID, s.lead)
	s.ErrorIs(err, ErrPermissionDenied, "tech leads hold no delete permission")

	s.Require().NoError(s.service.DeleteTask(task.ID, s.dev))

	_, err = s.service.GetTask(task.ID, s.lead)
	s.ErrorIs(err, ErrTaskNotFound)

	other := s.createTask(s.lead, models.TaskPriorityLow)
	s.Require().NoError(s.service.DeleteTask(other.ID, s.admin))
}

type fakeChatCompleter struct {
	content string
	err     error
}

func (f fakeChatCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func (s *TaskServiceTestSuite) TestGenerateTasks() {
	_, err := s.service.GenerateTasks(context.Background(), GenerateTasksInput{Text: "x"})
	s.ErrorIs(err, ErrAIServiceNotConfigured)
	s.ErrorIs(err, ErrUnavailable)

	s.service.aiService = &AIService{
		client: fakeChatCompleter{content: "```json\n" + `[
			{"title": "Write report", "description": "Q1", "priority": "high", "due_date": "2026-04-02T18:00:00Z"},
			{"title": "", "description": "skipped"},
			{"title": "Call vendor", "priority": "whenever", "due_date": "2020-01-01T00:00:00Z"}
		]` + "\n```"},
		now: func() time.Time { return s.now },
	}

	_, err = s.service.GenerateTasks(context.Background(), GenerateTasksInput{Text: "   "})
	s.ErrorIs(err, ErrTextRequired)

	drafts, err := s.service.GenerateTasks(context.Background(), GenerateTasksInput{Text: "notes"})
	s.Require().NoError(err)
	s.Require().Len(drafts, 2)
	s.Equal("Write report", drafts[0].Title)
	s.Equal(models.TaskPriorityHigh, drafts[0].Priority)
	s.NotNil(drafts[0].DueDate)
	s.Equal(models.TaskPriorityMedium, drafts[1].Priority)
	s.Nil(drafts[1].DueDate, "stale due dates are dropped")

	s.service.aiService.client = fakeChatCompleter{content: "[]"}
	_, err = s.service.GenerateTasks(context.Background(), GenerateTasksInput{Text: "notes"})
	s.ErrorIs(err, ErrAINoTasksGenerated)

	s.service.aiService.client = fakeChatCompleter{err: errors.New("rate limited")}
	_, err = s.service.GenerateTasks(context.Background(), GenerateTasksInput{Text: "notes"})
	s.Error(err)
	s.False(errors.Is(err, ErrValidation))
}

func idsOf(tasks []models.Task) []uint64 {
	ids := make([]uint64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func TestDiffIDs(t *testing.T) {
	added, removed := diffIDs([]uint64{1, 2, 3}, []uint64{3, 4, 4, 5})
	assert.Equal(t, []uint64{4, 5}, added)
	assert.Equal(t, []uint64{1, 2}, removed)

	added, removed = diffIDs([]uint64{1}, []uint64{1})
	assert.Empty(t, added)
	assert.Empty(t, removed)
}
