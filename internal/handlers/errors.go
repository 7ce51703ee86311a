package handlers

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-tracker-api/internal/constants"
	apierrors "github.com/yukikurage/task-tracker-api/internal/errors"
	"github.com/yukikurage/task-tracker-api/internal/models"
	"github.com/yukikurage/task-tracker-api/internal/services"
	"go.uber.org/zap"
)

// serviceMessages maps specific service errors to catalog message IDs.
// Order matters: ErrTaskHidden must match before the permission errors.
var serviceMessages = []struct {
	err error
	id  string
}{
	{services.ErrTaskHidden, "task_not_found"},
	{services.ErrTaskNotFound, "task_not_found"},
	{services.ErrUserNotFound, "user_not_found"},
	{services.ErrCreatorNotFound, "creator_not_found"},
	{services.ErrAssigneeNotFound, "assignee_not_found"},
	{services.ErrTitleEmpty, "title_empty"},
	{services.ErrNameRequired, "name_required"},
	{services.ErrEmailRequired, "email_required"},
	{services.ErrEmailTaken, "email_taken"},
	{services.ErrTaskPermissionDenied, "task_permission_denied"},
	{services.ErrStatusPermissionDenied, "status_permission_denied"},
	{services.ErrCompletePermissionDenied, "complete_permission_denied"},
	{services.ErrTaskDetailsDenied, "task_details_denied"},
	{services.ErrTaskDeleteDenied, "task_delete_denied"},
	{services.ErrTextRequired, "text_required"},
	{services.ErrAIServiceNotConfigured, "ai_not_configured"},
	{services.ErrAINoTasksGenerated, "ai_no_tasks"},
	{services.ErrAINoValidTasks, "ai_no_valid_tasks"},
}

// respondServiceError translates a service error into an API error response.
// Not-found is checked first so a hidden completed task answers 404.
func respondServiceError(c *gin.Context, err error) {
	id := serviceMessageID(err)

	switch {
	case errors.Is(err, services.ErrNotFound):
		apierrors.NotFound(c, id)
	case errors.Is(err, services.ErrInvalidStatus):
		apierrors.BadRequestWithData(c, "invalid_status", options(models.TaskStatuses))
	case errors.Is(err, services.ErrInvalidPriority):
		apierrors.BadRequestWithData(c, "invalid_priority", options(models.TaskPriorities))
	case errors.Is(err, services.ErrInvalidRole):
		apierrors.BadRequestWithData(c, "invalid_role", options(models.Roles))
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequestWithData(c, "password_too_short", map[string]interface{}{"Min": constants.MinPasswordLength})
	case errors.Is(err, services.ErrAITooManyTasks):
		apierrors.BadRequestWithData(c, "ai_too_many_tasks", map[string]interface{}{"Max": constants.MaxAIGeneratedTasks})
	case errors.Is(err, services.ErrValidation):
		apierrors.BadRequest(c, id)
	case errors.Is(err, services.ErrConflict):
		apierrors.Conflict(c, id)
	case errors.Is(err, services.ErrPermissionDenied):
		apierrors.Forbidden(c, id)
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	case errors.Is(err, services.ErrUnavailable):
		apierrors.ServiceUnavailable(c, id)
	default:
		zap.L().Error("unhandled service error",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(constants.ContextKeyRequestID)),
			zap.Error(err),
		)
		apierrors.InternalError(c, "")
	}
}

func serviceMessageID(err error) string {
	for _, m := range serviceMessages {
		if errors.Is(err, m.err) {
			return m.id
		}
	}
	return ""
}

func options[T ~string](values []T) map[string]interface{} {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return map[string]interface{}{"Options": strings.Join(names, ", ")}
}
