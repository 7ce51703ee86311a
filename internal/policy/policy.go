// Package policy decides what an actor may do with a task. Every function is
// pure: it looks only at the actor's role and id and at the task's creator,
// assignees and status.
package policy

import "github.com/yukikurage/task-tracker-api/internal/models"

// Action names a coarse, resource-independent permission.
type Action string

const (
	ActionViewAllCompletedTasks Action = "view_all_completed_tasks"
	ActionCompleteAnyTask       Action = "complete_any_task"
	ActionDeleteTask            Action = "delete_task"
)

// HasPermission is the coarse role check. Admins hold every action except
// viewing completed tasks, which belongs to tech leads alone. Developers hold
// no coarse permission; everything they may do is resource scoped.
func HasPermission(user *models.User, action Action) bool {
	if user == nil {
		return false
	}
	if action == ActionViewAllCompletedTasks {
		return user.Role == models.RoleTechLead
	}
	return user.Role == models.RoleAdmin
}

// CanViewCompleted reports whether actor sees completed tasks. A nil actor
// means an internal caller and is never filtered.
func CanViewCompleted(actor *models.User) bool {
	return actor == nil || HasPermission(actor, ActionViewAllCompletedTasks)
}

// CanViewTask gates reading a single task.
func CanViewTask(actor *models.User, task *models.Task) bool {
	return !task.IsCompleted() || CanViewCompleted(actor)
}

func isCreator(actor *models.User, task *models.Task) bool {
	return actor != nil && task.CreatorID == actor.ID
}

func isAssigned(actor *models.User, task *models.Task) bool {
	return actor != nil && task.IsAssigned(actor.ID)
}

func isLeadOrAdmin(actor *models.User) bool {
	return actor != nil && actor.IsLeadOrAdmin()
}

// CanEditTask gates full-field updates: creator, tech lead or admin. Every
// resource check below denies a nil actor.
func CanEditTask(actor *models.User, task *models.Task) bool {
	return isCreator(actor, task) || isLeadOrAdmin(actor)
}

// CanUpdateStatus gates the dedicated status operation.
func CanUpdateStatus(actor *models.User, task *models.Task) bool {
	return isAssigned(actor, task) || isCreator(actor, task) || isLeadOrAdmin(actor)
}

// CanCompleteTask applies the extra rule for moving a task to completed: a
// creator who is neither assigned nor a lead/admin may not close it.
func CanCompleteTask(actor *models.User, task *models.Task) bool {
	if HasPermission(actor, ActionCompleteAnyTask) {
		return true
	}
	return isAssigned(actor, task) || isLeadOrAdmin(actor)
}

// CanUpdatePriority gates the dedicated priority operation.
func CanUpdatePriority(actor *models.User, task *models.Task) bool {
	return CanEditTask(actor, task)
}

// CanAssign gates adding an assignee.
func CanAssign(actor *models.User, task *models.Task) bool {
	return CanEditTask(actor, task)
}

// CanUnassign gates removing userID; anyone may remove themselves.
func CanUnassign(actor *models.User, task *models.Task, userID uint64) bool {
	return CanEditTask(actor, task) || (actor != nil && actor.ID == userID)
}

// CanDeleteTask gates soft deletion: the creator or an actor holding
// ActionDeleteTask.
func CanDeleteTask(actor *models.User, task *models.Task) bool {
	return isCreator(actor, task) || HasPermission(actor, ActionDeleteTask)
}

// PatchDecision is the outcome of checking a generic multi-field update.
type PatchDecision int

const (
	PatchAllowed PatchDecision = iota
	// PatchDetailsDenied: the actor lacks edit rights and touched more than status.
	PatchDetailsDenied
	// PatchStatusDenied: a status-only patch from an actor who is not assigned.
	PatchStatusDenied
)

// CheckPatch evaluates a generic update. Actors without edit rights may only
// send a patch that touches status alone, and only on tasks assigned to them.
func CheckPatch(actor *models.User, task *models.Task, statusOnly bool) PatchDecision {
	if CanEditTask(actor, task) {
		return PatchAllowed
	}
	if !statusOnly {
		return PatchDetailsDenied
	}
	if !isAssigned(actor, task) {
		return PatchStatusDenied
	}
	return PatchAllowed
}
