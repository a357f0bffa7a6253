package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted}

func TestValidateTransition_Grid(t *testing.T) {
	for _, current := range allStatuses {
		for _, requested := range allStatuses {
			want := current != TaskStatusCompleted &&
				current != requested &&
				!(current == TaskStatusInProgress && requested == TaskStatusPending)

			err := ValidateTransition(current, requested)
			if want {
				assert.NoError(t, err, "%s -> %s", current, requested)
				continue
			}
			require.Error(t, err, "%s -> %s", current, requested)
			var conflict *ConflictError
			assert.ErrorAs(t, err, &conflict, "%s -> %s", current, requested)
		}
	}
}

func TestValidateTransition_Messages(t *testing.T) {
	tests := []struct {
		name      string
		current   TaskStatus
		requested TaskStatus
		wantErr   string
	}{
		{"self transition", TaskStatusPending, TaskStatusPending, MsgAlreadyInStatus},
		{"completed is terminal", TaskStatusCompleted, TaskStatusInProgress, MsgTaskCompleted},
		{"completed to completed reports self first", TaskStatusCompleted, TaskStatusCompleted, MsgAlreadyInStatus},
		{"no backward move", TaskStatusInProgress, TaskStatusPending, MsgBackwardToPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTransition(tt.current, tt.requested)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	err := ValidateTransition(TaskStatusPending, TaskStatus("ARCHIVED"))
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "status")
}

func TestAuthorizeStatusChange(t *testing.T) {
	task := &Task{AssignerID: "u-assigner", AssigneeID: "u-assignee"}

	assert.NoError(t, AuthorizeStatusChange(task, &Principal{ID: "u-assigner"}))
	assert.NoError(t, AuthorizeStatusChange(task, &Principal{ID: "u-assignee"}))

	var denied *AccessDeniedError
	assert.ErrorAs(t, AuthorizeStatusChange(task, &Principal{ID: "u-other"}), &denied)
	assert.ErrorAs(t, AuthorizeStatusChange(task, nil), &denied)
}

func TestAuthorizeOwnerChange_AssigneeRejected(t *testing.T) {
	task := &Task{AssignerID: "u-assigner", AssigneeID: "u-assignee"}

	assert.NoError(t, AuthorizeOwnerChange(task, &Principal{ID: "u-assigner"}))

	var denied *AccessDeniedError
	assert.ErrorAs(t, AuthorizeOwnerChange(task, &Principal{ID: "u-assignee"}), &denied)
	assert.ErrorAs(t, AuthorizeOwnerChange(task, &Principal{ID: "u-other"}), &denied)
}
