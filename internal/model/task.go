package model

import "time"

// TaskType distinguishes plain tasks from list-like containers.
type TaskType string

const (
	TaskTypePlain TaskType = "plain"
	TaskTypeList  TaskType = "list"
)

// SnapshotStates is a positional subtask completion snapshot.
type SnapshotStates []bool

// Task represents a single work item. A task with a non-nil
// ParentTaskID is a subtask and participates in its parent's cascade
// rules; subtasks are not required to have a commitment of their own.
type Task struct {
	ID           uint `gorm:"primaryKey"`
	UserID       uint `gorm:"index"`
	Title        string
	Type         TaskType `gorm:"default:plain"`
	ParentTaskID *uint    `gorm:"index"`
	IsCompleted  bool     `gorm:"default:false"`
	CompletedAt  *time.Time
	SortOrder    int
	// CompletionSnapshot holds the completion states of this task's
	// subtasks, in SortOrder position, captured immediately before the
	// task was last auto- or force-completed. Restored on uncomplete.
	CompletionSnapshot SnapshotStates `gorm:"serializer:json"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsSubtask reports whether the task belongs to a parent task.
func (t *Task) IsSubtask() bool {
	return t.ParentTaskID != nil
}
