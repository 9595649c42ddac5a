package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// TaskPriority is the user-assigned priority of a task.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// MaxTags is the largest number of tags a task may carry.
const MaxTags = 5

// Tags is an ordered list of labels. It is stored as a JSON array in
// relational databases and as a native array in MongoDB.
type Tags []string

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Tags", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}

// MarshalJSON renders a nil list as [] so clients never see null.
func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// GormDataType keeps the column a plain text column on every dialect.
func (Tags) GormDataType() string {
	return "text"
}

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID          string       `json:"id" gorm:"primaryKey;type:varchar(36)" bson:"_id"`
	UserID      string       `json:"user" gorm:"type:varchar(36);not null;index:idx_tasks_user_status,priority:1;index:idx_tasks_user_priority,priority:1;index:idx_tasks_user_created,priority:1" bson:"user"`
	Title       string       `json:"title" gorm:"type:varchar(100);not null" bson:"title"`
	Description string       `json:"description" gorm:"type:varchar(500)" bson:"description"`
	Status      TaskStatus   `json:"status" gorm:"type:varchar(20);not null;default:pending;index:idx_tasks_user_status,priority:2" bson:"status"`
	Priority    TaskPriority `json:"priority" gorm:"type:varchar(10);not null;default:medium;index:idx_tasks_user_priority,priority:2" bson:"priority"`
	DueDate     *time.Time   `json:"dueDate" bson:"dueDate"`
	Tags        Tags         `json:"tags" bson:"tags"`
	CreatedAt   time.Time    `json:"createdAt" gorm:"index:idx_tasks_user_created,priority:2" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// ApplyDefaults fills the fields a new task may omit.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = Tags{}
	}
}

// TaskUpdate is a partial update. Only non-nil fields are applied; a
// DueDateSet update with a nil DueDate clears the due date.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *TaskPriority
	DueDateSet  bool
	DueDate     *time.Time
	Tags        *Tags
}

// Apply copies the present fields onto t.
func (u TaskUpdate) Apply(t *Task) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.DueDateSet {
		t.DueDate = u.DueDate
	}
	if u.Tags != nil {
		t.Tags = *u.Tags
	}
}

// Sort fields accepted by task listings.
const (
	SortByCreatedAt = "createdAt"
	SortByDueDate   = "dueDate"
	SortByPriority  = "priority"
	SortByTitle     = "title"
)

// TaskFilter selects and orders a user's tasks. Empty Status, Priority or
// Search mean "no constraint". Priority ordering is lexical on the stored value.
type TaskFilter struct {
	Status   TaskStatus
	Priority TaskPriority
	Search   string
	SortBy   string
	Desc     bool
}

// ValidSortField reports whether field can be used in TaskFilter.SortBy.
func ValidSortField(field string) bool {
	switch field {
	case SortByCreatedAt, SortByDueDate, SortByPriority, SortByTitle:
		return true
	}
	return false
}

// TaskStats holds per-user aggregate counts.
type TaskStats struct {
	Total        int64 `json:"total" bson:"total"`
	Pending      int64 `json:"pending" bson:"pending"`
	InProgress   int64 `json:"inProgress" bson:"inProgress"`
	Completed    int64 `json:"completed" bson:"completed"`
	HighPriority int64 `json:"highPriority" bson:"highPriority"`
}
