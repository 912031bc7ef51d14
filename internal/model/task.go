package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Task is a single unit of work.
type Task struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Name        string     `json:"name"`
	Summary     string     `json:"summary,omitempty"`
	Status      Status     `gorm:"size:16;default:todo;index" json:"status"`
	Priority    Priority   `gorm:"size:16;default:medium" json:"priority"`
	Deadline    *time.Time `json:"deadline"`
	CompletedAt *time.Time `json:"completed_at"`
	CategoryID  *string    `gorm:"size:36;index" json:"category_id"`
	ProjectID   *string    `gorm:"size:36;index" json:"project_id"`
	CreatedBy   string     `gorm:"size:36;index" json:"created_by"`
	AssignedTo  string     `gorm:"size:36;index" json:"assigned_to"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Project  *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Assignee *User     `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	Creator  *User     `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

func (t Task) EntityID() string { return t.ID }

// Overdue reports whether the deadline has passed while the task is open.
func (t Task) Overdue(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now) && t.Status != StatusDone
}

// TaskInput is the data a user supplies when creating a task.
type TaskInput struct {
	Name       string     `json:"name"`
	Summary    string     `json:"summary"`
	Status     Status     `json:"status"`
	Priority   Priority   `json:"priority"`
	Deadline   *time.Time `json:"deadline"`
	CategoryID *string    `json:"category_id"`
	ProjectID  *string    `json:"project_id"`
	AssignedTo string     `json:"assigned_to"`
}

// TaskPatch is a partial update of a task. CompletedAt is derived from
// Status by the store and is not accepted from clients.
type TaskPatch struct {
	Name        Field[string]     `json:"name"`
	Summary     Field[string]     `json:"summary"`
	Status      Field[Status]     `json:"status"`
	Priority    Field[Priority]   `json:"priority"`
	Deadline    Field[*time.Time] `json:"deadline"`
	CategoryID  Field[*string]    `json:"category_id"`
	ProjectID   Field[*string]    `json:"project_id"`
	AssignedTo  Field[string]     `json:"assigned_to"`
	CompletedAt Field[*time.Time] `json:"-"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return len(p.Columns()) == 0
}

// Columns maps the set fields to their column names.
func (p TaskPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Name.Set {
		cols["name"] = p.Name.Value
	}
	if p.Summary.Set {
		cols["summary"] = p.Summary.Value
	}
	if p.Status.Set {
		cols["status"] = p.Status.Value
	}
	if p.Priority.Set {
		cols["priority"] = p.Priority.Value
	}
	if p.Deadline.Set {
		cols["deadline"] = p.Deadline.Value
	}
	if p.CategoryID.Set {
		cols["category_id"] = p.CategoryID.Value
	}
	if p.ProjectID.Set {
		cols["project_id"] = p.ProjectID.Value
	}
	if p.AssignedTo.Set {
		cols["assigned_to"] = p.AssignedTo.Value
	}
	if p.CompletedAt.Set {
		cols["completed_at"] = p.CompletedAt.Value
	}
	return cols
}
