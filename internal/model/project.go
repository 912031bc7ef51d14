package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultProjectColor is used when a project is created without a color.
const DefaultProjectColor = "#135bec"

// Project groups tasks and has its own lifecycle.
type Project struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	CategoryID  *string       `gorm:"size:36;index" json:"category_id"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`
	Color       string        `json:"color_code"`
	IsTeam      bool          `gorm:"default:false" json:"is_team_project"`
	Status      ProjectStatus `gorm:"size:16;default:active" json:"status"`
	OwnerID     string        `gorm:"size:36;index" json:"owner_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	// Tasks holds only id, project_id and status of child tasks.
	Tasks []Task `gorm:"foreignKey:ProjectID" json:"tasks"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p Project) EntityID() string { return p.ID }

// ProjectMember links a user to a project with a role.
type ProjectMember struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;uniqueIndex:idx_user_project" json:"user_id"`
	ProjectID string    `gorm:"size:36;uniqueIndex:idx_user_project" json:"project_id"`
	Role      string    `gorm:"size:16" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectMember) TableName() string { return "user_projects" }

func (m *ProjectMember) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ProjectInput is the data a user supplies when creating a project.
type ProjectInput struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	CategoryID  *string       `json:"category_id"`
	StartDate   *time.Time    `json:"start_date"`
	EndDate     *time.Time    `json:"end_date"`
	Color       string        `json:"color_code"`
	IsTeam      bool          `json:"is_team_project"`
	Status      ProjectStatus `json:"status"`
}

// ProjectPatch is a partial update of a project.
type ProjectPatch struct {
	Name        Field[string]        `json:"name"`
	Description Field[string]        `json:"description"`
	CategoryID  Field[*string]       `json:"category_id"`
	StartDate   Field[*time.Time]    `json:"start_date"`
	EndDate     Field[*time.Time]    `json:"end_date"`
	Color       Field[string]        `json:"color_code"`
	IsTeam      Field[bool]          `json:"is_team_project"`
	Status      Field[ProjectStatus] `json:"status"`
}

// Columns maps the set fields to their column names.
func (patch ProjectPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if patch.Name.Set {
		cols["name"] = patch.Name.Value
	}
	if patch.Description.Set {
		cols["description"] = patch.Description.Value
	}
	if patch.CategoryID.Set {
		cols["category_id"] = patch.CategoryID.Value
	}
	if patch.StartDate.Set {
		cols["start_date"] = patch.StartDate.Value
	}
	if patch.EndDate.Set {
		cols["end_date"] = patch.EndDate.Value
	}
	if patch.Color.Set {
		cols["color"] = patch.Color.Value
	}
	if patch.IsTeam.Set {
		cols["is_team"] = patch.IsTeam.Value
	}
	if patch.Status.Set {
		cols["status"] = patch.Status.Value
	}
	return cols
}
