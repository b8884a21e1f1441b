// Package ports defines the interfaces between the sync core and its
// collaborators: the Toggl API, the tier strategy, and the local record
// store.
package ports

import (
	"context"
	"time"

	"toggl-connector/internal/domain"
)

// ActiveFilter selects which projects a workspace listing returns.
type ActiveFilter string

const (
	ActiveBoth ActiveFilter = "both"
	ActiveOnly ActiveFilter = "true"
)

// ProjectUpdate carries the fields reasserted on a remote project.
// Nil fields are left untouched remotely.
type ProjectUpdate struct {
	Name     *string
	ClientID *int64
	Active   *bool
}

// TaskUpdate carries the fields reasserted on a remote task. Nil fields
// are left untouched remotely.
type TaskUpdate struct {
	Name   *string
	Active *bool
}

// ReportQuery addresses one page of the Toggl detailed report.
type ReportQuery struct {
	WorkspaceID int64
	UserID      int64
	Since       string // YYYY-MM-DD
	Until       string // YYYY-MM-DD
	Page        int
}

// TogglAPI is the raw Toggl v8 + Reports v2 surface used by the core.
type TogglAPI interface {
	Me(ctx context.Context) (domain.RemoteUser, error)
	WorkspaceUsers(ctx context.Context, workspaceID int64) ([]domain.RemoteUser, error)
	Clients(ctx context.Context, workspaceID int64) ([]domain.RemoteClient, error)
	Projects(ctx context.Context, workspaceID int64, active ActiveFilter) ([]domain.RemoteProject, error)
	ProjectTasks(ctx context.Context, projectID int64) ([]domain.RemoteTask, error)

	CreateClient(ctx context.Context, workspaceID int64, name string) (domain.RemoteClient, error)
	UpdateClient(ctx context.Context, clientID int64, name string) (domain.RemoteClient, error)
	CreateProject(ctx context.Context, workspaceID int64, name string, clientID int64) (domain.RemoteProject, error)
	UpdateProject(ctx context.Context, projectID int64, update ProjectUpdate) (domain.RemoteProject, error)
	CreateTask(ctx context.Context, workspaceID, projectID int64, name string) (domain.RemoteTask, error)
	UpdateTask(ctx context.Context, taskID int64, update TaskUpdate) (domain.RemoteTask, error)

	DetailedReportPage(ctx context.Context, q ReportQuery) ([]domain.ReportEntry, error)
}

// TierStrategy abstracts the free/premium API differences. The premium
// strategy uses the native task resource; the free strategy folds tasks
// into name-encoded projects.
type TierStrategy interface {
	// ListProjects returns the workspace projects that represent local
	// projects (under the free tier, task-encoded projects are filtered
	// out).
	ListProjects(ctx context.Context, workspaceID int64, active ActiveFilter) ([]domain.RemoteProject, error)

	// ListTasks returns the remote tasks for a project. The free tier
	// cannot scope by project and returns every task in the workspace.
	ListTasks(ctx context.Context, workspaceID, remoteProjectID int64) ([]domain.RemoteTask, error)

	CreateTask(ctx context.Context, workspaceID, remoteProjectID int64, name string, localID uint) (domain.RemoteTask, error)
	UpdateTask(ctx context.Context, taskID int64, name string, localID uint, active bool) (domain.RemoteTask, error)
	ArchiveTask(ctx context.Context, taskID int64) error

	// ProjectName and TaskName build the display names pushed to Toggl.
	ProjectName(name string, localID uint) string
	TaskName(name string, localID uint) string

	// ClassifyEntry resolves a report entry to external ids: taskID is
	// nonzero when the entry belongs to a task, otherwise projectID is
	// used; both zero means unlinked.
	ClassifyEntry(e domain.ReportEntry) (taskID, projectID int64)
}

// PartnerStore reads and links local partner records.
type PartnerStore interface {
	Get(ctx context.Context, id uint) (domain.Partner, error)
	SetTogglClientID(ctx context.Context, id uint, togglID *int64) error
}

// ProjectStore reads and links local project records.
type ProjectStore interface {
	Get(ctx context.Context, id uint) (domain.Project, error)
	// Active returns active projects, partner preloaded, excluding skip
	// and, when since is non-nil, those not modified at or after it.
	Active(ctx context.Context, since *time.Time, skip domain.IDList) ([]domain.Project, error)
	ByTogglID(ctx context.Context, togglID int64) (*domain.Project, error)
	SetTogglProjectID(ctx context.Context, id uint, togglID *int64) error
}

// TaskStore reads and links local task records.
type TaskStore interface {
	// Unfolded returns active tasks of a project in an unfolded stage,
	// optionally filtered by modification time.
	Unfolded(ctx context.Context, projectID uint, since *time.Time) ([]domain.Task, error)
	ByTogglID(ctx context.Context, togglID int64) (*domain.Task, error)
	// UnfoldedByTogglID resolves a linked task only if it is still active
	// and in an unfolded stage.
	UnfoldedByTogglID(ctx context.Context, togglID int64) (*domain.Task, error)
	SetTogglTaskID(ctx context.Context, id uint, togglID *int64) error
}

// TimesheetStore upserts imported timesheet lines.
type TimesheetStore interface {
	ByTogglEntryID(ctx context.Context, entryID int64) (*domain.TimesheetLine, error)
	Create(ctx context.Context, line *domain.TimesheetLine) error
	Update(ctx context.Context, line *domain.TimesheetLine) error
}

// EmployeeStore resolves users to employees and records pull checkpoints.
type EmployeeStore interface {
	ByUserID(ctx context.Context, userID uint) ([]domain.Employee, error)
	SetLastFetch(ctx context.Context, id uint, t time.Time) error
}

// ConnectorStore loads the per-tenant connector configuration.
type ConnectorStore interface {
	Load(ctx context.Context) (domain.Connector, error)
	Save(ctx context.Context, c *domain.Connector) error
	SetLastRun(ctx context.Context, id uint, t time.Time) error
}
