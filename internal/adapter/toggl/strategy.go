package toggl

import (
	"context"

	"toggl-connector/internal/domain"
	"toggl-connector/internal/namecode"
	"toggl-connector/internal/ports"
)

// NewStrategy selects the tier strategy for a connector configuration.
func NewStrategy(tier domain.Tier, api ports.TogglAPI) ports.TierStrategy {
	if tier == domain.TierFree {
		return &freeTierStrategy{api: api}
	}
	return &premiumStrategy{api: api}
}

// premiumStrategy uses the native task sub-resource and the tid/pid
// report fields.
type premiumStrategy struct {
	api ports.TogglAPI
}

func (s *premiumStrategy) ListProjects(ctx context.Context, workspaceID int64, active ports.ActiveFilter) ([]domain.RemoteProject, error) {
	return s.api.Projects(ctx, workspaceID, active)
}

func (s *premiumStrategy) ListTasks(ctx context.Context, workspaceID, remoteProjectID int64) ([]domain.RemoteTask, error) {
	return s.api.ProjectTasks(ctx, remoteProjectID)
}

func (s *premiumStrategy) CreateTask(ctx context.Context, workspaceID, remoteProjectID int64, name string, localID uint) (domain.RemoteTask, error) {
	return s.api.CreateTask(ctx, workspaceID, remoteProjectID, s.TaskName(name, localID))
}

func (s *premiumStrategy) UpdateTask(ctx context.Context, taskID int64, name string, localID uint, active bool) (domain.RemoteTask, error) {
	encoded := s.TaskName(name, localID)
	return s.api.UpdateTask(ctx, taskID, ports.TaskUpdate{Name: &encoded, Active: &active})
}

func (s *premiumStrategy) ArchiveTask(ctx context.Context, taskID int64) error {
	inactive := false
	_, err := s.api.UpdateTask(ctx, taskID, ports.TaskUpdate{Active: &inactive})
	return err
}

func (s *premiumStrategy) ProjectName(name string, localID uint) string {
	return namecode.Encode(name, localID)
}

func (s *premiumStrategy) TaskName(name string, localID uint) string {
	return namecode.Encode(name, localID)
}

func (s *premiumStrategy) ClassifyEntry(e domain.ReportEntry) (taskID, projectID int64) {
	if e.TaskID != 0 {
		return e.TaskID, 0
	}
	return 0, e.ProjectID
}

// freeTierStrategy folds tasks into name-encoded workspace projects: the
// "T: " prefix marks a task, "P: " a project. The encoded name is the
// only channel carrying local identity.
type freeTierStrategy struct {
	api ports.TogglAPI
}

func (s *freeTierStrategy) ListProjects(ctx context.Context, workspaceID int64, active ports.ActiveFilter) ([]domain.RemoteProject, error) {
	all, err := s.api.Projects(ctx, workspaceID, active)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RemoteProject, 0, len(all))
	for _, p := range all {
		if namecode.IsFreeTask(p.Name) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ListTasks ignores the project scope: a task-encoded project carries no
// parent linkage, so the workspace-wide listing is returned and matching
// relies on stored external ids.
func (s *freeTierStrategy) ListTasks(ctx context.Context, workspaceID, remoteProjectID int64) ([]domain.RemoteTask, error) {
	all, err := s.api.Projects(ctx, workspaceID, ports.ActiveBoth)
	if err != nil {
		return nil, err
	}
	var out []domain.RemoteTask
	for _, p := range all {
		if !namecode.IsFreeTask(p.Name) {
			continue
		}
		out = append(out, domain.RemoteTask{
			ID:          p.ID,
			WorkspaceID: p.WorkspaceID,
			Name:        p.Name,
			Active:      p.Active,
		})
	}
	return out, nil
}

func (s *freeTierStrategy) CreateTask(ctx context.Context, workspaceID, remoteProjectID int64, name string, localID uint) (domain.RemoteTask, error) {
	p, err := s.api.CreateProject(ctx, workspaceID, s.TaskName(name, localID), 0)
	if err != nil {
		return domain.RemoteTask{}, err
	}
	return domain.RemoteTask{ID: p.ID, WorkspaceID: p.WorkspaceID, Name: p.Name, Active: p.Active}, nil
}

func (s *freeTierStrategy) UpdateTask(ctx context.Context, taskID int64, name string, localID uint, active bool) (domain.RemoteTask, error) {
	encoded := s.TaskName(name, localID)
	p, err := s.api.UpdateProject(ctx, taskID, ports.ProjectUpdate{Name: &encoded, Active: &active})
	if err != nil {
		return domain.RemoteTask{}, err
	}
	return domain.RemoteTask{ID: p.ID, WorkspaceID: p.WorkspaceID, Name: p.Name, Active: p.Active}, nil
}

func (s *freeTierStrategy) ArchiveTask(ctx context.Context, taskID int64) error {
	inactive := false
	_, err := s.api.UpdateProject(ctx, taskID, ports.ProjectUpdate{Active: &inactive})
	return err
}

func (s *freeTierStrategy) ProjectName(name string, localID uint) string {
	return namecode.EncodeFreeProject(name, localID)
}

func (s *freeTierStrategy) TaskName(name string, localID uint) string {
	return namecode.EncodeFreeTask(name, localID)
}

// ClassifyEntry reads the discriminator from the entry's project name:
// a "T: " prefix means the pid points at a task-encoded project.
func (s *freeTierStrategy) ClassifyEntry(e domain.ReportEntry) (taskID, projectID int64) {
	if e.ProjectID == 0 {
		return 0, 0
	}
	if namecode.IsFreeTask(e.ProjectName) {
		return e.ProjectID, 0
	}
	return 0, e.ProjectID
}
