package usecase

import (
	"context"
	"log/slog"

	"toggl-connector/internal/domain"
	"toggl-connector/internal/ports"
)

// Archiver deactivates remote projects and tasks whose local counterpart
// is gone, inactive or folded. Projects on the skip-list are excluded
// from the sweep entirely.
type Archiver struct {
	Log      *slog.Logger
	API      ports.TogglAPI
	Strategy ports.TierStrategy
	Projects ports.ProjectStore
	Tasks    ports.TaskStore
}

// Run sweeps every active remote project. Archiving a project also
// archives its tasks on the Toggl side, so the task pass only covers
// projects that stay active.
func (a *Archiver) Run(ctx context.Context, conn domain.Connector) error {
	remoteProjects, err := a.Strategy.ListProjects(ctx, conn.WorkspaceID, ports.ActiveOnly)
	if err != nil {
		return err
	}

	// The free tier lists tasks workspace-wide, so remember which remote
	// tasks were already checked.
	seenTasks := make(map[int64]bool)

	for _, remoteProject := range remoteProjects {
		project, err := a.Projects.ByTogglID(ctx, remoteProject.ID)
		if err != nil {
			return err
		}

		if project != nil && conn.SkipProjectIDs.Contains(project.ID) {
			continue
		}

		if project == nil || !project.Active {
			a.Log.Warn("deactivate toggl project", slog.String("name", remoteProject.Name))
			inactive := false
			if _, err := a.API.UpdateProject(ctx, remoteProject.ID, ports.ProjectUpdate{Active: &inactive}); err != nil {
				return err
			}
			continue
		}

		remoteTasks, err := a.Strategy.ListTasks(ctx, conn.WorkspaceID, remoteProject.ID)
		if err != nil {
			return err
		}
		for _, remoteTask := range remoteTasks {
			if !remoteTask.Active || seenTasks[remoteTask.ID] {
				continue
			}
			seenTasks[remoteTask.ID] = true

			task, err := a.Tasks.UnfoldedByTogglID(ctx, remoteTask.ID)
			if err != nil {
				return err
			}
			if task == nil {
				a.Log.Warn("deactivate toggl task", slog.String("name", remoteTask.Name))
				if err := a.Strategy.ArchiveTask(ctx, remoteTask.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
