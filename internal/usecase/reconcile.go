// Package usecase holds the sync core: the entity reconciler, the
// archival sweep, the time-entry importer and the orchestrator that
// fronts them.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"toggl-connector/internal/domain"
	"toggl-connector/internal/ports"
)

// Reconciler pushes local partners, projects and tasks to Toggl,
// creating or updating remote objects and writing external ids back to
// the local records.
type Reconciler struct {
	Log      *slog.Logger
	API      ports.TogglAPI
	Strategy ports.TierStrategy
	Partners ports.PartnerStore
	Projects ports.ProjectStore
	Tasks    ports.TaskStore
}

// session caches the bulk remote listings for one push invocation, so
// the per-record work runs against a snapshot instead of issuing one
// lookup per record. Never shared across invocations.
type session struct {
	clients  []domain.RemoteClient
	projects []domain.RemoteProject
	tasks    map[int64][]domain.RemoteTask

	// clientByPartner records clients already resolved in this push. The
	// partner rows preloaded by Projects.Active are a pre-loop snapshot,
	// so a partner shared by several projects must not re-enter
	// ensureClient with its stale nil link.
	clientByPartner map[uint]int64
}

func (s *session) client(id int64) *domain.RemoteClient {
	for i := range s.clients {
		if s.clients[i].ID == id {
			return &s.clients[i]
		}
	}
	return nil
}

func (s *session) project(id int64) *domain.RemoteProject {
	for i := range s.projects {
		if s.projects[i].ID == id {
			return &s.projects[i]
		}
	}
	return nil
}

func (s *session) task(projectID, id int64) *domain.RemoteTask {
	for i, t := range s.tasks[projectID] {
		if t.ID == id {
			return &s.tasks[projectID][i]
		}
	}
	return nil
}

// Push runs the projects-then-tasks sync. A nil since pushes every
// active local record; otherwise only records modified at or after
// since are pushed. The snapshot listings are always full, since orphan
// detection needs the complete remote set.
func (r *Reconciler) Push(ctx context.Context, conn domain.Connector, since *time.Time) error {
	sess, err := r.loadSession(ctx, conn)
	if err != nil {
		return err
	}
	if err := r.pushProjects(ctx, sess, conn, since); err != nil {
		return err
	}
	return r.pushTasks(ctx, sess, conn, since)
}

func (r *Reconciler) loadSession(ctx context.Context, conn domain.Connector) (*session, error) {
	clients, err := r.API.Clients(ctx, conn.WorkspaceID)
	if err != nil {
		return nil, err
	}
	projects, err := r.Strategy.ListProjects(ctx, conn.WorkspaceID, ports.ActiveBoth)
	if err != nil {
		return nil, err
	}
	return &session{
		clients:         clients,
		projects:        projects,
		tasks:           make(map[int64][]domain.RemoteTask),
		clientByPartner: make(map[uint]int64),
	}, nil
}

func (r *Reconciler) pushProjects(ctx context.Context, sess *session, conn domain.Connector, since *time.Time) error {
	projects, err := r.Projects.Active(ctx, since, conn.SkipProjectIDs)
	if err != nil {
		return err
	}

	for _, project := range projects {
		var clientID int64
		if project.PartnerID != nil {
			if cached, ok := sess.clientByPartner[*project.PartnerID]; ok {
				clientID = cached
			} else {
				partner := project.Partner
				if partner == nil {
					p, err := r.Partners.Get(ctx, *project.PartnerID)
					if err != nil {
						return err
					}
					partner = &p
				}
				clientID, err = r.ensureClient(ctx, sess, conn, *partner)
				if err != nil {
					return err
				}
				if err := r.Partners.SetTogglClientID(ctx, partner.ID, &clientID); err != nil {
					return err
				}
				sess.clientByPartner[partner.ID] = clientID
			}
		}

		togglID, err := r.ensureProject(ctx, sess, conn, project, clientID)
		if err != nil {
			return err
		}
		if err := r.Projects.SetTogglProjectID(ctx, project.ID, &togglID); err != nil {
			return err
		}
	}
	return nil
}

// ensureClient makes sure a remote client matching the partner exists
// and carries the current name. A stale link (remote client gone) is
// cleared before recreating.
func (r *Reconciler) ensureClient(ctx context.Context, sess *session, conn domain.Connector, partner domain.Partner) (int64, error) {
	var current *domain.RemoteClient
	if partner.TogglClientID != nil {
		current = sess.client(*partner.TogglClientID)
	}

	if current == nil {
		if partner.TogglClientID != nil {
			r.Log.Warn("toggl client vanished remotely, unlinking", slog.Uint64("partner", uint64(partner.ID)))
			if err := r.Partners.SetTogglClientID(ctx, partner.ID, nil); err != nil {
				return 0, err
			}
		}
		r.Log.Debug("create toggl client", slog.String("name", partner.Name))
		created, err := r.API.CreateClient(ctx, conn.WorkspaceID, partner.Name)
		if err != nil {
			return 0, err
		}
		sess.clients = append(sess.clients, created)
		return created.ID, nil
	}

	if current.Name != partner.Name {
		r.Log.Debug("update toggl client", slog.String("name", partner.Name))
		updated, err := r.API.UpdateClient(ctx, current.ID, partner.Name)
		if err != nil {
			return 0, err
		}
		*current = updated
		return updated.ID, nil
	}
	return current.ID, nil
}

// ensureProject applies the create-or-update algorithm to one local
// project and returns its remote id.
func (r *Reconciler) ensureProject(ctx context.Context, sess *session, conn domain.Connector, project domain.Project, clientID int64) (int64, error) {
	name := r.Strategy.ProjectName(project.Name, project.ID)

	var current *domain.RemoteProject
	if project.TogglProjectID != nil {
		current = sess.project(*project.TogglProjectID)
	}

	if current == nil {
		if project.TogglProjectID != nil {
			r.Log.Warn("toggl project vanished remotely, unlinking", slog.Uint64("project", uint64(project.ID)))
			if err := r.Projects.SetTogglProjectID(ctx, project.ID, nil); err != nil {
				return 0, err
			}
		}
		r.Log.Debug("create toggl project", slog.String("name", name))
		created, err := r.API.CreateProject(ctx, conn.WorkspaceID, name, clientID)
		if err != nil {
			return 0, err
		}
		sess.projects = append(sess.projects, created)
		return created.ID, nil
	}

	if current.Name != name || current.ClientID != clientID || !current.Active {
		r.Log.Debug("update toggl project", slog.String("name", name))
		active := true
		updated, err := r.API.UpdateProject(ctx, current.ID, ports.ProjectUpdate{
			Name:     &name,
			ClientID: &clientID,
			Active:   &active,
		})
		if err != nil {
			return 0, err
		}
		*current = updated
		return updated.ID, nil
	}
	return current.ID, nil
}

// pushTasks walks the remote project snapshot and syncs the unfolded
// local tasks of every project that resolves to a local record.
func (r *Reconciler) pushTasks(ctx context.Context, sess *session, conn domain.Connector, since *time.Time) error {
	for _, remoteProject := range sess.projects {
		project, err := r.Projects.ByTogglID(ctx, remoteProject.ID)
		if err != nil {
			return err
		}
		if project == nil {
			r.Log.Debug("remote project has no local counterpart", slog.String("name", remoteProject.Name))
			continue
		}
		if conn.SkipProjectIDs.Contains(project.ID) {
			continue
		}

		remoteTasks, err := r.Strategy.ListTasks(ctx, conn.WorkspaceID, remoteProject.ID)
		if err != nil {
			return err
		}
		sess.tasks[remoteProject.ID] = remoteTasks

		tasks, err := r.Tasks.Unfolded(ctx, project.ID, since)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			togglID, err := r.ensureTask(ctx, sess, conn, remoteProject.ID, task)
			if err != nil {
				return err
			}
			if err := r.Tasks.SetTogglTaskID(ctx, task.ID, &togglID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Reconciler) ensureTask(ctx context.Context, sess *session, conn domain.Connector, remoteProjectID int64, task domain.Task) (int64, error) {
	name := r.Strategy.TaskName(task.Name, task.ID)

	var current *domain.RemoteTask
	if task.TogglTaskID != nil {
		current = sess.task(remoteProjectID, *task.TogglTaskID)
	}

	if current == nil {
		if task.TogglTaskID != nil {
			r.Log.Warn("toggl task vanished remotely, unlinking", slog.Uint64("task", uint64(task.ID)))
			if err := r.Tasks.SetTogglTaskID(ctx, task.ID, nil); err != nil {
				return 0, err
			}
		}
		r.Log.Debug("create toggl task", slog.String("name", name))
		created, err := r.Strategy.CreateTask(ctx, conn.WorkspaceID, remoteProjectID, task.Name, task.ID)
		if err != nil {
			return 0, err
		}
		sess.tasks[remoteProjectID] = append(sess.tasks[remoteProjectID], created)
		return created.ID, nil
	}

	if current.Name != name || !current.Active {
		r.Log.Debug("update toggl task", slog.String("name", name))
		updated, err := r.Strategy.UpdateTask(ctx, current.ID, task.Name, task.ID, true)
		if err != nil {
			return 0, err
		}
		*current = updated
		return updated.ID, nil
	}
	return current.ID, nil
}
