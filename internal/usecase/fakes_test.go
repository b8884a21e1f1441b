package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"toggl-connector/internal/adapter/store"
	"toggl-connector/internal/domain"
	"toggl-connector/internal/ports"
)

// fakeToggl is an in-memory Toggl workspace implementing ports.TogglAPI,
// with per-endpoint call counters.
type fakeToggl struct {
	nextID   int64
	clients  []domain.RemoteClient
	projects []domain.RemoteProject
	tasks    map[int64][]domain.RemoteTask // keyed by project id
	users    []domain.RemoteUser
	pages    [][]domain.ReportEntry
	calls    map[string]int
}

func newFakeToggl() *fakeToggl {
	return &fakeToggl{
		nextID: 1000,
		tasks:  make(map[int64][]domain.RemoteTask),
		calls:  make(map[string]int),
	}
}

func (f *fakeToggl) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeToggl) Me(ctx context.Context) (domain.RemoteUser, error) {
	f.calls["Me"]++
	if len(f.users) > 0 {
		return f.users[0], nil
	}
	return domain.RemoteUser{}, nil
}

func (f *fakeToggl) WorkspaceUsers(ctx context.Context, workspaceID int64) ([]domain.RemoteUser, error) {
	f.calls["WorkspaceUsers"]++
	return f.users, nil
}

func (f *fakeToggl) Clients(ctx context.Context, workspaceID int64) ([]domain.RemoteClient, error) {
	f.calls["Clients"]++
	return append([]domain.RemoteClient(nil), f.clients...), nil
}

func (f *fakeToggl) Projects(ctx context.Context, workspaceID int64, active ports.ActiveFilter) ([]domain.RemoteProject, error) {
	f.calls["Projects"]++
	var out []domain.RemoteProject
	for _, p := range f.projects {
		if active == ports.ActiveOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeToggl) ProjectTasks(ctx context.Context, projectID int64) ([]domain.RemoteTask, error) {
	f.calls["ProjectTasks"]++
	return append([]domain.RemoteTask(nil), f.tasks[projectID]...), nil
}

func (f *fakeToggl) CreateClient(ctx context.Context, workspaceID int64, name string) (domain.RemoteClient, error) {
	f.calls["CreateClient"]++
	c := domain.RemoteClient{ID: f.id(), WorkspaceID: workspaceID, Name: name}
	f.clients = append(f.clients, c)
	return c, nil
}

func (f *fakeToggl) UpdateClient(ctx context.Context, clientID int64, name string) (domain.RemoteClient, error) {
	f.calls["UpdateClient"]++
	for i := range f.clients {
		if f.clients[i].ID == clientID {
			f.clients[i].Name = name
			return f.clients[i], nil
		}
	}
	return domain.RemoteClient{}, fmt.Errorf("fake: no client %d", clientID)
}

func (f *fakeToggl) CreateProject(ctx context.Context, workspaceID int64, name string, clientID int64) (domain.RemoteProject, error) {
	f.calls["CreateProject"]++
	p := domain.RemoteProject{ID: f.id(), WorkspaceID: workspaceID, ClientID: clientID, Name: name, Active: true}
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeToggl) UpdateProject(ctx context.Context, projectID int64, update ports.ProjectUpdate) (domain.RemoteProject, error) {
	f.calls["UpdateProject"]++
	for i := range f.projects {
		if f.projects[i].ID != projectID {
			continue
		}
		if update.Name != nil {
			f.projects[i].Name = *update.Name
		}
		if update.ClientID != nil {
			f.projects[i].ClientID = *update.ClientID
		}
		if update.Active != nil {
			f.projects[i].Active = *update.Active
		}
		return f.projects[i], nil
	}
	return domain.RemoteProject{}, fmt.Errorf("fake: no project %d", projectID)
}

func (f *fakeToggl) CreateTask(ctx context.Context, workspaceID, projectID int64, name string) (domain.RemoteTask, error) {
	f.calls["CreateTask"]++
	t := domain.RemoteTask{ID: f.id(), ProjectID: projectID, WorkspaceID: workspaceID, Name: name, Active: true}
	f.tasks[projectID] = append(f.tasks[projectID], t)
	return t, nil
}

func (f *fakeToggl) UpdateTask(ctx context.Context, taskID int64, update ports.TaskUpdate) (domain.RemoteTask, error) {
	f.calls["UpdateTask"]++
	for pid := range f.tasks {
		for i := range f.tasks[pid] {
			if f.tasks[pid][i].ID != taskID {
				continue
			}
			if update.Name != nil {
				f.tasks[pid][i].Name = *update.Name
			}
			if update.Active != nil {
				f.tasks[pid][i].Active = *update.Active
			}
			return f.tasks[pid][i], nil
		}
	}
	return domain.RemoteTask{}, fmt.Errorf("fake: no task %d", taskID)
}

func (f *fakeToggl) DetailedReportPage(ctx context.Context, q ports.ReportQuery) ([]domain.ReportEntry, error) {
	f.calls["DetailedReportPage"]++
	if q.Page < 1 || q.Page > len(f.pages) {
		return nil, nil
	}
	return f.pages[q.Page-1], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConnector(opts ...func(*domain.Connector)) domain.Connector {
	conn := domain.Connector{
		ID:          1,
		Name:        "Main",
		APIToken:    "tok",
		WorkspaceID: 99,
		Tier:        domain.TierPremium,
	}
	for _, opt := range opts {
		opt(&conn)
	}
	return conn
}
