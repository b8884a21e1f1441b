package toggl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"toggl-connector/internal/domain"
	"toggl-connector/internal/ports"
)

// Raw JSON shapes of the v8 API. Write payloads are wrapped in a
// single-key object ({"project": {...}}) and responses in {"data": ...}.

type rawClient struct {
	ID   int64  `json:"id"`
	WID  int64  `json:"wid"`
	Name string `json:"name"`
}

type rawProject struct {
	ID        int64  `json:"id"`
	WID       int64  `json:"wid"`
	CID       int64  `json:"cid"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	IsPrivate bool   `json:"is_private"`
}

type rawTask struct {
	ID     int64  `json:"id"`
	PID    int64  `json:"pid"`
	WID    int64  `json:"wid"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type rawUser struct {
	UID   int64  `json:"uid"`
	Email string `json:"email"`
}

type rawMe struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type rawReportEntry struct {
	ID          int64  `json:"id"`
	PID         int64  `json:"pid"`
	TID         int64  `json:"tid"`
	UID         int64  `json:"uid"`
	Description string `json:"description"`
	Start       string `json:"start"`
	Dur         int64  `json:"dur"`
	Project     string `json:"project"`
}

type rawReportPage struct {
	TotalCount int              `json:"total_count"`
	PerPage    int              `json:"per_page"`
	Data       []rawReportEntry `json:"data"`
}

type dataEnvelope[T any] struct {
	Data T `json:"data"`
}

func (c *Client) Me(ctx context.Context) (domain.RemoteUser, error) {
	var resp dataEnvelope[rawMe]
	if err := c.do(ctx, "toggl.Me", http.MethodGet, c.apiURL("/api/v8/me"), nil, nil, &resp); err != nil {
		return domain.RemoteUser{}, err
	}
	return domain.RemoteUser{UID: resp.Data.ID, Email: resp.Data.Email}, nil
}

func (c *Client) WorkspaceUsers(ctx context.Context, workspaceID int64) ([]domain.RemoteUser, error) {
	var raw []rawUser
	path := fmt.Sprintf("/api/v8/workspaces/%d/workspace_users", workspaceID)
	if err := c.do(ctx, "toggl.WorkspaceUsers", http.MethodGet, c.apiURL(path), nil, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.RemoteUser, 0, len(raw))
	for _, u := range raw {
		out = append(out, domain.RemoteUser{UID: u.UID, Email: u.Email})
	}
	return out, nil
}

func (c *Client) Clients(ctx context.Context, workspaceID int64) ([]domain.RemoteClient, error) {
	var raw []rawClient
	path := fmt.Sprintf("/api/v8/workspaces/%d/clients", workspaceID)
	if err := c.do(ctx, "toggl.Clients", http.MethodGet, c.apiURL(path), nil, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.RemoteClient, 0, len(raw))
	for _, cl := range raw {
		out = append(out, domain.RemoteClient{ID: cl.ID, WorkspaceID: cl.WID, Name: cl.Name})
	}
	return out, nil
}

func (c *Client) Projects(ctx context.Context, workspaceID int64, active ports.ActiveFilter) ([]domain.RemoteProject, error) {
	var raw []rawProject
	path := fmt.Sprintf("/api/v8/workspaces/%d/projects", workspaceID)
	q := url.Values{"active": {string(active)}}
	if err := c.do(ctx, "toggl.Projects", http.MethodGet, c.apiURL(path), q, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.RemoteProject, 0, len(raw))
	for _, p := range raw {
		out = append(out, mapProject(p))
	}
	return out, nil
}

func (c *Client) ProjectTasks(ctx context.Context, projectID int64) ([]domain.RemoteTask, error) {
	var raw []rawTask
	path := fmt.Sprintf("/api/v8/projects/%d/tasks", projectID)
	if err := c.do(ctx, "toggl.ProjectTasks", http.MethodGet, c.apiURL(path), nil, nil, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.RemoteTask, 0, len(raw))
	for _, t := range raw {
		out = append(out, mapTask(t))
	}
	return out, nil
}

func (c *Client) CreateClient(ctx context.Context, workspaceID int64, name string) (domain.RemoteClient, error) {
	body := map[string]any{"client": map[string]any{"name": name, "wid": workspaceID}}
	var resp dataEnvelope[rawClient]
	if err := c.do(ctx, "toggl.CreateClient", http.MethodPost, c.apiURL("/api/v8/clients"), nil, body, &resp); err != nil {
		return domain.RemoteClient{}, err
	}
	return domain.RemoteClient{ID: resp.Data.ID, WorkspaceID: resp.Data.WID, Name: resp.Data.Name}, nil
}

func (c *Client) UpdateClient(ctx context.Context, clientID int64, name string) (domain.RemoteClient, error) {
	body := map[string]any{"client": map[string]any{"name": name}}
	path := fmt.Sprintf("/api/v8/clients/%d", clientID)
	var resp dataEnvelope[rawClient]
	if err := c.do(ctx, "toggl.UpdateClient", http.MethodPut, c.apiURL(path), nil, body, &resp); err != nil {
		return domain.RemoteClient{}, err
	}
	return domain.RemoteClient{ID: resp.Data.ID, WorkspaceID: resp.Data.WID, Name: resp.Data.Name}, nil
}

func (c *Client) CreateProject(ctx context.Context, workspaceID int64, name string, clientID int64) (domain.RemoteProject, error) {
	project := map[string]any{
		"name":       name,
		"wid":        workspaceID,
		"is_private": false,
	}
	if clientID != 0 {
		project["cid"] = clientID
	}
	var resp dataEnvelope[rawProject]
	if err := c.do(ctx, "toggl.CreateProject", http.MethodPost, c.apiURL("/api/v8/projects"), nil, map[string]any{"project": project}, &resp); err != nil {
		return domain.RemoteProject{}, err
	}
	return mapProject(resp.Data), nil
}

func (c *Client) UpdateProject(ctx context.Context, projectID int64, update ports.ProjectUpdate) (domain.RemoteProject, error) {
	project := map[string]any{}
	if update.Name != nil {
		project["name"] = *update.Name
	}
	if update.ClientID != nil {
		project["cid"] = *update.ClientID
	}
	if update.Active != nil {
		project["active"] = *update.Active
	}
	path := fmt.Sprintf("/api/v8/projects/%d", projectID)
	var resp dataEnvelope[rawProject]
	if err := c.do(ctx, "toggl.UpdateProject", http.MethodPut, c.apiURL(path), nil, map[string]any{"project": project}, &resp); err != nil {
		return domain.RemoteProject{}, err
	}
	return mapProject(resp.Data), nil
}

func (c *Client) CreateTask(ctx context.Context, workspaceID, projectID int64, name string) (domain.RemoteTask, error) {
	body := map[string]any{"task": map[string]any{
		"name": name,
		"pid":  projectID,
		"wid":  workspaceID,
	}}
	var resp dataEnvelope[rawTask]
	if err := c.do(ctx, "toggl.CreateTask", http.MethodPost, c.apiURL("/api/v8/tasks"), nil, body, &resp); err != nil {
		return domain.RemoteTask{}, err
	}
	return mapTask(resp.Data), nil
}

func (c *Client) UpdateTask(ctx context.Context, taskID int64, update ports.TaskUpdate) (domain.RemoteTask, error) {
	task := map[string]any{}
	if update.Name != nil {
		task["name"] = *update.Name
	}
	if update.Active != nil {
		task["active"] = *update.Active
	}
	path := fmt.Sprintf("/api/v8/tasks/%d", taskID)
	var resp dataEnvelope[rawTask]
	if err := c.do(ctx, "toggl.UpdateTask", http.MethodPut, c.apiURL(path), nil, map[string]any{"task": task}, &resp); err != nil {
		return domain.RemoteTask{}, err
	}
	return mapTask(resp.Data), nil
}

func (c *Client) DetailedReportPage(ctx context.Context, q ports.ReportQuery) ([]domain.ReportEntry, error) {
	query := url.Values{
		"workspace_id": {strconv.FormatInt(q.WorkspaceID, 10)},
		"user_ids":     {strconv.FormatInt(q.UserID, 10)},
		"since":        {q.Since},
		"until":        {q.Until},
		"page":         {strconv.Itoa(q.Page)},
	}
	var resp rawReportPage
	if err := c.do(ctx, "toggl.DetailedReport", http.MethodGet, c.reportURL("/reports/api/v2/details"), query, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.ReportEntry, 0, len(resp.Data))
	for _, e := range resp.Data {
		out = append(out, domain.ReportEntry{
			ID:          e.ID,
			ProjectID:   e.PID,
			TaskID:      e.TID,
			UserID:      e.UID,
			Description: e.Description,
			Start:       e.Start,
			DurationMS:  e.Dur,
			ProjectName: e.Project,
		})
	}
	return out, nil
}

func mapProject(p rawProject) domain.RemoteProject {
	return domain.RemoteProject{
		ID:          p.ID,
		WorkspaceID: p.WID,
		ClientID:    p.CID,
		Name:        p.Name,
		Active:      p.Active,
	}
}

func mapTask(t rawTask) domain.RemoteTask {
	return domain.RemoteTask{
		ID:          t.ID,
		ProjectID:   t.PID,
		WorkspaceID: t.WID,
		Name:        t.Name,
		Active:      t.Active,
	}
}
