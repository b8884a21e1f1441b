// Package app wires adapters to the sync core and exposes the trigger
// surface.
package app

import (
	"context"
	"log/slog"

	"toggl-connector/internal/adapter/store"
	"toggl-connector/internal/adapter/toggl"
	"toggl-connector/internal/config"
	"toggl-connector/internal/domain"
	"toggl-connector/internal/errs"
	"toggl-connector/internal/ports"
	"toggl-connector/internal/usecase"
)

// App wires the store and the orchestrator.
type App struct {
	log   *slog.Logger
	store *store.Store
	orch  *usecase.Orchestrator
}

func New(log *slog.Logger, cfg config.Config) (*App, error) {
	st, err := store.Open(cfg.DB.Driver, cfg.DB.DSN, log)
	if err != nil {
		return nil, err
	}

	orch := &usecase.Orchestrator{
		Log:        log,
		Partners:   st.Partners,
		Projects:   st.Projects,
		Tasks:      st.Tasks,
		Timesheets: st.Timesheets,
		Employees:  st.Employees,
		Connectors: st.Connectors,
		NewAPI: func(apiToken string) ports.TogglAPI {
			return toggl.NewClient(cfg.Toggl.BaseURL, cfg.Toggl.ReportsURL, apiToken, log)
		},
		NewStrategy: toggl.NewStrategy,
	}

	return &App{log: log, store: st, orch: orch}, nil
}

// Store exposes the record store for the configure command.
func (a *App) Store() *store.Store { return a.store }

func (a *App) Close() error { return a.store.Close() }

// Push syncs projects and tasks to Toggl.
func (a *App) Push(ctx context.Context, syncAll bool) error {
	return a.orch.Push(ctx, syncAll)
}

// Archive deactivates completed projects and tasks in Toggl.
func (a *App) Archive(ctx context.Context) error {
	return a.orch.Archive(ctx)
}

// Pull imports time entries for the given local user.
func (a *App) Pull(ctx context.Context, userID uint, dateFrom, dateTo string, updateExisting bool) ([]uint, error) {
	return a.orch.Pull(ctx, userID, dateFrom, dateTo, updateExisting)
}

// Configure creates or updates the connector row.
func (a *App) Configure(ctx context.Context, conn *domain.Connector) error {
	existing, err := a.store.Connectors.Load(ctx)
	switch {
	case err == nil:
		conn.ID = existing.ID
		conn.LastRun = existing.LastRun
		conn.CreatedAt = existing.CreatedAt
	case !errs.IsKind(err, errs.KindConfiguration):
		return err
	}
	return a.store.Connectors.Save(ctx, conn)
}
