package usecase

import (
	"context"
	"log/slog"
	"time"

	"toggl-connector/internal/domain"
	"toggl-connector/internal/errs"
	"toggl-connector/internal/ports"
)

// Orchestrator exposes the three entry points used by external triggers:
// Push, Archive and Pull. API client and tier strategy are built per
// invocation from the stored connector configuration, so the auth header
// never outlives a single operation.
type Orchestrator struct {
	Log *slog.Logger

	Partners   ports.PartnerStore
	Projects   ports.ProjectStore
	Tasks      ports.TaskStore
	Timesheets ports.TimesheetStore
	Employees  ports.EmployeeStore
	Connectors ports.ConnectorStore

	NewAPI      func(apiToken string) ports.TogglAPI
	NewStrategy func(tier domain.Tier, api ports.TogglAPI) ports.TierStrategy

	MaxReportPages int

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) loadConnector(ctx context.Context) (domain.Connector, error) {
	conn, err := o.Connectors.Load(ctx)
	if err != nil {
		return domain.Connector{}, err
	}
	if conn.APIToken == "" {
		return domain.Connector{}, errs.Configf("orchestrator", "connector has no API token")
	}
	if conn.WorkspaceID == 0 {
		return domain.Connector{}, errs.Configf("orchestrator", "connector has no workspace id")
	}
	return conn, nil
}

// Push syncs projects and tasks to Toggl. With syncAll, or when no prior
// run is recorded, the push is full; otherwise it is incremental from
// the stored last-run timestamp. The timestamp advances only after a
// successful pass, so a failed run is retried over the same window.
func (o *Orchestrator) Push(ctx context.Context, syncAll bool) error {
	conn, err := o.loadConnector(ctx)
	if err != nil {
		return err
	}
	api := o.NewAPI(conn.APIToken)
	reconciler := &Reconciler{
		Log:      o.Log,
		API:      api,
		Strategy: o.NewStrategy(conn.Tier, api),
		Partners: o.Partners,
		Projects: o.Projects,
		Tasks:    o.Tasks,
	}

	var since *time.Time
	if !syncAll && conn.LastRun != nil {
		since = conn.LastRun
		o.Log.Info("incremental push", slog.Time("since", *since))
	} else {
		o.Log.Info("full push")
	}

	started := o.now()
	if err := reconciler.Push(ctx, conn, since); err != nil {
		return err
	}
	return o.Connectors.SetLastRun(ctx, conn.ID, started)
}

// Archive runs the archival sweep for projects and tasks.
func (o *Orchestrator) Archive(ctx context.Context) error {
	conn, err := o.loadConnector(ctx)
	if err != nil {
		return err
	}
	api := o.NewAPI(conn.APIToken)
	archiver := &Archiver{
		Log:      o.Log,
		API:      api,
		Strategy: o.NewStrategy(conn.Tier, api),
		Projects: o.Projects,
		Tasks:    o.Tasks,
	}
	return archiver.Run(ctx, conn)
}

// Pull imports the user's time entries for [dateFrom, dateTo] and
// records dateTo as the employee's fetch checkpoint.
func (o *Orchestrator) Pull(ctx context.Context, userID uint, dateFrom, dateTo string, updateExisting bool) ([]uint, error) {
	conn, err := o.loadConnector(ctx)
	if err != nil {
		return nil, err
	}
	api := o.NewAPI(conn.APIToken)
	importer := &Importer{
		Log:            o.Log,
		API:            api,
		Strategy:       o.NewStrategy(conn.Tier, api),
		Projects:       o.Projects,
		Tasks:          o.Tasks,
		Timesheets:     o.Timesheets,
		Employees:      o.Employees,
		MaxReportPages: o.MaxReportPages,
	}

	res, err := importer.Run(ctx, conn, userID, dateFrom, dateTo, updateExisting)
	if err != nil {
		return nil, err
	}

	checkpoint, perr := time.Parse("2006-01-02", dateTo)
	if perr != nil {
		o.Log.Warn("fetch checkpoint not recorded, unparsable date",
			slog.String("date_to", dateTo))
	} else if err := o.Employees.SetLastFetch(ctx, res.EmployeeID, checkpoint); err != nil {
		return nil, err
	}
	o.Log.Info("pull completed", slog.Int("lines", len(res.LineIDs)))
	return res.LineIDs, nil
}
