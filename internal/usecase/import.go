package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"toggl-connector/internal/domain"
	"toggl-connector/internal/errs"
	"toggl-connector/internal/ports"
)

// DefaultMaxReportPages bounds the detailed-report pagination loop. The
// report is paged until an empty page; a misbehaving API that never
// returns one would otherwise loop forever.
const DefaultMaxReportPages = 1000

// Importer pulls time entries from the Toggl detailed report into local
// timesheet lines, upserting by external entry id.
type Importer struct {
	Log        *slog.Logger
	API        ports.TogglAPI
	Strategy   ports.TierStrategy
	Projects   ports.ProjectStore
	Tasks      ports.TaskStore
	Timesheets ports.TimesheetStore
	Employees  ports.EmployeeStore

	// MaxReportPages overrides DefaultMaxReportPages when positive.
	MaxReportPages int
}

// ImportResult reports what a pull affected.
type ImportResult struct {
	// LineIDs are the timesheet lines created or updated, in report order.
	LineIDs    []uint
	EmployeeID uint
}

// Run imports the calling user's time entries for [dateFrom, dateTo]
// (YYYY-MM-DD, inclusive). When updateExisting is false, lines already
// imported are left untouched.
func (i *Importer) Run(ctx context.Context, conn domain.Connector, userID uint, dateFrom, dateTo string, updateExisting bool) (ImportResult, error) {
	var res ImportResult

	employee, err := i.resolveEmployee(ctx, userID)
	if err != nil {
		return res, err
	}
	res.EmployeeID = employee.ID

	remoteUser, err := i.resolveRemoteUser(ctx, conn, employee)
	if err != nil {
		return res, err
	}

	entries, err := i.fetchReport(ctx, conn, remoteUser.UID, dateFrom, dateTo)
	if err != nil {
		return res, err
	}
	i.Log.Info("fetched report entries", slog.Int("count", len(entries)))

	if conn.DefaultProjectID == 0 {
		return res, errs.Configf("importer.Run", "no default project configured")
	}
	defaultProject, err := i.Projects.Get(ctx, conn.DefaultProjectID)
	if err != nil {
		return res, errs.Configf("importer.Run", "default project %d not found: %v", conn.DefaultProjectID, err)
	}

	for _, entry := range entries {
		line, err := i.mapEntry(ctx, entry, employee, defaultProject)
		if err != nil {
			return res, err
		}

		existing, err := i.Timesheets.ByTogglEntryID(ctx, entry.ID)
		if err != nil {
			return res, err
		}
		switch {
		case existing == nil:
			i.Log.Debug("create time entry", slog.String("description", line.Description))
			if err := i.Timesheets.Create(ctx, &line); err != nil {
				return res, err
			}
			res.LineIDs = append(res.LineIDs, line.ID)
		case updateExisting:
			// A failed update must not abort the rest of the batch.
			i.Log.Debug("update time entry", slog.String("description", line.Description))
			line.ID = existing.ID
			line.CreatedAt = existing.CreatedAt
			if err := i.Timesheets.Update(ctx, &line); err != nil {
				i.Log.Warn("update time entry failed",
					slog.Int64("entry", entry.ID),
					slog.String("error", err.Error()))
				continue
			}
			res.LineIDs = append(res.LineIDs, existing.ID)
		}
	}
	return res, nil
}

func (i *Importer) resolveEmployee(ctx context.Context, userID uint) (domain.Employee, error) {
	employees, err := i.Employees.ByUserID(ctx, userID)
	if err != nil {
		return domain.Employee{}, err
	}
	switch len(employees) {
	case 0:
		return domain.Employee{}, errs.E(errs.KindNoEmployeeLinked, "importer.resolveEmployee",
			fmt.Errorf("user %d has no linked employee", userID))
	case 1:
		return employees[0], nil
	default:
		return domain.Employee{}, errs.E(errs.KindAmbiguousEmployeeLink, "importer.resolveEmployee",
			fmt.Errorf("user %d links to %d employees", userID, len(employees)))
	}
}

func (i *Importer) resolveRemoteUser(ctx context.Context, conn domain.Connector, employee domain.Employee) (domain.RemoteUser, error) {
	if employee.TogglUsername == "" {
		return domain.RemoteUser{}, errs.E(errs.KindUnknownRemoteUser, "importer.resolveRemoteUser",
			fmt.Errorf("employee %d has no toggl username", employee.ID))
	}
	users, err := i.API.WorkspaceUsers(ctx, conn.WorkspaceID)
	if err != nil {
		return domain.RemoteUser{}, err
	}
	for _, u := range users {
		if u.Email == employee.TogglUsername {
			return u, nil
		}
	}
	return domain.RemoteUser{}, errs.E(errs.KindUnknownRemoteUser, "importer.resolveRemoteUser",
		fmt.Errorf("no workspace user with email %q", employee.TogglUsername))
}

// fetchReport pages through the detailed report until an empty page.
func (i *Importer) fetchReport(ctx context.Context, conn domain.Connector, remoteUID int64, dateFrom, dateTo string) ([]domain.ReportEntry, error) {
	maxPages := i.MaxReportPages
	if maxPages <= 0 {
		maxPages = DefaultMaxReportPages
	}

	var entries []domain.ReportEntry
	for page := 1; ; page++ {
		if page > maxPages {
			return nil, errs.E(errs.KindPaginationExhausted, "importer.fetchReport",
				fmt.Errorf("report did not terminate within %d pages", maxPages))
		}
		pageEntries, err := i.API.DetailedReportPage(ctx, ports.ReportQuery{
			WorkspaceID: conn.WorkspaceID,
			UserID:      remoteUID,
			Since:       dateFrom,
			Until:       dateTo,
			Page:        page,
		})
		if err != nil {
			return nil, err
		}
		if len(pageEntries) == 0 {
			break
		}
		entries = append(entries, pageEntries...)
	}
	return entries, nil
}

// mapEntry builds the local line for one report entry. Linkage resolves
// task first (inheriting its project and account), then project, then
// the connector's default project.
func (i *Importer) mapEntry(ctx context.Context, entry domain.ReportEntry, employee domain.Employee, defaultProject domain.Project) (domain.TimesheetLine, error) {
	description := entry.Description
	if description == "" {
		description = "/"
	}

	line := domain.TimesheetLine{
		Description:       description,
		Date:              entry.Date(),
		Hours:             entry.Hours(),
		ProjectID:         defaultProject.ID,
		AnalyticAccountID: defaultProject.AnalyticAccountID,
		EmployeeID:        employee.ID,
		TogglEntryID:      entry.ID,
	}

	taskID, projectID := i.Strategy.ClassifyEntry(entry)
	if taskID != 0 {
		task, err := i.Tasks.ByTogglID(ctx, taskID)
		if err != nil {
			return line, err
		}
		if task != nil {
			id := task.ID
			line.TaskID = &id
			project, err := i.Projects.Get(ctx, task.ProjectID)
			if err == nil {
				line.ProjectID = project.ID
				line.AnalyticAccountID = project.AnalyticAccountID
			}
		}
	} else if projectID != 0 {
		project, err := i.Projects.ByTogglID(ctx, projectID)
		if err != nil {
			return line, err
		}
		if project != nil {
			line.ProjectID = project.ID
			line.AnalyticAccountID = project.AnalyticAccountID
		}
	}
	return line, nil
}
