package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toggl-connector/internal/adapter/store"
	"toggl-connector/internal/adapter/toggl"
	"toggl-connector/internal/domain"
	"toggl-connector/internal/errs"
	"toggl-connector/internal/ports"
)

func newImporter(s *store.Store, fake *fakeToggl, tier domain.Tier) *Importer {
	return &Importer{
		Log:        discardLogger(),
		API:        fake,
		Strategy:   toggl.NewStrategy(tier, fake),
		Projects:   s.Projects,
		Tasks:      s.Tasks,
		Timesheets: s.Timesheets,
		Employees:  s.Employees,
	}
}

// seedImportWorld creates the default project (id 1), a linked employee
// (user 10, sam@example.com) and the matching remote workspace user.
func seedImportWorld(t *testing.T, s *store.Store, fake *fakeToggl) {
	t.Helper()
	require.NoError(t, s.DB().Create(&domain.Project{
		Name: "Default", Active: true, AnalyticAccountID: 90,
	}).Error)
	require.NoError(t, s.DB().Create(&domain.Employee{
		Name: "Sam", UserID: 10, TogglUsername: "sam@example.com",
	}).Error)
	fake.users = []domain.RemoteUser{{UID: 77, Email: "sam@example.com"}}
}

func importConnector(opts ...func(*domain.Connector)) domain.Connector {
	base := func(c *domain.Connector) { c.DefaultProjectID = 1 }
	return testConnector(append([]func(*domain.Connector){base}, opts...)...)
}

func TestImportCollectsAllReportPages(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	seedImportWorld(t, s, fake)
	fake.pages = [][]domain.ReportEntry{
		{
			{ID: 1, UserID: 77, Description: "standup", Start: "2026-08-03T09:00:00+02:00", DurationMS: 900000},
			{ID: 2, UserID: 77, Description: "review", Start: "2026-08-03T10:00:00+02:00", DurationMS: 1800000},
		},
		{
			{ID: 3, UserID: 77, Description: "sync work", Start: "2026-08-04T09:00:00+02:00", DurationMS: 5430000},
		},
	}

	imp := newImporter(s, fake, domain.TierPremium)
	res, err := imp.Run(context.Background(), importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.NoError(t, err)

	assert.Len(t, res.LineIDs, 3)
	// two full pages plus the terminating empty one
	assert.Equal(t, 3, fake.calls["DetailedReportPage"])

	line, err := s.Timesheets.ByTogglEntryID(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, 1.51, line.Hours)
	assert.Equal(t, "2026-08-04", line.Date)
	assert.Equal(t, "sync work", line.Description)
	assert.Equal(t, uint(1), line.ProjectID)
	assert.Equal(t, uint(90), line.AnalyticAccountID)
	assert.Equal(t, res.EmployeeID, line.EmployeeID)
}

func TestImportEmptyDescriptionBecomesSlash(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	seedImportWorld(t, s, fake)
	fake.pages = [][]domain.ReportEntry{
		{{ID: 1, UserID: 77, Start: "2026-08-03T09:00:00+02:00", DurationMS: 3600000}},
	}

	imp := newImporter(s, fake, domain.TierPremium)
	_, err := imp.Run(context.Background(), importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.NoError(t, err)

	line, err := s.Timesheets.ByTogglEntryID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, "/", line.Description)
}

func TestImportSkipsExistingUnlessUpdateRequested(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	seedImportWorld(t, s, fake)
	fake.pages = [][]domain.ReportEntry{
		{{ID: 1, UserID: 77, Description: "first pass", Start: "2026-08-03T09:00:00+02:00", DurationMS: 3600000}},
	}

	imp := newImporter(s, fake, domain.TierPremium)
	ctx := context.Background()
	res, err := imp.Run(ctx, importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.NoError(t, err)
	require.Len(t, res.LineIDs, 1)

	// same entry, longer duration; without update the line is untouched
	fake.pages[0][0].DurationMS = 7200000
	res, err = imp.Run(ctx, importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.NoError(t, err)
	assert.Empty(t, res.LineIDs)

	line, err := s.Timesheets.ByTogglEntryID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, line.Hours)

	res, err = imp.Run(ctx, importConnector(), 10, "2026-08-01", "2026-08-07", true)
	require.NoError(t, err)
	require.Len(t, res.LineIDs, 1)

	line, err = s.Timesheets.ByTogglEntryID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, line.Hours)

	// still a single line for the entry
	var count int64
	require.NoError(t, s.DB().Model(&domain.TimesheetLine{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// flakyTimesheets fails Update for one entry and delegates everything
// else to the wrapped store.
type flakyTimesheets struct {
	ports.TimesheetStore
	failEntryID int64
}

func (f *flakyTimesheets) Update(ctx context.Context, line *domain.TimesheetLine) error {
	if line.TogglEntryID == f.failEntryID {
		return fmt.Errorf("simulated write failure")
	}
	return f.TimesheetStore.Update(ctx, line)
}

func TestImportUpdateFailureSkipsLineAndContinues(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	seedImportWorld(t, s, fake)
	fake.pages = [][]domain.ReportEntry{
		{
			{ID: 1, UserID: 77, Description: "one", Start: "2026-08-03T09:00:00+02:00", DurationMS: 3600000},
			{ID: 2, UserID: 77, Description: "two", Start: "2026-08-03T11:00:00+02:00", DurationMS: 3600000},
		},
	}

	imp := newImporter(s, fake, domain.TierPremium)
	ctx := context.Background()
	_, err := imp.Run(ctx, importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.NoError(t, err)

	fake.pages[0][0].DurationMS = 7200000
	fake.pages[0][1].DurationMS = 7200000
	imp.Timesheets = &flakyTimesheets{TimesheetStore: s.Timesheets, failEntryID: 1}

	res, err := imp.Run(ctx, importConnector(), 10, "2026-08-01", "2026-08-07", true)
	require.NoError(t, err, "a failed update must not abort the batch")

	// the failed line is omitted from the result, the rest lands
	two, err := s.Timesheets.ByTogglEntryID(ctx, 2)
	require.NoError(t, err)
	require.Len(t, res.LineIDs, 1)
	assert.Equal(t, two.ID, res.LineIDs[0])
	assert.Equal(t, 2.0, two.Hours)

	one, err := s.Timesheets.ByTogglEntryID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, one.Hours)
}

func TestImportTaskLinkWinsOverProject(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	seedImportWorld(t, s, fake)
	ctx := context.Background()

	require.NoError(t, s.DB().Create(&domain.Project{Name: "Website", Active: true, AnalyticAccountID: 31}).Error)
	require.NoError(t, s.DB().Create(&domain.Task{Name: "Fix login", Active: true, ProjectID: 2}).Error)
	projTogglID, taskTogglID := int64(100), int64(200)
	require.NoError(t, s.Projects.SetTogglProjectID(ctx, 2, &projTogglID))
	require.NoError(t, s.Tasks.SetTogglTaskID(ctx, 1, &taskTogglID))

	fake.pages = [][]domain.ReportEntry{
		{
			{ID: 1, UserID: 77, ProjectID: 100, TaskID: 200, Description: "on the task", Start: "2026-08-03T09:00:00+02:00", DurationMS: 3600000},
			{ID: 2, UserID: 77, ProjectID: 100, Description: "on the project", Start: "2026-08-03T11:00:00+02:00", DurationMS: 3600000},
			{ID: 3, UserID: 77, Description: "unlinked", Start: "2026-08-03T13:00:00+02:00", DurationMS: 3600000},
		},
	}

	imp := newImporter(s, fake, domain.TierPremium)
	_, err := imp.Run(ctx, importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.NoError(t, err)

	withTask, err := s.Timesheets.ByTogglEntryID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, withTask.TaskID)
	assert.Equal(t, uint(1), *withTask.TaskID)
	assert.Equal(t, uint(2), withTask.ProjectID)
	assert.Equal(t, uint(31), withTask.AnalyticAccountID)

	withProject, err := s.Timesheets.ByTogglEntryID(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, withProject.TaskID)
	assert.Equal(t, uint(2), withProject.ProjectID)

	unlinked, err := s.Timesheets.ByTogglEntryID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, uint(1), unlinked.ProjectID, "falls back to the default project")
	assert.Equal(t, uint(90), unlinked.AnalyticAccountID)
}

func TestFreeTierImportClassifiesByProjectName(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	seedImportWorld(t, s, fake)
	ctx := context.Background()

	require.NoError(t, s.DB().Create(&domain.Project{Name: "Website", Active: true, AnalyticAccountID: 31}).Error)
	require.NoError(t, s.DB().Create(&domain.Task{Name: "Fix login", Active: true, ProjectID: 2}).Error)
	taskTogglID := int64(101) // the task-encoded project's id
	require.NoError(t, s.Tasks.SetTogglTaskID(ctx, 1, &taskTogglID))

	fake.pages = [][]domain.ReportEntry{
		{{ID: 1, UserID: 77, ProjectID: 101, ProjectName: "T: Fix login [1]",
			Description: "free tier entry", Start: "2026-08-03T09:00:00+02:00", DurationMS: 3600000}},
	}

	imp := newImporter(s, fake, domain.TierFree)
	conn := importConnector(func(c *domain.Connector) { c.Tier = domain.TierFree })
	_, err := imp.Run(ctx, conn, 10, "2026-08-01", "2026-08-07", false)
	require.NoError(t, err)

	line, err := s.Timesheets.ByTogglEntryID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, line.TaskID)
	assert.Equal(t, uint(1), *line.TaskID)
	assert.Equal(t, uint(2), line.ProjectID)
}

func TestImportFailsWithoutLinkedEmployee(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	imp := newImporter(s, fake, domain.TierPremium)

	_, err := imp.Run(context.Background(), importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindNoEmployeeLinked))
}

func TestImportFailsOnAmbiguousEmployeeLink(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	require.NoError(t, s.DB().Create(&domain.Employee{Name: "Sam", UserID: 10}).Error)
	require.NoError(t, s.DB().Create(&domain.Employee{Name: "Sam Too", UserID: 10}).Error)

	imp := newImporter(s, fake, domain.TierPremium)
	_, err := imp.Run(context.Background(), importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindAmbiguousEmployeeLink))
}

func TestImportFailsOnUnknownRemoteUser(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	require.NoError(t, s.DB().Create(&domain.Employee{
		Name: "Sam", UserID: 10, TogglUsername: "sam@example.com",
	}).Error)
	fake.users = []domain.RemoteUser{{UID: 77, Email: "someone-else@example.com"}}

	imp := newImporter(s, fake, domain.TierPremium)
	_, err := imp.Run(context.Background(), importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindUnknownRemoteUser))

	// no username configured at all is the same failure
	require.NoError(t, s.DB().Model(&domain.Employee{}).Where("id = ?", 1).
		Update("toggl_username", "").Error)
	_, err = imp.Run(context.Background(), importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindUnknownRemoteUser))
}

func TestImportFailsWithoutDefaultProject(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	seedImportWorld(t, s, fake)

	imp := newImporter(s, fake, domain.TierPremium)
	_, err := imp.Run(context.Background(), testConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfiguration))
}

func TestImportGivesUpOnRunawayPagination(t *testing.T) {
	s := openTestStore(t)
	fake := newFakeToggl()
	seedImportWorld(t, s, fake)
	fake.pages = [][]domain.ReportEntry{
		{{ID: 1, UserID: 77, Start: "2026-08-03T09:00:00+02:00", DurationMS: 3600000}},
		{{ID: 2, UserID: 77, Start: "2026-08-03T10:00:00+02:00", DurationMS: 3600000}},
		{{ID: 3, UserID: 77, Start: "2026-08-03T11:00:00+02:00", DurationMS: 3600000}},
	}

	imp := newImporter(s, fake, domain.TierPremium)
	imp.MaxReportPages = 2
	_, err := imp.Run(context.Background(), importConnector(), 10, "2026-08-01", "2026-08-07", false)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindPaginationExhausted))
}
