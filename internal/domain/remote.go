package domain

import "math"

// RemoteClient is a Toggl workspace client.
type RemoteClient struct {
	ID          int64
	WorkspaceID int64
	Name        string
}

// RemoteProject is a Toggl project.
type RemoteProject struct {
	ID          int64
	WorkspaceID int64
	ClientID    int64 // 0 when the project has no client
	Name        string
	Active      bool
}

// RemoteTask is a Toggl task. Under the free tier this is synthesized
// from a name-encoded project and ProjectID is 0.
type RemoteTask struct {
	ID          int64
	ProjectID   int64
	WorkspaceID int64
	Name        string
	Active      bool
}

// RemoteUser is a Toggl workspace member.
type RemoteUser struct {
	UID   int64
	Email string
}

// ReportEntry is one row of the Toggl detailed report.
type ReportEntry struct {
	ID          int64
	ProjectID   int64 // pid, 0 when absent
	TaskID      int64 // tid, 0 when absent
	UserID      int64
	Description string
	Start       string // ISO-8601 timestamp
	DurationMS  int64
	ProjectName string
}

// Hours converts the entry duration from milliseconds to hours, rounded
// to 2 decimal places.
func (e ReportEntry) Hours() float64 {
	return math.Round(float64(e.DurationMS)/1000.0/3600.0*100) / 100
}

// Date returns the calendar-date portion of the start timestamp.
func (e ReportEntry) Date() string {
	if len(e.Start) < 10 {
		return e.Start
	}
	return e.Start[:10]
}
