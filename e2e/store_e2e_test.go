//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"toggl-connector/internal/adapter/store"
	"toggl-connector/internal/domain"
)

func TestStoreAgainstMySQL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      "testdb",
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "pass",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = mysqlC.Terminate(context.Background()) })

	host, err := mysqlC.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true", "test", "pass", host, port.Port(), "testdb")

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	s, err := store.Open(store.DriverMySQL, dsn, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	// connector settings round-trip, including the serialized skip-list
	conn := &domain.Connector{
		Name:           "Main",
		APIToken:       "tok",
		WorkspaceID:    99,
		SkipProjectIDs: domain.IDList{4, 9},
		Tier:           domain.TierPremium,
	}
	if err := s.Connectors.Save(ctx, conn); err != nil {
		t.Fatalf("save connector: %v", err)
	}
	loaded, err := s.Connectors.Load(ctx)
	if err != nil {
		t.Fatalf("load connector: %v", err)
	}
	if !loaded.SkipProjectIDs.Contains(9) || loaded.SkipProjectIDs.Contains(5) {
		t.Fatalf("skip-list did not survive the round-trip: %v", loaded.SkipProjectIDs)
	}

	// project external-id linkage
	if err := s.DB().Create(&domain.Project{Name: "Website", Active: true}).Error; err != nil {
		t.Fatalf("create project: %v", err)
	}
	togglID := int64(555)
	if err := s.Projects.SetTogglProjectID(ctx, 1, &togglID); err != nil {
		t.Fatalf("link project: %v", err)
	}
	byID, err := s.Projects.ByTogglID(ctx, 555)
	if err != nil {
		t.Fatalf("by toggl id: %v", err)
	}
	if byID == nil || byID.Name != "Website" {
		t.Fatalf("expected linked project, got %+v", byID)
	}

	// timesheet upsert by external entry id
	line := &domain.TimesheetLine{
		Description:  "e2e entry",
		Date:         "2026-08-03",
		Hours:        1.51,
		ProjectID:    1,
		EmployeeID:   1,
		TogglEntryID: 777,
	}
	if err := s.Timesheets.Create(ctx, line); err != nil {
		t.Fatalf("create line: %v", err)
	}
	found, err := s.Timesheets.ByTogglEntryID(ctx, 777)
	if err != nil {
		t.Fatalf("by entry id: %v", err)
	}
	if found == nil {
		t.Fatal("expected line by entry id")
	}
	found.Hours = 2.0
	if err := s.Timesheets.Update(ctx, found); err != nil {
		t.Fatalf("update line: %v", err)
	}
	again, err := s.Timesheets.ByTogglEntryID(ctx, 777)
	if err != nil {
		t.Fatalf("by entry id 2: %v", err)
	}
	if again.Hours != 2.0 {
		t.Fatalf("expected updated hours, got %v", again.Hours)
	}

	// unique index on the entry id rejects duplicates
	dup := &domain.TimesheetLine{Description: "dup", Date: "2026-08-03", Hours: 1, TogglEntryID: 777}
	if err := s.Timesheets.Create(ctx, dup); err == nil {
		t.Fatal("expected duplicate entry id to be rejected")
	}
}
