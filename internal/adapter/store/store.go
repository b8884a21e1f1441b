// Package store implements the local record store ports on gorm, with a
// pure-Go sqlite driver by default and MySQL as an alternative.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"toggl-connector/internal/domain"
	"toggl-connector/internal/errs"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Store bundles the per-entity stores over one gorm connection.
type Store struct {
	db  *gorm.DB
	log *slog.Logger

	Partners   *Partners
	Projects   *Projects
	Tasks      *Tasks
	Timesheets *Timesheets
	Employees  *Employees
	Connectors *Connectors
}

// Open connects to the local database and runs migrations.
func Open(driver, dsn string, log *slog.Logger) (*Store, error) {
	cfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case DriverSQLite, "":
		if dir := filepath.Dir(dsn); dir != "." && dir != "" && !strings.HasPrefix(dsn, ":") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	case DriverMySQL:
		db, err = gorm.Open(mysql.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if driver != DriverMySQL {
		// SQLite supports multiple readers but a single writer.
		if err := db.Exec("PRAGMA busy_timeout=5000").Error; err != nil {
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	if err := db.AutoMigrate(
		&domain.Partner{},
		&domain.Project{},
		&domain.Task{},
		&domain.TimesheetLine{},
		&domain.Employee{},
		&domain.Connector{},
	); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, log: log}
	s.Partners = &Partners{db: db}
	s.Projects = &Projects{db: db}
	s.Tasks = &Tasks{db: db}
	s.Timesheets = &Timesheets{db: db}
	s.Employees = &Employees{db: db}
	s.Connectors = &Connectors{db: db}
	return s, nil
}

// DB exposes the underlying connection for seeding and tests.
func (s *Store) DB() *gorm.DB { return s.db }

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Partners implements ports.PartnerStore.
type Partners struct{ db *gorm.DB }

func (s *Partners) Get(ctx context.Context, id uint) (domain.Partner, error) {
	var p domain.Partner
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return domain.Partner{}, err
	}
	return p, nil
}

// SetTogglClientID writes only the link column, the equivalent of the
// elevated-privilege field write in the source system.
func (s *Partners) SetTogglClientID(ctx context.Context, id uint, togglID *int64) error {
	return s.db.WithContext(ctx).Model(&domain.Partner{}).Where("id = ?", id).
		Update("toggl_client_id", togglID).Error
}

// Projects implements ports.ProjectStore.
type Projects struct{ db *gorm.DB }

func (s *Projects) Get(ctx context.Context, id uint) (domain.Project, error) {
	var p domain.Project
	if err := s.db.WithContext(ctx).Preload("Partner").First(&p, id).Error; err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (s *Projects) Active(ctx context.Context, since *time.Time, skip domain.IDList) ([]domain.Project, error) {
	q := s.db.WithContext(ctx).Preload("Partner").Where("active = ?", true)
	if len(skip) > 0 {
		q = q.Where("id NOT IN ?", []uint(skip))
	}
	if since != nil {
		q = q.Where("updated_at >= ?", *since)
	}
	var out []domain.Project
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Projects) ByTogglID(ctx context.Context, togglID int64) (*domain.Project, error) {
	var p domain.Project
	err := s.db.WithContext(ctx).Where("toggl_project_id = ?", togglID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Projects) SetTogglProjectID(ctx context.Context, id uint, togglID *int64) error {
	return s.db.WithContext(ctx).Model(&domain.Project{}).Where("id = ?", id).
		Update("toggl_project_id", togglID).Error
}

// Tasks implements ports.TaskStore.
type Tasks struct{ db *gorm.DB }

func (s *Tasks) Unfolded(ctx context.Context, projectID uint, since *time.Time) ([]domain.Task, error) {
	q := s.db.WithContext(ctx).
		Where("project_id = ? AND active = ? AND stage_folded = ?", projectID, true, false)
	if since != nil {
		q = q.Where("updated_at >= ?", *since)
	}
	var out []domain.Task
	if err := q.Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Tasks) ByTogglID(ctx context.Context, togglID int64) (*domain.Task, error) {
	var t domain.Task
	err := s.db.WithContext(ctx).Where("toggl_task_id = ?", togglID).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Tasks) UnfoldedByTogglID(ctx context.Context, togglID int64) (*domain.Task, error) {
	var t domain.Task
	err := s.db.WithContext(ctx).
		Where("toggl_task_id = ? AND active = ? AND stage_folded = ?", togglID, true, false).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Tasks) SetTogglTaskID(ctx context.Context, id uint, togglID *int64) error {
	return s.db.WithContext(ctx).Model(&domain.Task{}).Where("id = ?", id).
		Update("toggl_task_id", togglID).Error
}

// Timesheets implements ports.TimesheetStore.
type Timesheets struct{ db *gorm.DB }

func (s *Timesheets) ByTogglEntryID(ctx context.Context, entryID int64) (*domain.TimesheetLine, error) {
	var l domain.TimesheetLine
	err := s.db.WithContext(ctx).Where("toggl_entry_id = ?", entryID).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Timesheets) Create(ctx context.Context, line *domain.TimesheetLine) error {
	return s.db.WithContext(ctx).Create(line).Error
}

func (s *Timesheets) Update(ctx context.Context, line *domain.TimesheetLine) error {
	return s.db.WithContext(ctx).Save(line).Error
}

// Employees implements ports.EmployeeStore.
type Employees struct{ db *gorm.DB }

func (s *Employees) ByUserID(ctx context.Context, userID uint) ([]domain.Employee, error) {
	var out []domain.Employee
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Employees) SetLastFetch(ctx context.Context, id uint, t time.Time) error {
	return s.db.WithContext(ctx).Model(&domain.Employee{}).Where("id = ?", id).
		Update("last_fetch", t).Error
}

// Connectors implements ports.ConnectorStore. A single connector row per
// database is assumed (one tenant per deployment).
type Connectors struct{ db *gorm.DB }

func (s *Connectors) Load(ctx context.Context) (domain.Connector, error) {
	var c domain.Connector
	err := s.db.WithContext(ctx).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Connector{}, errs.Configf("store.Connectors.Load", "no connector configured; run the configure command first")
	}
	if err != nil {
		return domain.Connector{}, err
	}
	return c, nil
}

func (s *Connectors) Save(ctx context.Context, c *domain.Connector) error {
	return s.db.WithContext(ctx).Save(c).Error
}

func (s *Connectors) SetLastRun(ctx context.Context, id uint, t time.Time) error {
	return s.db.WithContext(ctx).Model(&domain.Connector{}).Where("id = ?", id).
		Update("last_run", t).Error
}
