package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chris/railtl/internal/db/migrations"
	"github.com/chris/railtl/pkg/models"
)

const defaultDBPath = "~/.local/share/railtl/railtl.db"

// ErrNotFound is returned when a lookup matches no rows
var ErrNotFound = errors.New("not found")

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Options configures database connection behavior
type Options struct {
	// SkipSchemaCheck opens the database without verifying schema exists.
	// Use this for init-db command which creates the schema.
	SkipSchemaCheck bool
}

// New opens an initialized database
func New(dbPath string) (*DB, error) {
	return NewWithOptions(dbPath, Options{})
}

// ResolvePath expands ~ and applies the XDG default for an empty path
func ResolvePath(dbPath string) (string, error) {
	if dbPath == "" || dbPath == defaultDBPath {
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get user home directory: %w", err)
			}
			dataDir = filepath.Join(home, ".local/share")
		}
		return filepath.Join(dataDir, "railtl/railtl.db"), nil
	}
	if dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(home, dbPath[1:]), nil
	}
	return dbPath, nil
}

// NewWithOptions creates a new database connection with configurable options
func NewWithOptions(dbPath string, opts Options) (*DB, error) {
	dbPath, err := ResolvePath(dbPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set busy timeout first, before any other operations that might need write locks
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if !opts.SkipSchemaCheck {
		var version int
		if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to check schema version: %w", err)
		}
		if version == 0 {
			conn.Close()
			return nil, fmt.Errorf("database not initialized, run: railtl init-db")
		}
	}

	// WAL lets the sync job write while the TUI reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &DB{conn: conn, path: dbPath, now: time.Now}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// NewForTesting creates a new database with schema initialized.
// This is a convenience function for tests.
func NewForTesting(dbPath string) (*DB, error) {
	db, err := NewWithOptions(dbPath, Options{SkipSchemaCheck: true})
	if err != nil {
		return nil, err
	}

	if _, err := db.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitSchema applies pending migrations.
// Returns true if the schema was created, false if it already existed.
func (db *DB) InitSchema() (bool, error) {
	var version int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return false, fmt.Errorf("failed to check schema version: %w", err)
	}

	if err := migrations.Migrate(db.conn); err != nil {
		return false, err
	}

	return version == 0, nil
}

// SchemaVersion returns the applied migration version
func (db *DB) SchemaVersion() (int, error) {
	var version int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to check schema version: %w", err)
	}
	return version, nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveProject replaces the stored snapshot of a project with p.
// Environments, services, deployments and instances that are no longer
// present are removed.
func (db *DB) SaveProject(p *models.Project) error {
	if p == nil || p.ID == "" {
		return errors.New("project has no id")
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var deletedAt *int64
	if p.DeletedAt != nil {
		ms := toMillis(*p.DeletedAt)
		deletedAt = &ms
	}

	_, err = tx.Exec(`
		INSERT INTO projects (id, name, is_public, created_at, deleted_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_public = excluded.is_public,
			created_at = excluded.created_at,
			deleted_at = excluded.deleted_at,
			synced_at = excluded.synced_at`,
		p.ID, p.Name, boolToInt(p.IsPublic), toMillis(p.CreatedAt), deletedAt, toMillis(db.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}

	cleanup := []string{
		`DELETE FROM deployment_instances WHERE deployment_id IN (SELECT id FROM deployments WHERE project_id = ?)`,
		`DELETE FROM deployments WHERE project_id = ?`,
		`DELETE FROM services WHERE project_id = ?`,
		`DELETE FROM environments WHERE project_id = ?`,
	}
	for _, stmt := range cleanup {
		if _, err := tx.Exec(stmt, p.ID); err != nil {
			return fmt.Errorf("failed to clear project snapshot: %w", err)
		}
	}

	for _, env := range p.Environments {
		if _, err := tx.Exec(
			"INSERT INTO environments (id, project_id, name) VALUES (?, ?, ?)",
			env.ID, p.ID, env.Name,
		); err != nil {
			return fmt.Errorf("failed to insert environment %s: %w", env.ID, err)
		}
	}

	for _, svc := range p.Services {
		if _, err := tx.Exec(
			"INSERT INTO services (id, project_id, name) VALUES (?, ?, ?)",
			svc.ID, p.ID, svc.Name,
		); err != nil {
			return fmt.Errorf("failed to insert service %s: %w", svc.ID, err)
		}
	}

	for _, d := range p.Deployments {
		_, err := tx.Exec(`
			INSERT INTO deployments (id, project_id, service_id, environment_id, status, url, can_redeploy, stopped, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, p.ID, d.ServiceID, d.EnvironmentID, d.Status, d.URL,
			boolToInt(d.CanRedeploy), boolToInt(d.Stopped),
			toMillis(d.CreatedAt), toMillis(d.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert deployment %s: %w", d.ID, err)
		}

		for _, inst := range d.Instances {
			if _, err := tx.Exec(
				"INSERT INTO deployment_instances (deployment_id, status) VALUES (?, ?)",
				d.ID, inst.Status,
			); err != nil {
				return fmt.Errorf("failed to insert instance for deployment %s: %w", d.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project snapshot: %w", err)
	}
	return nil
}

// ListProjects returns all stored projects without their children, by name
func (db *DB) ListProjects() ([]models.Project, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, is_public, created_at, deleted_at
		FROM projects ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

func scanProject(scanner interface{ Scan(...any) error }) (*models.Project, error) {
	p := &models.Project{}
	var isPublic int
	var createdAt int64
	var deletedAt *int64
	if err := scanner.Scan(&p.ID, &p.Name, &isPublic, &createdAt, &deletedAt); err != nil {
		return nil, err
	}
	p.IsPublic = isPublic != 0
	p.CreatedAt = fromMillis(createdAt)
	if deletedAt != nil {
		t := fromMillis(*deletedAt)
		p.DeletedAt = &t
	}
	return p, nil
}

// GetProject loads a project with its environments, services and deployments
func (db *DB) GetProject(id string) (*models.Project, error) {
	p, err := scanProject(db.conn.QueryRow(`
		SELECT id, name, is_public, created_at, deleted_at
		FROM projects WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if p.Environments, err = db.ListEnvironments(id); err != nil {
		return nil, err
	}
	if p.Services, err = db.ListServices(id); err != nil {
		return nil, err
	}
	p.Deployments, err = db.queryDeployments(
		"WHERE project_id = ? ORDER BY created_at DESC", id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LastSynced returns when a project snapshot was last saved
func (db *DB) LastSynced(projectID string) (time.Time, error) {
	var ms int64
	err := db.conn.QueryRow("SELECT synced_at FROM projects WHERE id = ?", projectID).Scan(&ms)
	if err == sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get sync time: %w", err)
	}
	return fromMillis(ms), nil
}

// ListEnvironments returns a project's environments in insertion order
func (db *DB) ListEnvironments(projectID string) ([]models.Environment, error) {
	rows, err := db.conn.Query(
		"SELECT id, name FROM environments WHERE project_id = ? ORDER BY rowid ASC", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list environments: %w", err)
	}
	defer rows.Close()

	var envs []models.Environment
	for rows.Next() {
		var env models.Environment
		if err := rows.Scan(&env.ID, &env.Name); err != nil {
			return nil, fmt.Errorf("failed to scan environment: %w", err)
		}
		envs = append(envs, env)
	}
	return envs, rows.Err()
}

// ListServices returns a project's services in insertion order
func (db *DB) ListServices(projectID string) ([]models.Service, error) {
	rows, err := db.conn.Query(
		"SELECT id, name FROM services WHERE project_id = ? ORDER BY rowid ASC", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.Name); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

const deploymentSelectColumns = `
	SELECT id, service_id, environment_id, status, url, can_redeploy, stopped, created_at, updated_at
	FROM deployments
`

// envFilter matches every environment when the bound value is empty
const envFilter = "(? = '' OR environment_id = ?)"

// GetServiceDeployments returns a service's deployments in an environment,
// newest first. An empty environmentID matches all environments.
func (db *DB) GetServiceDeployments(serviceID, environmentID string) ([]models.Deployment, error) {
	return db.queryDeployments(
		"WHERE service_id = ? AND "+envFilter+" ORDER BY created_at DESC",
		serviceID, environmentID, environmentID,
	)
}

// GetDeploymentsInRange returns a service's deployments that overlap
// [start, end], newest first. Deployments that have not stopped are
// treated as still running.
func (db *DB) GetDeploymentsInRange(serviceID, environmentID string, start, end time.Time) ([]models.Deployment, error) {
	return db.queryDeployments(`
		WHERE service_id = ? AND `+envFilter+`
		AND created_at <= ?
		AND (stopped = 0 OR updated_at >= ?)
		ORDER BY created_at DESC`,
		serviceID, environmentID, environmentID, toMillis(end), toMillis(start),
	)
}

// LatestDeployment returns the newest deployment of a service in an environment
func (db *DB) LatestDeployment(serviceID, environmentID string) (*models.Deployment, error) {
	deployments, err := db.queryDeployments(
		"WHERE service_id = ? AND "+envFilter+" ORDER BY created_at DESC LIMIT 1",
		serviceID, environmentID, environmentID,
	)
	if err != nil {
		return nil, err
	}
	if len(deployments) == 0 {
		return nil, fmt.Errorf("no deployment for service %s: %w", serviceID, ErrNotFound)
	}
	return &deployments[0], nil
}

// CountDeployments returns the total number of stored deployments
func (db *DB) CountDeployments() (int, error) {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM deployments").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count deployments: %w", err)
	}
	return count, nil
}

func (db *DB) queryDeployments(where string, args ...any) ([]models.Deployment, error) {
	rows, err := db.conn.Query(deploymentSelectColumns+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployments: %w", err)
	}
	defer rows.Close()

	var deployments []models.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		deployments = append(deployments, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deployments: %w", err)
	}
	rows.Close()

	if err := db.attachInstances(deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

func scanDeployment(scanner interface{ Scan(...any) error }) (*models.Deployment, error) {
	d := &models.Deployment{}
	var canRedeploy, stopped int
	var createdAt, updatedAt int64
	err := scanner.Scan(
		&d.ID,
		&d.ServiceID,
		&d.EnvironmentID,
		&d.Status,
		&d.URL,
		&canRedeploy,
		&stopped,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.CanRedeploy = canRedeploy != 0
	d.Stopped = stopped != 0
	d.CreatedAt = fromMillis(createdAt)
	d.UpdatedAt = fromMillis(updatedAt)
	return d, nil
}

// attachInstances loads instance rows for all deployments in one query
func (db *DB) attachInstances(deployments []models.Deployment) error {
	if len(deployments) == 0 {
		return nil
	}

	index := make(map[string]int, len(deployments))
	placeholders := make([]string, len(deployments))
	args := make([]any, len(deployments))
	for i, d := range deployments {
		index[d.ID] = i
		placeholders[i] = "?"
		args[i] = d.ID
	}

	rows, err := db.conn.Query(
		"SELECT deployment_id, status FROM deployment_instances WHERE deployment_id IN ("+
			strings.Join(placeholders, ",")+") ORDER BY id ASC",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, status string
		if err := rows.Scan(&id, &status); err != nil {
			return fmt.Errorf("failed to scan instance: %w", err)
		}
		i := index[id]
		deployments[i].Instances = append(deployments[i].Instances, models.Instance{Status: status})
	}
	return rows.Err()
}
