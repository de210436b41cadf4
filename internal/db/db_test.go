package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/railtl/pkg/models"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string {
	return &s
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewForTesting(filepath.Join(t.TempDir(), "railtl.db"))
	require.NoError(t, err, "failed to create database")
	t.Cleanup(func() { database.Close() })
	return database
}

func sampleProject() *models.Project {
	return &models.Project{
		ID:        "proj-1",
		Name:      "shop",
		CreatedAt: base.AddDate(0, -1, 0),
		Environments: []models.Environment{
			{ID: "prod", Name: "production"},
			{ID: "stage", Name: "staging"},
		},
		Services: []models.Service{
			{ID: "web", Name: "web"},
			{ID: "worker", Name: "worker"},
		},
		Deployments: []models.Deployment{
			{
				ID: "d1", ServiceID: "web", EnvironmentID: "prod", Status: models.StatusRemoved,
				Stopped: true, CreatedAt: base.Add(10 * time.Minute), UpdatedAt: base.Add(40 * time.Minute),
			},
			{
				ID: "d2", ServiceID: "web", EnvironmentID: "prod", Status: models.StatusSuccess,
				URL: strPtr("web.example.com"), CanRedeploy: true,
				CreatedAt: base.Add(40 * time.Minute), UpdatedAt: base.Add(41 * time.Minute),
				Instances: []models.Instance{{Status: models.InstanceRunning}, {Status: models.InstanceRestarting}},
			},
			{
				ID: "d3", ServiceID: "web", EnvironmentID: "stage", Status: models.StatusFailed,
				Stopped: true, CreatedAt: base.Add(5 * time.Minute), UpdatedAt: base.Add(6 * time.Minute),
			},
			{
				ID: "d4", ServiceID: "worker", EnvironmentID: "prod", Status: models.StatusSleeping,
				CreatedAt: base.Add(-48 * time.Hour), UpdatedAt: base.Add(-47 * time.Hour),
			},
		},
	}
}

func deploymentIDs(ds []models.Deployment) []string {
	var out []string
	for _, d := range ds {
		out = append(out, d.ID)
	}
	return out
}

// TestNew_RequiresInitializedSchema tests that opening an empty database fails
func TestNew_RequiresInitializedSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "railtl.db")

	_, err := New(dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "railtl init-db")

	// the directory is created even when the schema check fails
	_, statErr := os.Stat(filepath.Dir(dbPath))
	assert.NoError(t, statErr)
}

// TestInitSchema_Idempotent tests that the schema is created once
func TestInitSchema_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "railtl.db")

	database, err := NewWithOptions(dbPath, Options{SkipSchemaCheck: true})
	require.NoError(t, err)
	defer database.Close()

	created, err := database.InitSchema()
	require.NoError(t, err)
	assert.True(t, created)

	created, err = database.InitSchema()
	require.NoError(t, err)
	assert.False(t, created)

	reopened, err := New(dbPath)
	require.NoError(t, err, "initialized database should open without skip")
	reopened.Close()
}

// TestResolvePath tests tilde expansion and the XDG default
func TestResolvePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")

	p, err := ResolvePath("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg/railtl/railtl.db", p)

	p, err = ResolvePath("/var/lib/railtl.db")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/railtl.db", p)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	p, err = ResolvePath("~/data/r.db")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data/r.db"), p)
}

// TestSaveProject_RoundTrip tests that a saved project loads back intact
func TestSaveProject_RoundTrip(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.SaveProject(sampleProject()))

	p, err := database.GetProject("proj-1")
	require.NoError(t, err)

	assert.Equal(t, "shop", p.Name)
	assert.True(t, p.CreatedAt.Equal(base.AddDate(0, -1, 0)))
	assert.Nil(t, p.DeletedAt)
	assert.Equal(t, []models.Environment{{ID: "prod", Name: "production"}, {ID: "stage", Name: "staging"}}, p.Environments)
	assert.Equal(t, []models.Service{{ID: "web", Name: "web"}, {ID: "worker", Name: "worker"}}, p.Services)
	assert.Equal(t, []string{"d2", "d1", "d3", "d4"}, deploymentIDs(p.Deployments))

	d2 := p.Deployments[0]
	assert.Equal(t, models.StatusSuccess, d2.Status)
	require.NotNil(t, d2.URL)
	assert.Equal(t, "web.example.com", *d2.URL)
	assert.True(t, d2.CanRedeploy)
	assert.False(t, d2.Stopped)
	assert.Equal(t, 2, d2.RunningInstanceCount())
	assert.True(t, d2.CreatedAt.Equal(base.Add(40*time.Minute)))

	d1 := p.Deployments[1]
	assert.Nil(t, d1.URL)
	assert.True(t, d1.Stopped)
	end, ok := d1.EndedAt()
	assert.True(t, ok)
	assert.True(t, end.Equal(base.Add(40*time.Minute)))
}

// TestSaveProject_ReplacesSnapshot tests that removed records disappear on resave
func TestSaveProject_ReplacesSnapshot(t *testing.T) {
	database := newTestDB(t)
	p := sampleProject()
	require.NoError(t, database.SaveProject(p))

	p.Services = p.Services[:1]
	p.Deployments = p.Deployments[:2]
	p.Deployments[1].Instances = []models.Instance{{Status: models.InstanceRunning}}
	require.NoError(t, database.SaveProject(p))

	services, err := database.ListServices("proj-1")
	require.NoError(t, err)
	assert.Len(t, services, 1)

	count, err := database.CountDeployments()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	latest, err := database.LatestDeployment("web", "prod")
	require.NoError(t, err)
	assert.Equal(t, "d2", latest.ID)
	assert.Equal(t, 1, latest.RunningInstanceCount())
}

// TestSaveProject_RequiresID tests that a project without an id is rejected
func TestSaveProject_RequiresID(t *testing.T) {
	database := newTestDB(t)
	assert.Error(t, database.SaveProject(&models.Project{Name: "anon"}))
	assert.Error(t, database.SaveProject(nil))
}

// TestGetProject_NotFound tests the not-found sentinel
func TestGetProject_NotFound(t *testing.T) {
	database := newTestDB(t)

	_, err := database.GetProject("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = database.LatestDeployment("web", "prod")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = database.LastSynced("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestGetServiceDeployments tests environment filtering and ordering
func TestGetServiceDeployments(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.SaveProject(sampleProject()))

	prod, err := database.GetServiceDeployments("web", "prod")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2", "d1"}, deploymentIDs(prod))

	all, err := database.GetServiceDeployments("web", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"d2", "d1", "d3"}, deploymentIDs(all))
}

// TestGetDeploymentsInRange tests the visible-window filter
func TestGetDeploymentsInRange(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.SaveProject(sampleProject()))

	// d1 ran 00:10-00:40, d2 started 00:40 and is still running
	got, err := database.GetDeploymentsInRange("web", "prod", base.Add(45*time.Minute), base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"d2"}, deploymentIDs(got))

	got, err = database.GetDeploymentsInRange("web", "prod", base, base.Add(20*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, deploymentIDs(got))

	// running deployments started long ago still overlap
	got, err = database.GetDeploymentsInRange("worker", "prod", base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"d4"}, deploymentIDs(got))

	got, err = database.GetDeploymentsInRange("web", "prod", base.Add(-2*time.Hour), base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestListProjects tests listing stored projects
func TestListProjects(t *testing.T) {
	database := newTestDB(t)
	database.now = func() time.Time { return base }

	require.NoError(t, database.SaveProject(sampleProject()))
	require.NoError(t, database.SaveProject(&models.Project{ID: "proj-0", Name: "admin", CreatedAt: base}))

	projects, err := database.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "admin", projects[0].Name)
	assert.Equal(t, "shop", projects[1].Name)

	synced, err := database.LastSynced("proj-1")
	require.NoError(t, err)
	assert.True(t, synced.Equal(base))
}
