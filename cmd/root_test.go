package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/railtl/internal/db"
	"github.com/chris/railtl/pkg/models"
)

func TestParseStart(t *testing.T) {
	resetRootFlags(t)
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		in   string
		loc  *time.Location
		want time.Time
	}{
		{"today", time.UTC, at(10, 0, 0)},
		{"", time.UTC, at(10, 0, 0)},
		{"NOW", time.UTC, testNow},
		{"2024-03-01", time.UTC, at(1, 0, 0)},
		{"2024-03-01 09:30", time.UTC, at(1, 9, 30)},
		{"2024-03-01T09:30:00Z", time.UTC, at(1, 9, 30)},
		{"2024-03-01", berlin, time.Date(2024, 3, 1, 0, 0, 0, 0, berlin)},
		{"today", berlin, time.Date(2024, 3, 10, 0, 0, 0, 0, berlin)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseStart(tt.in, tt.loc)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}

	_, err = parseStart("03/01/2024", time.UTC)
	assert.Error(t, err)
}

func TestResolveEnvironment(t *testing.T) {
	envs := testProject().Environments

	env, err := resolveEnvironment(envs, "")
	require.NoError(t, err)
	assert.Equal(t, "prod", env.ID, "first environment by default")

	env, err = resolveEnvironment(envs, "stage")
	require.NoError(t, err)
	assert.Equal(t, "staging", env.Name, "match by id")

	env, err = resolveEnvironment(envs, "Staging")
	require.NoError(t, err)
	assert.Equal(t, "stage", env.ID, "match by name ignoring case")

	_, err = resolveEnvironment(envs, "qa")
	assert.Error(t, err)

	_, err = resolveEnvironment(nil, "")
	assert.Error(t, err)
}

func TestResolveProject(t *testing.T) {
	database, err := db.NewForTesting(t.TempDir() + "/railtl.db")
	require.NoError(t, err)
	defer database.Close()

	_, err = resolveProject(database, "")
	require.Error(t, err, "empty database")

	require.NoError(t, database.SaveProject(testProject()))
	p, err := resolveProject(database, "")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", p.ID, "single project is picked")

	require.NoError(t, database.SaveProject(&models.Project{ID: "proj-2", Name: "blog"}))
	_, err = resolveProject(database, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--project")

	p, err = resolveProject(database, "proj-2")
	require.NoError(t, err)
	assert.Equal(t, "blog", p.Name)

	_, err = resolveProject(database, "proj-9")
	assert.ErrorIs(t, err, db.ErrNotFound)
}
