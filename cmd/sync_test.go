package cmd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris/railtl/internal/db"
	"github.com/chris/railtl/internal/refresh"
)

// TestSync tests fetching a project into the database
func TestSync(t *testing.T) {
	api, srv := newFakeAPI(t, map[string]string{"project(": projectResponse})
	env := setupCmdTest(t, srv.URL)

	// When: syncing proj-1
	output, err := env.run(t, "sync", "--project", "proj-1")
	require.NoError(t, err)

	// Then: the API was asked for that project
	req, ok := api.find("project(")
	require.True(t, ok)
	assert.Equal(t, "proj-1", req.Variables["id"])
	assert.Equal(t, "Synced shop: 1 environments, 2 services, 2 deployments\n", output)

	// And: the stored snapshot was replaced
	database, err := db.New(env.dbPath)
	require.NoError(t, err)
	defer database.Close()

	envs, err := database.ListEnvironments("proj-1")
	require.NoError(t, err)
	assert.Len(t, envs, 1, "staging no longer exists upstream")

	latest, err := database.LatestDeployment("web", "prod")
	require.NoError(t, err)
	assert.Equal(t, "d3", latest.ID)
}

// TestSync_Errors tests missing project, missing token and API failures
func TestSync_Errors(t *testing.T) {
	t.Run("no project", func(t *testing.T) {
		_, srv := newFakeAPI(t, nil)
		env := setupCmdTest(t, srv.URL)

		_, err := env.run(t, "sync")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no project selected")
	})

	t.Run("no token", func(t *testing.T) {
		env := setupCmdTest(t, "")

		_, err := env.run(t, "sync", "--project", "proj-1")
		assert.Error(t, err)
	})

	t.Run("graphql error", func(t *testing.T) {
		_, srv := newFakeAPI(t, map[string]string{"project(": `{"errors":[{"message":"Project not found"}]}`})
		env := setupCmdTest(t, srv.URL)

		_, err := env.run(t, "sync", "--project", "proj-9")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Project not found")
	})
}

// TestWatch_InvalidSchedule tests the schedule is validated before running
func TestWatch_InvalidSchedule(t *testing.T) {
	_, srv := newFakeAPI(t, map[string]string{"project(": projectResponse})
	env := setupCmdTest(t, srv.URL)

	_, err := env.run(t, "watch", "--project", "proj-1", "--schedule", "every now and then", "--listen", "off")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid refresh schedule")
}

// TestMetricsServer tests the metrics and health endpoints
func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	refresh.NewMetrics(reg)
	srv := httptest.NewServer(newMetricsServer("127.0.0.1:0", reg).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "railtl_")
}
