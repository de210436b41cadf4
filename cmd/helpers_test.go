package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/chris/railtl/internal/config"
	"github.com/chris/railtl/internal/db"
	"github.com/chris/railtl/pkg/models"
)

var testNow = time.Date(2024, 3, 10, 14, 37, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
}

func strPtr(s string) *string {
	return &s
}

func testProject() *models.Project {
	return &models.Project{
		ID:        "proj-1",
		Name:      "shop",
		CreatedAt: at(1, 0, 0),
		Environments: []models.Environment{
			{ID: "prod", Name: "production"},
			{ID: "stage", Name: "staging"},
		},
		Services: []models.Service{
			{ID: "web", Name: "web"},
			{ID: "worker", Name: "worker"},
		},
		Deployments: []models.Deployment{
			{ID: "d2", ServiceID: "web", EnvironmentID: "prod", Status: models.StatusSuccess,
				URL: strPtr("web.up.railway.app"), CreatedAt: at(10, 10, 0), UpdatedAt: at(10, 10, 2),
				Instances: []models.Instance{{Status: models.InstanceRunning}}},
			{ID: "w1", ServiceID: "worker", EnvironmentID: "prod", Status: models.StatusCrashed,
				Stopped: true, CreatedAt: at(10, 12, 0), UpdatedAt: at(10, 12, 5)},
			{ID: "d1", ServiceID: "web", EnvironmentID: "prod", Status: models.StatusRemoved,
				Stopped: true, CreatedAt: at(10, 8, 0), UpdatedAt: at(10, 10, 0)},
			{ID: "s1", ServiceID: "web", EnvironmentID: "stage", Status: models.StatusSuccess,
				CreatedAt: at(10, 9, 0), UpdatedAt: at(10, 9, 1),
				Instances: []models.Instance{{Status: models.InstanceRunning}}},
			{ID: "d0", ServiceID: "web", EnvironmentID: "prod", Status: models.StatusRemoved,
				Stopped: true, CreatedAt: at(1, 9, 0), UpdatedAt: at(2, 9, 0)},
		},
	}
}

// resetRootFlags clears persistent flags and the clock between tests
func resetRootFlags(t *testing.T) {
	t.Helper()
	dbPath = ""
	configPath = ""
	logLevel = ""
	projectRef = ""
	projectsLocal = false
	summaryDate = "today"
	summaryTZ = ""
	summaryColor = "auto"
	serviceEnv = ""
	tuiEnv, tuiZoom, tuiTZ = "", "", ""
	watchListen, watchSchedule = "", ""
	resetColumnsFlags(columnsCmd)
	resetPlaceFlags(placeCmd)
	nowFunc = func() time.Time { return testNow }
	for _, c := range rootCmd.Commands() {
		c.Flags().Visit(func(f *pflag.Flag) {
			f.Changed = false
		})
	}
	rootCmd.PersistentFlags().Visit(func(f *pflag.Flag) {
		f.Changed = false
	})
	t.Cleanup(func() { nowFunc = time.Now })
}

type testEnv struct {
	dbPath     string
	configPath string
}

// setupCmdTest creates a database holding testProject and a config file
// without a token. When apiURL is set the config points the client at it
// with a test token.
func setupCmdTest(t *testing.T, apiURL string) testEnv {
	t.Helper()
	resetRootFlags(t)
	t.Setenv(config.TokenEnv, "")

	dir := t.TempDir()
	env := testEnv{
		dbPath:     filepath.Join(dir, "railtl.db"),
		configPath: filepath.Join(dir, "config.yaml"),
	}

	database, err := db.NewForTesting(env.dbPath)
	require.NoError(t, err)
	require.NoError(t, database.SaveProject(testProject()))
	require.NoError(t, database.Close())

	cfg := config.DefaultConfig()
	cfg.DBPath = env.dbPath
	cfg.Timezone = "UTC"
	cfg.LogLevel = "error"
	if apiURL != "" {
		cfg.APIURL = apiURL
		cfg.Token = "test-token"
	}
	require.NoError(t, config.Save(env.configPath, cfg))
	return env
}

// run executes the root command with the test database and config
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runStdin(t, "", args...)
}

func (e testEnv) runStdin(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--db", e.dbPath, "--config", e.configPath))
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

type apiRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// fakeAPI answers GraphQL requests by matching the query text
type fakeAPI struct {
	mu        sync.Mutex
	requests  []apiRequest
	responses map[string]string
}

func newFakeAPI(t *testing.T, responses map[string]string) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{responses: responses}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var req apiRequest
		_ = json.Unmarshal(raw, &req)

		api.mu.Lock()
		api.requests = append(api.requests, req)
		api.mu.Unlock()

		for match, body := range api.responses {
			if strings.Contains(req.Query, match) {
				_, _ = io.WriteString(w, body)
				return
			}
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errors":[{"message":"unexpected query"}]}`)
	}))
	t.Cleanup(srv.Close)
	return api, srv
}

// find returns the first request whose query contains match
func (a *fakeAPI) find(match string) (apiRequest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, req := range a.requests {
		if strings.Contains(req.Query, match) {
			return req, true
		}
	}
	return apiRequest{}, false
}

const projectJSON = `{
  "id": "proj-1",
  "name": "shop",
  "isPublic": false,
  "deletedAt": null,
  "createdAt": "2024-03-01T00:00:00Z",
  "environments": {"edges": [{"node": {"id": "prod", "name": "production"}}]},
  "services": {"edges": [{"node": {"id": "web", "name": "web"}}, {"node": {"id": "worker", "name": "worker"}}]},
  "deployments": {"edges": [
    {"node": {"id": "d1", "serviceId": "web", "environmentId": "prod", "status": "REMOVED",
              "url": null, "canRedeploy": true, "deploymentStopped": true,
              "createdAt": "2024-03-10T08:00:00Z", "updatedAt": "2024-03-10T10:00:00Z", "instances": []}},
    {"node": {"id": "d3", "serviceId": "web", "environmentId": "prod", "status": "DEPLOYING",
              "url": null, "canRedeploy": false, "deploymentStopped": false,
              "createdAt": "2024-03-10T14:30:00Z", "updatedAt": "2024-03-10T14:30:00Z", "instances": []}}
  ]}
}`

const projectResponse = `{"data": {"project": ` + projectJSON + `}}`
