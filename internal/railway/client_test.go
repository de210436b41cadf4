package railway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectResponse = `{
  "data": {
    "project": {
      "id": "proj-1",
      "name": "shop",
      "isPublic": false,
      "deletedAt": null,
      "createdAt": "2024-01-01T00:00:00Z",
      "environments": {"edges": [{"node": {"id": "prod", "name": "production"}}]},
      "services": {"edges": [{"node": {"id": "web", "name": "web"}}]},
      "deployments": {"edges": [
        {"node": {"id": "d1", "serviceId": "web", "environmentId": "prod", "status": "REMOVED",
                  "url": null, "canRedeploy": true, "deploymentStopped": true,
                  "createdAt": "2024-01-02T10:00:00Z", "updatedAt": "2024-01-02T11:00:00Z",
                  "instances": []}},
        {"node": {"id": "d2", "serviceId": "web", "environmentId": "prod", "status": "SUCCESS",
                  "url": "web.up.railway.app", "canRedeploy": true, "deploymentStopped": false,
                  "createdAt": "2024-01-02T11:00:00Z", "updatedAt": "2024-01-02T11:02:00Z",
                  "instances": [{"status": "RUNNING"}]}}
      ]}
    }
  }
}`

type recorded struct {
	auth string
	body gqlRequest
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *recorded) {
	t.Helper()
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		rec.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &rec.body)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

// TestProject tests decoding a project snapshot
func TestProject(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, projectResponse)
	c := New("secret", WithEndpoint(srv.URL))

	p, err := c.Project(context.Background(), "proj-1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", rec.auth)
	assert.Equal(t, "proj-1", rec.body.Variables["id"])
	assert.Contains(t, rec.body.Query, "project(id: $id)")

	assert.Equal(t, "shop", p.Name)
	assert.Nil(t, p.DeletedAt)
	require.Len(t, p.Environments, 1)
	assert.Equal(t, "production", p.Environments[0].Name)
	require.Len(t, p.Services, 1)

	// newest first
	require.Len(t, p.Deployments, 2)
	assert.Equal(t, "d2", p.Deployments[0].ID)
	assert.Equal(t, 1, p.Deployments[0].RunningInstanceCount())
	require.NotNil(t, p.Deployments[0].URL)
	assert.Nil(t, p.Deployments[1].URL)
	assert.True(t, p.Deployments[1].Stopped)
	assert.Equal(t, time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC), p.Deployments[1].UpdatedAt)
}

// TestMe tests flattening projects across workspaces
func TestMe(t *testing.T) {
	response := `{"data": {"me": {"id": "u1", "name": "Ada", "avatar": null, "workspaces": [
		{"team": {"projects": {"edges": [{"node": {"id": "p1", "name": "one", "isPublic": false, "deletedAt": null, "createdAt": "2024-01-01T00:00:00Z"}}]}}},
		{"team": {"projects": {"edges": [{"node": {"id": "p2", "name": "two", "isPublic": true, "deletedAt": "2024-02-01T00:00:00Z", "createdAt": "2024-01-01T00:00:00Z"}}]}}}
	]}}}`
	srv, _ := newTestServer(t, http.StatusOK, response)

	u, err := New("secret", WithEndpoint(srv.URL)).Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Ada", u.Name)
	assert.Nil(t, u.Avatar)
	require.Len(t, u.Projects, 2)
	assert.Equal(t, "p1", u.Projects[0].ID)
	assert.True(t, u.Projects[1].IsPublic)
	require.NotNil(t, u.Projects[1].DeletedAt)
}

// TestMutations tests the start and stop variables
func TestMutations(t *testing.T) {
	srv, rec := newTestServer(t, http.StatusOK, `{"data": {"serviceInstanceDeploy": true}}`)
	c := New("secret", WithEndpoint(srv.URL))

	require.NoError(t, c.DeployService(context.Background(), "web", "prod"))
	assert.Contains(t, rec.body.Query, "serviceInstanceDeploy")
	assert.Equal(t, "web", rec.body.Variables["serviceId"])
	assert.Equal(t, "prod", rec.body.Variables["environmentId"])

	require.NoError(t, c.RemoveDeployment(context.Background(), "d2"))
	assert.Contains(t, rec.body.Query, "deploymentRemove")
	assert.Equal(t, "d2", rec.body.Variables["id"])
}

// TestGraphQLErrors tests that an errors array becomes an APIError
func TestGraphQLErrors(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"data": null, "errors": [{"message": "Not Authorized"}]}`)

	_, err := New("secret", WithEndpoint(srv.URL)).Project(context.Background(), "proj-1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, []string{"Not Authorized"}, apiErr.Messages)
}

// TestHTTPErrors tests non-2xx responses with and without a JSON body
func TestHTTPErrors(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{"error": "Unauthorized"}`)
	err := New("secret", WithEndpoint(srv.URL)).RemoveDeployment(context.Background(), "d")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, strings.Contains(err.Error(), "401"))

	srv, _ = newTestServer(t, http.StatusBadGateway, "upstream down")
	err = New("secret", WithEndpoint(srv.URL)).RemoveDeployment(context.Background(), "d")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"upstream down"}, apiErr.Messages)
}

// TestMissingToken tests that no request is made without a token
func TestMissingToken(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := New("  ", WithEndpoint(srv.URL)).Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, called)
}

// TestDecodeProject tests decoding saved responses from disk
func TestDecodeProject(t *testing.T) {
	t.Run("response envelope", func(t *testing.T) {
		p, err := DecodeProject([]byte(projectResponse))
		require.NoError(t, err)
		assert.Equal(t, "proj-1", p.ID)
		require.Len(t, p.Deployments, 2)
		assert.Equal(t, "d2", p.Deployments[0].ID, "newest first")
	})

	t.Run("bare project node", func(t *testing.T) {
		var envelope struct {
			Data struct {
				Project json.RawMessage `json:"project"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(projectResponse), &envelope))

		p, err := DecodeProject(envelope.Data.Project)
		require.NoError(t, err)
		assert.Equal(t, "shop", p.Name)
		assert.Len(t, p.Services, 1)
	})

	t.Run("null project", func(t *testing.T) {
		_, err := DecodeProject([]byte(`{"data":{"project":null}}`))
		assert.Error(t, err)
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := DecodeProject([]byte(`{"name":"shop"}`))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := DecodeProject([]byte(`{`))
		assert.Error(t, err)
	})
}
