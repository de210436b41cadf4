package railway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chris/railtl/pkg/models"
)

const meQuery = `
query Me {
	me {
		id
		name
		avatar
		workspaces {
			team {
				projects {
					edges { node { id name isPublic deletedAt createdAt } }
				}
			}
		}
	}
}`

const projectQuery = `
query Project($id: String!) {
	project(id: $id) {
		id
		name
		isPublic
		deletedAt
		createdAt
		environments { edges { node { id name } } }
		services { edges { node { id name } } }
		deployments {
			edges {
				node {
					id
					serviceId
					environmentId
					status
					url
					canRedeploy
					deploymentStopped
					createdAt
					updatedAt
					instances { status }
				}
			}
		}
	}
}`

const deployMutation = `
mutation Deploy($serviceId: String!, $environmentId: String!) {
	serviceInstanceDeploy(serviceId: $serviceId, environmentId: $environmentId)
}`

const removeMutation = `
mutation Remove($id: String!) {
	deploymentRemove(id: $id)
}`

type edges[T any] struct {
	Edges []struct {
		Node T `json:"node"`
	} `json:"edges"`
}

func (e edges[T]) nodes() []T {
	out := make([]T, 0, len(e.Edges))
	for _, edge := range e.Edges {
		out = append(out, edge.Node)
	}
	return out
}

type projectNode struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	IsPublic     bool                      `json:"isPublic"`
	DeletedAt    *time.Time                `json:"deletedAt"`
	CreatedAt    time.Time                 `json:"createdAt"`
	Environments edges[models.Environment] `json:"environments"`
	Services     edges[models.Service]     `json:"services"`
	Deployments  edges[models.Deployment]  `json:"deployments"`
}

func (p projectNode) toModel() *models.Project {
	project := &models.Project{
		ID:           p.ID,
		Name:         p.Name,
		IsPublic:     p.IsPublic,
		CreatedAt:    p.CreatedAt,
		DeletedAt:    p.DeletedAt,
		Environments: p.Environments.nodes(),
		Services:     p.Services.nodes(),
		Deployments:  p.Deployments.nodes(),
	}
	models.SortNewestFirst(project.Deployments)
	return project
}

// User is the token owner and the projects they can see
type User struct {
	ID       string
	Name     string
	Avatar   *string
	Projects []models.Project
}

// Me returns the authenticated user and their projects across workspaces
func (c *Client) Me(ctx context.Context) (*User, error) {
	var data struct {
		Me struct {
			ID         string  `json:"id"`
			Name       string  `json:"name"`
			Avatar     *string `json:"avatar"`
			Workspaces []struct {
				Team struct {
					Projects edges[projectNode] `json:"projects"`
				} `json:"team"`
			} `json:"workspaces"`
		} `json:"me"`
	}
	if err := c.do(ctx, meQuery, nil, &data); err != nil {
		return nil, err
	}

	u := &User{ID: data.Me.ID, Name: data.Me.Name, Avatar: data.Me.Avatar}
	for _, ws := range data.Me.Workspaces {
		for _, p := range ws.Team.Projects.nodes() {
			u.Projects = append(u.Projects, *p.toModel())
		}
	}
	return u, nil
}

// Project fetches a project with its environments, services and deployments.
// Deployments are ordered newest first.
func (c *Client) Project(ctx context.Context, id string) (*models.Project, error) {
	var data struct {
		Project *projectNode `json:"project"`
	}
	if err := c.do(ctx, projectQuery, map[string]any{"id": id}, &data); err != nil {
		return nil, err
	}
	if data.Project == nil {
		return nil, fmt.Errorf("project %s not returned", id)
	}
	return data.Project.toModel(), nil
}

// DeployService starts a new deployment of a service in an environment
func (c *Client) DeployService(ctx context.Context, serviceID, environmentID string) error {
	return c.do(ctx, deployMutation, map[string]any{
		"serviceId":     serviceID,
		"environmentId": environmentID,
	}, nil)
}

// RemoveDeployment stops a deployment
func (c *Client) RemoveDeployment(ctx context.Context, deploymentID string) error {
	return c.do(ctx, removeMutation, map[string]any{"id": deploymentID}, nil)
}

// DecodeProject parses a saved project query response. Both the full
// {"data":{"project":...}} envelope and a bare project node are accepted.
func DecodeProject(raw []byte) (*models.Project, error) {
	var envelope struct {
		Data *struct {
			Project *projectNode `json:"project"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	if envelope.Data != nil {
		if envelope.Data.Project == nil {
			return nil, errors.New("response has no project")
		}
		return envelope.Data.Project.toModel(), nil
	}

	var node projectNode
	if err := json.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	if node.ID == "" {
		return nil, errors.New("project has no id")
	}
	return node.toModel(), nil
}
