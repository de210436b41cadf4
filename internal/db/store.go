package db

import (
	"time"

	"github.com/chris/railtl/pkg/models"
)

// Store is the subset of DB used by the sync job and the TUI
type Store interface {
	Close() error
	Path() string
	SaveProject(p *models.Project) error
	GetProject(id string) (*models.Project, error)
	ListProjects() ([]models.Project, error)
	ListEnvironments(projectID string) ([]models.Environment, error)
	ListServices(projectID string) ([]models.Service, error)
	GetServiceDeployments(serviceID, environmentID string) ([]models.Deployment, error)
	GetDeploymentsInRange(serviceID, environmentID string, start, end time.Time) ([]models.Deployment, error)
	LatestDeployment(serviceID, environmentID string) (*models.Deployment, error)
	CountDeployments() (int, error)
	LastSynced(projectID string) (time.Time, error)
}

var _ Store = (*DB)(nil)
