package models

import (
	"sort"
	"time"
)

// Deployment statuses reported by the platform
const (
	StatusBuilding      = "BUILDING"
	StatusDeploying     = "DEPLOYING"
	StatusInitializing  = "INITIALIZING"
	StatusNeedsApproval = "NEEDS_APPROVAL"
	StatusWaiting       = "WAITING"
	StatusSuccess       = "SUCCESS"
	StatusSleeping      = "SLEEPING"
	StatusCrashed       = "CRASHED"
	StatusFailed        = "FAILED"
	StatusQueued        = "QUEUED"
	StatusRemoved       = "REMOVED"
	StatusRemoving      = "REMOVING"
	StatusSkipped       = "SKIPPED"
)

// Instance statuses that count as running
const (
	InstanceInitializing = "INITIALIZING"
	InstanceRunning      = "RUNNING"
	InstanceRestarting   = "RESTARTING"
)

// StatusClass groups deployment statuses for display
type StatusClass int

const (
	ClassInactive StatusClass = iota
	ClassPending
	ClassSuccess
	ClassSleeping
	ClassFailed
)

// Instance is one replica of a deployment
type Instance struct {
	Status string `json:"status"`
}

// Deployment is a single rollout of a service into an environment
type Deployment struct {
	ID            string     `json:"id"`
	ServiceID     string     `json:"serviceId"`
	EnvironmentID string     `json:"environmentId"`
	Status        string     `json:"status"`
	URL           *string    `json:"url"`
	CanRedeploy   bool       `json:"canRedeploy"`
	Stopped       bool       `json:"deploymentStopped"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Instances     []Instance `json:"instances"`
}

// EventID implements timeline.TimedEvent
func (d Deployment) EventID() string {
	return d.ID
}

// StartedAt implements timeline.TimedEvent
func (d Deployment) StartedAt() time.Time {
	return d.CreatedAt
}

// EndedAt returns when the deployment stopped. A deployment that has not
// stopped is still running and has no end.
func (d Deployment) EndedAt() (time.Time, bool) {
	if !d.Stopped {
		return time.Time{}, false
	}
	return d.UpdatedAt, true
}

// RunningInstanceCount counts instances that are starting, running or
// restarting.
func (d Deployment) RunningInstanceCount() int {
	n := 0
	for _, inst := range d.Instances {
		switch inst.Status {
		case InstanceInitializing, InstanceRunning, InstanceRestarting:
			n++
		}
	}
	return n
}

// IsRunning reports whether any instance is up
func (d Deployment) IsRunning() bool {
	return d.RunningInstanceCount() > 0
}

// ClassifyStatus maps a deployment status to its display class
func ClassifyStatus(status string) StatusClass {
	switch status {
	case StatusBuilding, StatusDeploying, StatusInitializing, StatusNeedsApproval, StatusWaiting:
		return ClassPending
	case StatusSuccess:
		return ClassSuccess
	case StatusSleeping:
		return ClassSleeping
	case StatusCrashed, StatusFailed:
		return ClassFailed
	default:
		return ClassInactive
	}
}

// IsTransient reports whether a status is expected to change on its own
func IsTransient(status string) bool {
	switch status {
	case StatusBuilding, StatusDeploying, StatusInitializing, StatusRemoving:
		return true
	}
	return false
}

// Service is a deployable unit within a project
type Service struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Environment is a named deployment target within a project (production, staging, ...)
type Environment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project groups environments, services and their deployments
type Project struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	IsPublic     bool          `json:"isPublic"`
	CreatedAt    time.Time     `json:"createdAt"`
	DeletedAt    *time.Time    `json:"deletedAt"`
	Environments []Environment `json:"environments"`
	Services     []Service     `json:"services"`
	Deployments  []Deployment  `json:"deployments"`
}

// ServiceDeployments returns the deployments of one service in one
// environment, newest first. An empty environmentID matches every
// environment.
func (p *Project) ServiceDeployments(serviceID, environmentID string) []Deployment {
	var out []Deployment
	for _, d := range p.Deployments {
		if d.ServiceID != serviceID {
			continue
		}
		if environmentID != "" && d.EnvironmentID != environmentID {
			continue
		}
		out = append(out, d)
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders deployments by creation time, descending
func SortNewestFirst(deployments []Deployment) {
	sort.SliceStable(deployments, func(i, j int) bool {
		return deployments[i].CreatedAt.After(deployments[j].CreatedAt)
	})
}
