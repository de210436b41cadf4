package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDeployment_EndedAt tests that only stopped deployments have an end
func TestDeployment_EndedAt(t *testing.T) {
	created := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	updated := created.Add(2 * time.Hour)

	running := Deployment{ID: "d1", CreatedAt: created, UpdatedAt: updated}
	_, ok := running.EndedAt()
	assert.False(t, ok)
	assert.Equal(t, created, running.StartedAt())
	assert.Equal(t, "d1", running.EventID())

	stopped := Deployment{ID: "d2", CreatedAt: created, UpdatedAt: updated, Stopped: true}
	end, ok := stopped.EndedAt()
	assert.True(t, ok)
	assert.Equal(t, updated, end)
}

// TestDeployment_RunningInstanceCount tests which instance statuses count as running
func TestDeployment_RunningInstanceCount(t *testing.T) {
	d := Deployment{Instances: []Instance{
		{Status: InstanceRunning},
		{Status: InstanceInitializing},
		{Status: InstanceRestarting},
		{Status: "CRASHED"},
		{Status: "STOPPED"},
	}}
	assert.Equal(t, 3, d.RunningInstanceCount())
	assert.True(t, d.IsRunning())

	assert.False(t, Deployment{}.IsRunning())
}

// TestClassifyStatus tests the display classes for each status
func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, ClassPending, ClassifyStatus(StatusBuilding))
	assert.Equal(t, ClassPending, ClassifyStatus(StatusWaiting))
	assert.Equal(t, ClassSuccess, ClassifyStatus(StatusSuccess))
	assert.Equal(t, ClassSleeping, ClassifyStatus(StatusSleeping))
	assert.Equal(t, ClassFailed, ClassifyStatus(StatusCrashed))
	assert.Equal(t, ClassInactive, ClassifyStatus(StatusRemoved))
	assert.Equal(t, ClassInactive, ClassifyStatus("SOMETHING_NEW"))

	assert.True(t, IsTransient(StatusRemoving))
	assert.False(t, IsTransient(StatusSuccess))
}

// TestProject_ServiceDeployments tests filtering and newest-first ordering
func TestProject_ServiceDeployments(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &Project{Deployments: []Deployment{
		{ID: "a", ServiceID: "web", EnvironmentID: "prod", CreatedAt: base},
		{ID: "b", ServiceID: "web", EnvironmentID: "prod", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "c", ServiceID: "worker", EnvironmentID: "prod", CreatedAt: base.Add(time.Hour)},
		{ID: "d", ServiceID: "web", EnvironmentID: "staging", CreatedAt: base.Add(time.Hour)},
	}}

	ids := func(ds []Deployment) []string {
		var out []string
		for _, d := range ds {
			out = append(out, d.ID)
		}
		return out
	}

	assert.Equal(t, []string{"b", "a"}, ids(p.ServiceDeployments("web", "prod")))
	assert.Equal(t, []string{"b", "d", "a"}, ids(p.ServiceDeployments("web", "")))
	assert.Empty(t, p.ServiceDeployments("db", "prod"))
}
