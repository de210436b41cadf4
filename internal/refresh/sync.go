package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/chris/railtl/pkg/models"
)

// ProjectFetcher loads a project snapshot from the platform
type ProjectFetcher interface {
	Project(ctx context.Context, id string) (*models.Project, error)
}

// ProjectSaver persists a project snapshot
type ProjectSaver interface {
	SaveProject(p *models.Project) error
}

// Metrics are the sync counters exposed on /metrics
type Metrics struct {
	syncTotal   *prometheus.CounterVec
	deployments prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// NewMetrics creates the sync metrics and registers them with reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "railtl",
			Name:      "sync_total",
			Help:      "Project syncs by result",
		}, []string{"result"}),
		deployments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "railtl",
			Name:      "deployments_synced",
			Help:      "Deployments stored by the last successful sync",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "railtl",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful sync",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.syncTotal, m.deployments, m.lastSuccess)
	}
	return m
}

// Syncer copies one project from the platform into the local store
type Syncer struct {
	fetcher   ProjectFetcher
	store     ProjectSaver
	projectID string
	metrics   *Metrics
	now       func() time.Time
	timeout   time.Duration
}

// NewSyncer returns a Syncer for projectID. A nil metrics records nothing.
func NewSyncer(fetcher ProjectFetcher, store ProjectSaver, projectID string, metrics *Metrics) *Syncer {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Syncer{
		fetcher:   fetcher,
		store:     store,
		projectID: projectID,
		metrics:   metrics,
		now:       time.Now,
		timeout:   30 * time.Second,
	}
}

// ProjectID returns the synced project's id
func (s *Syncer) ProjectID() string {
	return s.projectID
}

// Sync fetches the project and replaces its stored snapshot
func (s *Syncer) Sync(ctx context.Context) (*models.Project, error) {
	if s.projectID == "" {
		s.metrics.syncTotal.WithLabelValues("error").Inc()
		return nil, errors.New("no project selected")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.fetcher.Project(ctx, s.projectID)
	if err != nil {
		s.metrics.syncTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch project %s: %w", s.projectID, err)
	}
	if err := s.store.SaveProject(p); err != nil {
		s.metrics.syncTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save project %s: %w", s.projectID, err)
	}

	s.metrics.syncTotal.WithLabelValues("ok").Inc()
	s.metrics.deployments.Set(float64(len(p.Deployments)))
	s.metrics.lastSuccess.Set(float64(s.now().Unix()))

	log.Debug().
		Str("project", p.Name).
		Int("services", len(p.Services)).
		Int("deployments", len(p.Deployments)).
		Msg("project synced")
	return p, nil
}
