package summary

import (
	"sort"
	"time"

	"github.com/chris/railtl/internal/timeline"
	"github.com/chris/railtl/pkg/models"
)

// span is a half-open interval of deployment activity
type span struct {
	start time.Time
	end   time.Time
}

// GroupByService summarizes the deployments overlapping rng for every
// environment and service of the project. Pairs with no overlapping
// deployment are left out. Environments and services keep project order.
func GroupByService(p *models.Project, rng timeline.Range, now time.Time) []ServiceSummary {
	var out []ServiceSummary
	for _, env := range p.Environments {
		for _, svc := range p.Services {
			deployments := timeline.Visible(p.ServiceDeployments(svc.ID, env.ID), rng, now)
			if len(deployments) == 0 {
				continue
			}
			s := summarize(deployments, rng, now)
			s.Service = svc.Name
			s.Environment = env.Name
			out = append(out, s)
		}
	}
	return out
}

// summarize expects deployments newest first
func summarize(deployments []models.Deployment, rng timeline.Range, now time.Time) ServiceSummary {
	s := ServiceSummary{
		Deployments:  len(deployments),
		LatestStatus: deployments[0].Status,
	}

	spans := make([]span, 0, len(deployments))
	for _, d := range deployments {
		if models.ClassifyStatus(d.Status) == models.ClassFailed {
			s.Failed++
		}

		start := d.StartedAt()
		if start.Before(rng.Start) {
			start = rng.Start
		}
		end := timeline.EndOrNow(d, now)
		if end.After(rng.End) {
			end = rng.End
		}
		if end.Before(start) {
			end = start
		}

		if s.FirstTime.IsZero() || start.Before(s.FirstTime) {
			s.FirstTime = start
		}
		if end.After(s.LastTime) {
			s.LastTime = end
		}
		spans = append(spans, span{start: start, end: end})
	}

	s.Active = unionLength(spans)
	return s
}

// unionLength returns the total time covered by spans, counting overlaps once
func unionLength(spans []span) time.Duration {
	if len(spans) == 0 {
		return 0
	}
	sort.Slice(spans, func(i, j int) bool {
		return spans[i].start.Before(spans[j].start)
	})

	var total time.Duration
	cur := spans[0]
	for _, sp := range spans[1:] {
		if sp.start.After(cur.end) {
			total += cur.end.Sub(cur.start)
			cur = sp
			continue
		}
		if sp.end.After(cur.end) {
			cur.end = sp.end
		}
	}
	return total + cur.end.Sub(cur.start)
}
