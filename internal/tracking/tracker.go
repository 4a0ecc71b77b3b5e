package tracking

import (
	"sort"
	"sync"
	"time"

	"context"

	"dispatch/pkg/apperror"
	"dispatch/pkg/domain"
	"dispatch/pkg/logger"
	"dispatch/pkg/metrics"
)

// RouteTracker owns the Visit and Route state machines and every
// invariant derived from them. Visit transitions within a
// single route are serialized by a per-route lock so the route-completion
// check after each transition observes a consistent snapshot.
type RouteTracker struct {
	repo RouteRepository

	mu       sync.Mutex
	routeMus map[int64]*sync.Mutex

	now func() time.Time
}

// NewRouteTracker wires a RouteTracker against repo.
func NewRouteTracker(repo RouteRepository) *RouteTracker {
	return &RouteTracker{repo: repo, routeMus: make(map[int64]*sync.Mutex), now: time.Now}
}

func (t *RouteTracker) lockFor(routeID int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.routeMus[routeID]
	if !ok {
		m = &sync.Mutex{}
		t.routeMus[routeID] = m
	}
	return m
}

// UpdateVisitStatus drives visitID through the visit transition table,
// cascading the owning Route and Case statuses.
func (t *RouteTracker) UpdateVisitStatus(ctx context.Context, visitID int64, next domain.VisitStatus, notes string) (domain.Visit, error) {
	visit, err := t.repo.LoadVisit(ctx, visitID)
	if err != nil {
		return domain.Visit{}, err
	}

	routeMu := t.lockFor(visit.RouteID)
	routeMu.Lock()
	defer routeMu.Unlock()

	updated, err := visit.Transition(next, t.now())
	if err != nil {
		return domain.Visit{}, err
	}
	if notes != "" {
		updated.Notes = notes
	}

	if err := t.repo.SaveVisit(ctx, updated); err != nil {
		return domain.Visit{}, err
	}
	metrics.Get().VisitTransitions.WithLabelValues(string(next)).Inc()

	route, err := t.repo.LoadRoute(ctx, visit.RouteID)
	if err != nil {
		return domain.Visit{}, err
	}

	// The first en_route on an active route starts it.
	if next == domain.VisitEnRoute && route.Status == domain.RouteActive {
		if err := t.repo.SaveRouteStatus(ctx, route.ID, domain.RouteInProgress); err != nil {
			return domain.Visit{}, err
		}
		route.Status = domain.RouteInProgress
	}

	if err := t.mirrorCaseStatus(ctx, visit.CaseID, next); err != nil {
		logger.WithRoute(route.ID).Warn("failed to mirror case status", "case_id", visit.CaseID, "error", err)
	}

	if route.Status == domain.RouteInProgress && allVisitsTerminal(route.Visits, visit.ID, updated) {
		if err := t.repo.SaveRouteStatus(ctx, route.ID, domain.RouteCompleted); err != nil {
			return domain.Visit{}, err
		}
	}

	return updated, nil
}

// allVisitsTerminal reports whether every visit in visits is terminal,
// substituting `replaced` for the entry matching its own id since the
// repository snapshot may predate the just-persisted transition.
func allVisitsTerminal(visits []domain.Visit, replacedID int64, replaced domain.Visit) bool {
	for _, v := range visits {
		if v.ID == replacedID {
			v = replaced
		}
		if !v.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func (t *RouteTracker) mirrorCaseStatus(ctx context.Context, caseID int64, visitStatus domain.VisitStatus) error {
	target, ok := caseStatusForVisit(visitStatus)
	if !ok {
		return nil
	}

	c, err := t.repo.LoadCase(ctx, caseID)
	if err != nil {
		return err
	}
	if c.Status == target {
		return nil
	}

	updated, err := c.Transition(target)
	if err != nil {
		return err
	}
	return t.repo.SaveCaseStatus(ctx, caseID, updated.Status)
}

func caseStatusForVisit(vs domain.VisitStatus) (domain.CaseStatus, bool) {
	switch vs {
	case domain.VisitEnRoute, domain.VisitArrived, domain.VisitInProgress:
		return domain.CaseInProgress, true
	case domain.VisitCompleted:
		return domain.CaseCompleted, true
	case domain.VisitCancelled:
		return domain.CaseCancelled, true
	case domain.VisitFailed:
		return domain.CaseFailed, true
	default:
		return "", false
	}
}

// CancelRoute cancels routeID and every non-terminal visit on it, storing
// reason in each cancelled visit's notes. Forbidden once
// the route is completed.
func (t *RouteTracker) CancelRoute(ctx context.Context, routeID int64, reason string) error {
	routeMu := t.lockFor(routeID)
	routeMu.Lock()
	defer routeMu.Unlock()

	route, err := t.repo.LoadRoute(ctx, routeID)
	if err != nil {
		return err
	}
	if route.Status == domain.RouteCompleted {
		return apperror.New(apperror.CodeConflict, "cannot cancel a completed route")
	}

	for _, v := range route.Visits {
		if v.Status.IsTerminal() {
			continue
		}
		updated, err := v.Transition(domain.VisitCancelled, t.now())
		if err != nil {
			return err
		}
		if reason != "" {
			updated.Notes = reason
		}
		if err := t.repo.SaveVisit(ctx, updated); err != nil {
			return err
		}
		metrics.Get().VisitTransitions.WithLabelValues(string(domain.VisitCancelled)).Inc()
		if err := t.mirrorCaseStatus(ctx, v.CaseID, domain.VisitCancelled); err != nil {
			logger.WithRoute(routeID).Warn("failed to mirror case status on cancel", "case_id", v.CaseID, "error", err)
		}
	}

	if _, err := domain.TransitionRoute(route.Status, domain.RouteCancelled); err != nil {
		return err
	}
	return t.repo.SaveRouteStatus(ctx, routeID, domain.RouteCancelled)
}

// NextPendingVisit returns the earliest-sequenced pending visit on
// routeID, or nil if none remain.
func (t *RouteTracker) NextPendingVisit(ctx context.Context, routeID int64) (*domain.Visit, error) {
	route, err := t.repo.LoadRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	visits := sortedBySequence(route.Visits)
	for i := range visits {
		if visits[i].Status == domain.VisitPending {
			return &visits[i], nil
		}
	}
	return nil, nil
}

// CurrentVisit returns the earliest-sequenced visit in en_route, arrived,
// or in_progress, or nil if the route has no active visit.
func (t *RouteTracker) CurrentVisit(ctx context.Context, routeID int64) (*domain.Visit, error) {
	route, err := t.repo.LoadRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	visits := sortedBySequence(route.Visits)
	for i := range visits {
		switch visits[i].Status {
		case domain.VisitEnRoute, domain.VisitArrived, domain.VisitInProgress:
			return &visits[i], nil
		}
	}
	return nil, nil
}

// Progress summarizes routeID's visits by status plus completion percent.
type Progress struct {
	Total             int
	CountsByStatus    map[domain.VisitStatus]int
	CompletionPercent float64
}

// Progress reports per-status visit counts and a completion percentage
// for routeID.
func (t *RouteTracker) Progress(ctx context.Context, routeID int64) (Progress, error) {
	route, err := t.repo.LoadRoute(ctx, routeID)
	if err != nil {
		return Progress{}, err
	}

	counts := make(map[domain.VisitStatus]int)
	for _, v := range route.Visits {
		counts[v.Status]++
	}

	total := len(route.Visits)
	completion := 0.0
	if total > 0 {
		completion = float64(counts[domain.VisitCompleted]) / float64(total) * 100.0
	}

	return Progress{Total: total, CountsByStatus: counts, CompletionPercent: completion}, nil
}

func sortedBySequence(visits []domain.Visit) []domain.Visit {
	out := make([]domain.Visit, len(visits))
	copy(out, visits)
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out
}
