package tracking

import (
	"context"
	"sync"
	"time"

	"dispatch/pkg/domain"
	"dispatch/pkg/metrics"
)

// Severity classifies a delay by absolute minutes late.
type Severity string

const (
	SeverityNone     Severity = ""
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// ClassifySeverity buckets delayMinutes into severity tiers. Below
// 5 minutes carries no alert.
func ClassifySeverity(delayMinutes float64) Severity {
	abs := delayMinutes
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 30:
		return SeveritySevere
	case abs >= 15:
		return SeverityModerate
	case abs >= 5:
		return SeverityMinor
	default:
		return SeverityNone
	}
}

// recheckInterval is the per-visit delay re-check rate limit.
const recheckInterval = 5 * time.Minute

// Alert is one delay notification yielded by DetectRoute.
type Alert struct {
	VisitID      int64
	CaseID       int64
	DelayMinutes float64
	Severity     Severity
}

// Statistics aggregates a route's delay picture.
type Statistics struct {
	OnTime       int
	Minor        int
	Moderate     int
	Severe       int
	AverageDelay float64
	MaxDelay     float64
}

// WindowViolation is one entry returned by TimeWindowViolations.
type WindowViolation struct {
	VisitID     int64
	CaseID      int64
	MinutesOver float64
	Severity    string // "warning" or "critical"
}

// DelayDetector compares projected or actual arrival against
// the planned arrival and classifies the result by severity.
type DelayDetector struct {
	eta    *ETACalculator
	routes RouteRepository

	mu          sync.Mutex
	lastChecked map[int64]time.Time

	now func() time.Time
}

// NewDelayDetector wires a DelayDetector against its ETA calculator and
// route repository.
func NewDelayDetector(eta *ETACalculator, routes RouteRepository) *DelayDetector {
	return &DelayDetector{eta: eta, routes: routes, lastChecked: make(map[int64]time.Time), now: time.Now}
}

// shouldCheck enforces the 5-minute per-visit rate limit unless forced.
func (d *DelayDetector) shouldCheck(visitID int64, force bool) bool {
	if force {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastChecked[visitID]
	if ok && d.now().Sub(last) < recheckInterval {
		return false
	}
	d.lastChecked[visitID] = d.now()
	return true
}

// CheckVisit projects visitID's current delay (or uses its already-actual
// arrival if terminal), returning (nil, nil) when no alert is warranted:
// the visit is on time, terminal without actual timestamps, or rate
// limited.
func (d *DelayDetector) CheckVisit(ctx context.Context, visitID, vehicleID int64, force bool) (*Alert, error) {
	if !d.shouldCheck(visitID, force) {
		return nil, nil
	}

	visit, err := d.routes.LoadVisit(ctx, visitID)
	if err != nil {
		return nil, err
	}

	var delayMinutes float64
	switch {
	case visit.Status == domain.VisitCompleted && visit.ActualArrival != nil:
		delayMinutes = visit.ActualArrival.Sub(visit.EstimatedArrival).Minutes()
	case !visit.Status.IsTerminal():
		detail, err := d.eta.EtaDetailed(ctx, visitID, vehicleID)
		if err != nil {
			return nil, err
		}
		if detail == nil {
			return nil, nil
		}
		delayMinutes = detail.DelayMinutes
	default:
		return nil, nil
	}

	severity := ClassifySeverity(delayMinutes)
	if severity == SeverityNone {
		return nil, nil
	}

	metrics.Get().DelayAlertsTotal.WithLabelValues(string(severity)).Inc()

	return &Alert{
		VisitID:      visitID,
		CaseID:       visit.CaseID,
		DelayMinutes: delayMinutes,
		Severity:     severity,
	}, nil
}

// DetectRoute scans routeID's non-terminal visits and returns an alert
// for each one whose delay clears the severity floor.
// vehicleID is the route's assigned vehicle, used to project ETAs.
func (d *DelayDetector) DetectRoute(ctx context.Context, routeID, vehicleID int64) ([]Alert, error) {
	route, err := d.routes.LoadRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	for _, v := range route.Visits {
		if v.Status.IsTerminal() {
			continue
		}
		alert, err := d.CheckVisit(ctx, v.ID, vehicleID, false)
		if err != nil {
			return nil, err
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	return alerts, nil
}

// RouteStatistics aggregates delay counts for routeID: completed
// visits use actual-minus-planned, active visits use projected-minus-
// planned.
func (d *DelayDetector) RouteStatistics(ctx context.Context, routeID, vehicleID int64) (Statistics, error) {
	route, err := d.routes.LoadRoute(ctx, routeID)
	if err != nil {
		return Statistics{}, err
	}

	var stats Statistics
	var delays []float64

	for _, v := range route.Visits {
		var delayMinutes float64
		switch {
		case v.Status == domain.VisitCompleted && v.ActualArrival != nil:
			delayMinutes = v.ActualArrival.Sub(v.EstimatedArrival).Minutes()
		case !v.Status.IsTerminal():
			detail, err := d.eta.EtaDetailed(ctx, v.ID, vehicleID)
			if err != nil || detail == nil {
				continue
			}
			delayMinutes = detail.DelayMinutes
		default:
			continue
		}

		delays = append(delays, delayMinutes)
		switch ClassifySeverity(delayMinutes) {
		case SeverityMinor:
			stats.Minor++
		case SeverityModerate:
			stats.Moderate++
		case SeveritySevere:
			stats.Severe++
		default:
			stats.OnTime++
		}
	}

	if len(delays) > 0 {
		var sum, max float64
		for _, delay := range delays {
			sum += delay
			if delay > max {
				max = delay
			}
		}
		stats.AverageDelay = sum / float64(len(delays))
		stats.MaxDelay = max
	}

	return stats, nil
}

// TimeWindowViolations reports active visits whose projected arrival
// lands after the case's time window end, with minutes over and a
// critical/warning severity.
func (d *DelayDetector) TimeWindowViolations(ctx context.Context, routeID, vehicleID int64) ([]WindowViolation, error) {
	route, err := d.routes.LoadRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	var violations []WindowViolation
	for _, v := range route.Visits {
		if v.Status.IsTerminal() {
			continue
		}
		detail, err := d.eta.EtaDetailed(ctx, v.ID, vehicleID)
		if err != nil {
			return nil, err
		}
		if detail == nil {
			continue
		}

		caseRecord, err := d.routes.LoadCase(ctx, v.CaseID)
		if err != nil {
			return nil, err
		}

		windowEnd := time.Date(v.EstimatedArrival.Year(), v.EstimatedArrival.Month(), v.EstimatedArrival.Day(),
			0, 0, 0, 0, v.EstimatedArrival.Location()).Add(time.Duration(caseRecord.Window.End) * time.Minute)

		if detail.ETA.After(windowEnd) {
			minutesOver := detail.ETA.Sub(windowEnd).Minutes()
			severity := "warning"
			if minutesOver > 30 {
				severity = "critical"
			}
			violations = append(violations, WindowViolation{
				VisitID:     v.ID,
				CaseID:      v.CaseID,
				MinutesOver: minutesOver,
				Severity:    severity,
			})
		}
	}

	return violations, nil
}
