package alert

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/siteeye/internal/config"
	"github.com/siteeye/internal/models"
	"github.com/siteeye/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	maxConcurrentProjects = 10

	// geofenceWindow is how far back a breach still raises an alert;
	// geofenceLookback is the dedup horizon for geofence identifiers.
	geofenceWindow   = 10 * time.Minute
	geofenceLookback = 30 * time.Minute
)

// Detector evaluates the four attendance rules per project per tick
// and writes deduplicated alerts.
type Detector struct {
	cfg    config.EngineConfig
	loc    *time.Location
	facts  *repository.FactRepository
	alerts *repository.AlertRepository
	logger *zap.Logger

	// recent short-circuits dedup probes for identifiers this process
	// created moments ago. The store probe stays the authority.
	recent *cache.Cache
	sem    *semaphore.Weighted

	now func() time.Time
}

func NewDetector(
	cfg config.EngineConfig,
	facts *repository.FactRepository,
	alerts *repository.AlertRepository,
	logger *zap.Logger,
) *Detector {
	return &Detector{
		cfg:    cfg,
		loc:    cfg.Location(),
		facts:  facts,
		alerts: alerts,
		logger: logger,
		recent: cache.New(cfg.DetectionInterval, 2*cfg.DetectionInterval),
		sem:    semaphore.NewWeighted(maxConcurrentProjects),
		now:    time.Now,
	}
}

// RunTick evaluates all active projects concurrently and returns the
// number of alerts created. Per-project failures are logged and do not
// stop the tick.
func (d *Detector) RunTick(ctx context.Context) int {
	projects, err := d.facts.ActiveProjects()
	if err != nil {
		d.logger.Error("failed to list active projects", zap.Error(err))
		return 0
	}

	var created int64
	var wg sync.WaitGroup
	for _, project := range projects {
		wg.Add(1)
		go func(project models.Project) {
			defer wg.Done()
			if err := d.sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer d.sem.Release(1)

			n, err := d.EvaluateProject(project)
			if err != nil {
				d.logger.Error("project evaluation failed",
					zap.Uint("project_id", project.ID),
					zap.Error(err),
				)
				return
			}
			atomic.AddInt64(&created, int64(n))
		}(project)
	}
	wg.Wait()

	return int(atomic.LoadInt64(&created))
}

// EvaluateProject runs the four rule evaluations for one project. The
// rules are independent; each logs its own failures.
func (d *Detector) EvaluateProject(project models.Project) (int, error) {
	now := d.now().In(d.loc)
	day := now.Format(models.DayFormat)

	created := 0
	created += d.detectGeofenceBreaches(project, now, day)
	created += d.detectAbsences(project, now, day)
	created += d.detectMissingCheckouts(project, now, day)
	created += d.detectOvertime(project, now, day)
	return created, nil
}

func (d *Detector) detectGeofenceBreaches(project models.Project, now time.Time, day string) int {
	breaches, err := d.facts.RecentGeofenceBreaches(project.ID, now.Add(-geofenceWindow))
	if err != nil {
		d.logger.Error("geofence rule failed", zap.Uint("project_id", project.ID), zap.Error(err))
		return 0
	}

	created := 0
	for _, breach := range breaches {
		details := models.AlertDetails{Geofence: &models.GeofenceDetails{
			BreachKind:     breach.Kind,
			Latitude:       breach.Latitude,
			Longitude:      breach.Longitude,
			DistanceMeters: breach.DistanceMeters,
		}}
		kindWord := "in"
		if breach.Kind == models.BreachCheckOut {
			kindWord = "out"
		}
		alert := d.newAlert(project, breach.WorkerID, details,
			models.AlertTypeGeofenceViolation, models.AlertPriorityCritical, day,
			fmt.Sprintf("Worker %d checked %s %.0fm outside the geofence of project %s",
				breach.WorkerID, kindWord, breach.DistanceMeters, project.Name),
		)
		if d.createIfAbsent(alert, now.Add(-geofenceLookback)) {
			created++
		}
	}
	return created
}

func (d *Detector) detectAbsences(project models.Project, now time.Time, day string) int {
	if now.Hour() < d.cfg.AbsenceCheckHour {
		return 0
	}

	assigned, err := d.facts.AssignedWorkerIDs(project.ID, day)
	if err != nil {
		d.logger.Error("absence rule failed", zap.Uint("project_id", project.ID), zap.Error(err))
		return 0
	}
	if len(assigned) == 0 {
		return 0
	}

	checkedIn, err := d.facts.CheckedInWorkerIDs(project.ID, day)
	if err != nil {
		d.logger.Error("absence rule failed", zap.Uint("project_id", project.ID), zap.Error(err))
		return 0
	}
	present := make(map[uint]struct{}, len(checkedIn))
	for _, id := range checkedIn {
		present[id] = struct{}{}
	}

	created := 0
	for _, workerID := range assigned {
		if _, ok := present[workerID]; ok {
			continue
		}
		details := models.AlertDetails{Absence: &models.AbsenceDetails{Day: day}}
		alert := d.newAlert(project, workerID, details,
			models.AlertTypeWorkerAbsence, models.AlertPriorityWarning, day,
			fmt.Sprintf("Worker %d is assigned to project %s but has not checked in today",
				workerID, project.Name),
		)
		if d.createIfAbsent(alert, startOfDay(now)) {
			created++
		}
	}
	return created
}

func (d *Detector) detectMissingCheckouts(project models.Project, now time.Time, day string) int {
	if now.Hour() < d.cfg.CheckoutCheckHour {
		return 0
	}

	sessions, err := d.facts.OpenSessions(project.ID, day)
	if err != nil {
		d.logger.Error("missing-checkout rule failed", zap.Uint("project_id", project.ID), zap.Error(err))
		return 0
	}

	created := 0
	for _, session := range sessions {
		details := models.AlertDetails{Checkout: &models.CheckoutDetails{CheckInAt: *session.CheckInAt}}
		alert := d.newAlert(project, session.WorkerID, details,
			models.AlertTypeAttendanceAnomaly, models.AlertPriorityWarning, day,
			fmt.Sprintf("Worker %d checked in to project %s at %s and never checked out",
				session.WorkerID, project.Name, session.CheckInAt.In(d.loc).Format("15:04")),
		)
		if d.createIfAbsent(alert, startOfDay(now)) {
			created++
		}
	}
	return created
}

func (d *Detector) detectOvertime(project models.Project, now time.Time, day string) int {
	sessions, err := d.facts.OpenSessions(project.ID, day)
	if err != nil {
		d.logger.Error("overtime rule failed", zap.Uint("project_id", project.ID), zap.Error(err))
		return 0
	}

	created := 0
	for _, session := range sessions {
		elapsed := now.Sub(*session.CheckInAt)
		overtime := elapsed.Hours() - d.cfg.StandardWorkdayHours
		if overtime <= 0 {
			continue
		}
		overtime = math.Round(overtime*10) / 10

		details := models.AlertDetails{Overtime: &models.OvertimeDetails{OvertimeHours: overtime}}
		alert := d.newAlert(project, session.WorkerID, details,
			models.AlertTypeAttendanceAnomaly, models.AlertPriorityInfo, day,
			fmt.Sprintf("Worker %d is %.1fh over the standard workday on project %s",
				session.WorkerID, overtime, project.Name),
		)
		if d.createIfAbsent(alert, startOfDay(now)) {
			created++
		}
	}
	return created
}

func (d *Detector) newAlert(
	project models.Project,
	workerID uint,
	details models.AlertDetails,
	alertType models.AlertType,
	priority models.AlertPriority,
	day, message string,
) *models.Alert {
	projectID := project.ID
	worker := workerID
	return &models.Alert{
		Type:         alertType,
		Priority:     priority,
		Message:      message,
		Timestamp:    d.now(),
		SupervisorID: project.SupervisorID,
		WorkerID:     &worker,
		ProjectID:    &projectID,
		Details:      details,
		Identifier:   models.DedupIdentifier(details, workerID, project.ID, day),
	}
}

// createIfAbsent runs the dedup probe and persists the alert if no
// unread alert with the same identifier exists within the lookback.
func (d *Detector) createIfAbsent(alert *models.Alert, since time.Time) bool {
	if _, hit := d.recent.Get(alert.Identifier); hit {
		return false
	}

	existing, err := d.alerts.FindUnreadByIdentifier(alert.Identifier, since)
	if err != nil {
		d.logger.Error("dedup probe failed",
			zap.String("identifier", alert.Identifier),
			zap.Error(err),
		)
		return false
	}
	if existing != nil {
		return false
	}

	if err := d.alerts.Create(alert); err != nil {
		// A concurrent tick may have won the race; the duplicate-unread
		// sweep reconciles either way.
		d.logger.Warn("alert create failed",
			zap.String("identifier", alert.Identifier),
			zap.Error(err),
		)
		return false
	}

	d.recent.SetDefault(alert.Identifier, struct{}{})
	d.logger.Info("alert created",
		zap.Uint("alert_id", alert.ID),
		zap.String("type", string(alert.Type)),
		zap.String("priority", string(alert.Priority)),
		zap.String("identifier", alert.Identifier),
	)
	return true
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
