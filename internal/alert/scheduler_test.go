package alert

import (
	"testing"
	"time"

	"github.com/siteeye/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestScheduler(env *testEnv, notifiers ...*fakeNotifier) *Scheduler {
	s := NewScheduler(testEngineConfig(), env.alerts, env.escalations, nil, nil, zap.NewNop())
	for _, n := range notifiers {
		s.notifiers = append(s.notifiers, n)
	}
	return s
}

func seedCriticalAlert(t *testing.T, env *testEnv, timestamp time.Time) *models.Alert {
	t.Helper()
	workerID := uint(42)
	projectID := uint(1)
	alert := &models.Alert{
		Type:         models.AlertTypeGeofenceViolation,
		Priority:     models.AlertPriorityCritical,
		Message:      "worker outside geofence",
		Timestamp:    timestamp,
		SupervisorID: 7,
		WorkerID:     &workerID,
		ProjectID:    &projectID,
		Identifier:   "geofence_42_1_2026-03-04",
	}
	require.NoError(t, env.alerts.Create(alert))
	return alert
}

func TestEscalationOnTimeout(t *testing.T) {
	env := newTestEnv(t)
	notifier := &fakeNotifier{}
	scheduler := newTestScheduler(env, notifier)
	now := time.Now()

	alert := seedCriticalAlert(t, env, now.Add(-16*time.Minute))

	escalated := scheduler.RunEscalationTick()
	assert.Equal(t, 1, escalated)

	events, err := env.escalations.ListByAlert(alert.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, 1, event.EscalationLevel)
	assert.Equal(t, "operations", event.EscalatedTo)
	assert.Equal(t, models.EscalationReasonTimeout, event.Reason)
	assert.Equal(t, models.ResolutionPending, event.Resolution)
	require.Len(t, event.Notifications, 1)
	assert.Equal(t, "sent", event.Notifications[0].Status)
	assert.Equal(t, 1, notifier.calls)

	stored, err := env.alerts.Get(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EscalationLevel)
	require.NotNil(t, stored.LastEscalatedAt)

	// Immediately after escalating, the alert is fresh at its new tier.
	escalated = scheduler.RunEscalationTick()
	assert.Equal(t, 0, escalated)
}

func TestEscalationSecondTierAfterTimeout(t *testing.T) {
	env := newTestEnv(t)
	scheduler := newTestScheduler(env, &fakeNotifier{})
	now := time.Now()

	alert := seedCriticalAlert(t, env, now.Add(-time.Hour))

	escalated := scheduler.RunEscalationTick()
	require.Equal(t, 1, escalated)

	// Age the first escalation past the timeout.
	require.NoError(t, env.db.Model(&models.Alert{}).
		Where("id = ?", alert.ID).
		Update("last_escalated_at", now.Add(-16*time.Minute)).Error)

	escalated = scheduler.RunEscalationTick()
	assert.Equal(t, 1, escalated)

	events, err := env.escalations.ListByAlert(alert.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[1].EscalationLevel)
	assert.Equal(t, "management", events[1].EscalatedTo)

	stored, err := env.alerts.Get(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.EscalationLevel)

	// Level 2 is the ceiling; aging it further changes nothing.
	require.NoError(t, env.db.Model(&models.Alert{}).
		Where("id = ?", alert.ID).
		Update("last_escalated_at", now.Add(-time.Hour)).Error)
	escalated = scheduler.RunEscalationTick()
	assert.Equal(t, 0, escalated)
}

func TestAcknowledgedAlertIsNotEscalated(t *testing.T) {
	env := newTestEnv(t)
	scheduler := newTestScheduler(env, &fakeNotifier{})
	now := time.Now()

	alert := seedCriticalAlert(t, env, now.Add(-time.Hour))
	_, err := env.alerts.Acknowledge(alert.ID, "supervisor-1")
	require.NoError(t, err)

	escalated := scheduler.RunEscalationTick()
	assert.Equal(t, 0, escalated)
}

func TestFreshAndNonCriticalAlertsAreNotEscalated(t *testing.T) {
	env := newTestEnv(t)
	scheduler := newTestScheduler(env, &fakeNotifier{})
	now := time.Now()

	// Critical but within the timeout.
	seedCriticalAlert(t, env, now.Add(-5*time.Minute))

	// Stale but only a warning.
	workerID := uint(43)
	projectID := uint(1)
	warning := &models.Alert{
		Type:         models.AlertTypeWorkerAbsence,
		Priority:     models.AlertPriorityWarning,
		Message:      "worker absent",
		Timestamp:    now.Add(-time.Hour),
		SupervisorID: 7,
		WorkerID:     &workerID,
		ProjectID:    &projectID,
		Identifier:   "absence_43_1_2026-03-04",
	}
	require.NoError(t, env.alerts.Create(warning))

	escalated := scheduler.RunEscalationTick()
	assert.Equal(t, 0, escalated)
}

func TestFailedNotificationIsStillRecorded(t *testing.T) {
	env := newTestEnv(t)
	working := &fakeNotifier{}
	broken := &fakeNotifier{fail: true}
	scheduler := newTestScheduler(env, working, broken)
	now := time.Now()

	alert := seedCriticalAlert(t, env, now.Add(-16*time.Minute))

	escalated := scheduler.RunEscalationTick()
	require.Equal(t, 1, escalated)

	events, err := env.escalations.ListByAlert(alert.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, events[0].Notifications, 2)
	assert.Equal(t, "sent", events[0].Notifications[0].Status)
	assert.Equal(t, "failed", events[0].Notifications[1].Status)
}

func TestRunCleanup(t *testing.T) {
	env := newTestEnv(t)
	scheduler := newTestScheduler(env)
	now := time.Now()
	longAgo := now.AddDate(0, 0, -10)
	wayBack := now.AddDate(0, 0, -40)

	// Read alert past the retention window.
	oldRead := seedCriticalAlert(t, env, longAgo)
	_, err := env.alerts.Acknowledge(oldRead.ID, "supervisor-1")
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.Alert{}).
		Where("id = ?", oldRead.ID).
		Update("acknowledged_at", longAgo).Error)

	// Old but unread alerts survive.
	workerID := uint(43)
	projectID := uint(1)
	oldUnread := &models.Alert{
		Type:         models.AlertTypeWorkerAbsence,
		Priority:     models.AlertPriorityWarning,
		Message:      "worker absent",
		Timestamp:    longAgo,
		SupervisorID: 7,
		WorkerID:     &workerID,
		ProjectID:    &projectID,
		Identifier:   "absence_43_1_2026-02-22",
	}
	require.NoError(t, env.alerts.Create(oldUnread))

	// Expired alert.
	past := now.Add(-time.Hour)
	expired := &models.Alert{
		Type:         models.AlertTypeWorkerAbsence,
		Priority:     models.AlertPriorityWarning,
		Message:      "expired",
		Timestamp:    past,
		SupervisorID: 7,
		WorkerID:     &workerID,
		ProjectID:    &projectID,
		Identifier:   "absence_43_1_expired",
		ExpiresAt:    &past,
	}
	require.NoError(t, env.alerts.Create(expired))

	// Resolved escalation past retention; pending one of the same age.
	oldResolved := &models.EscalationEvent{AlertID: oldRead.ID, EscalationLevel: 1, Reason: models.EscalationReasonTimeout, Resolution: models.ResolutionResolved}
	oldPending := &models.EscalationEvent{AlertID: oldUnread.ID, EscalationLevel: 1, Reason: models.EscalationReasonTimeout}
	require.NoError(t, env.escalations.Create(oldResolved))
	require.NoError(t, env.escalations.Create(oldPending))
	require.NoError(t, env.db.Model(&models.EscalationEvent{}).
		Where("id IN ?", []uint{oldResolved.ID, oldPending.ID}).
		Update("created_at", wayBack).Error)

	scheduler.RunCleanup()

	alerts, err := env.alerts.List("", false, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, oldUnread.ID, alerts[0].ID)

	_, err = env.escalations.Get(oldResolved.ID)
	assert.Error(t, err)
	kept, err := env.escalations.Get(oldPending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResolutionPending, kept.Resolution)
}

func TestRunCleanupRemovesDuplicateUnread(t *testing.T) {
	env := newTestEnv(t)
	scheduler := newTestScheduler(env)
	now := time.Now()

	older := seedCriticalAlert(t, env, now.Add(-10*time.Minute))
	newer := seedCriticalAlert(t, env, now)

	scheduler.RunCleanup()

	alerts, err := env.alerts.List("", true, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, newer.ID, alerts[0].ID)
	assert.NotEqual(t, older.ID, alerts[0].ID)
}

func TestStaticRecipients(t *testing.T) {
	resolver := StaticRecipients{FirstTier: "operations", SecondTier: "management"}
	assert.Equal(t, "operations", resolver.Recipient(nil, 1))
	assert.Equal(t, "management", resolver.Recipient(nil, 2))
	assert.Equal(t, "management", resolver.Recipient(nil, 3))
}
