package repository

import (
	"testing"
	"time"

	"github.com/siteeye/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAlertRepo(t *testing.T) *AlertRepository {
	t.Helper()
	return NewAlertRepository(openTestDB(t), zap.NewNop())
}

func makeAlert(identifier string, priority models.AlertPriority, timestamp time.Time) *models.Alert {
	workerID := uint(42)
	projectID := uint(7)
	return &models.Alert{
		Type:         models.AlertTypeWorkerAbsence,
		Priority:     priority,
		Message:      "test alert",
		Timestamp:    timestamp,
		SupervisorID: 1,
		WorkerID:     &workerID,
		ProjectID:    &projectID,
		Identifier:   identifier,
		Details:      models.AlertDetails{Absence: &models.AbsenceDetails{Day: timestamp.Format(models.DayFormat)}},
	}
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	repo := newAlertRepo(t)

	first := makeAlert("absence_42_7_2026-03-04", models.AlertPriorityWarning, time.Now())
	second := makeAlert("absence_43_7_2026-03-04", models.AlertPriorityWarning, time.Now())
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	assert.NotZero(t, first.ID)
	assert.NotZero(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateDefaultsTimestamp(t *testing.T) {
	repo := newAlertRepo(t)

	alert := makeAlert("absence_42_7_2026-03-04", models.AlertPriorityWarning, time.Time{})
	require.NoError(t, repo.Create(alert))
	assert.False(t, alert.Timestamp.IsZero())
}

func TestFindUnreadByIdentifier(t *testing.T) {
	repo := newAlertRepo(t)
	now := time.Now()

	alert := makeAlert("absence_42_7_x", models.AlertPriorityWarning, now)
	require.NoError(t, repo.Create(alert))

	found, err := repo.FindUnreadByIdentifier("absence_42_7_x", now.Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, alert.ID, found.ID)

	// Outside the lookback window.
	found, err = repo.FindUnreadByIdentifier("absence_42_7_x", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, found)

	// Unknown identifier.
	found, err = repo.FindUnreadByIdentifier("absence_99_7_x", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, found)

	// Acknowledged alerts no longer block.
	_, err = repo.Acknowledge(alert.ID, "supervisor-1")
	require.NoError(t, err)
	found, err = repo.FindUnreadByIdentifier("absence_42_7_x", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestAcknowledge(t *testing.T) {
	repo := newAlertRepo(t)

	alert := makeAlert("absence_42_7_x", models.AlertPriorityWarning, time.Now())
	require.NoError(t, repo.Create(alert))

	acked, err := repo.Acknowledge(alert.ID, "supervisor-1")
	require.NoError(t, err)
	assert.True(t, acked.IsRead)
	assert.Equal(t, "supervisor-1", acked.AcknowledgedBy)
	require.NotNil(t, acked.AcknowledgedAt)
}

func TestAcknowledgeNotFound(t *testing.T) {
	repo := newAlertRepo(t)

	_, err := repo.Acknowledge(9999, "supervisor-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindStaleCriticalLevelZero(t *testing.T) {
	repo := newAlertRepo(t)
	now := time.Now()

	stale := makeAlert("geofence_1_7_x", models.AlertPriorityCritical, now.Add(-20*time.Minute))
	fresh := makeAlert("geofence_2_7_x", models.AlertPriorityCritical, now.Add(-5*time.Minute))
	warning := makeAlert("absence_3_7_x", models.AlertPriorityWarning, now.Add(-20*time.Minute))
	require.NoError(t, repo.Create(stale))
	require.NoError(t, repo.Create(fresh))
	require.NoError(t, repo.Create(warning))

	acked := makeAlert("geofence_4_7_x", models.AlertPriorityCritical, now.Add(-20*time.Minute))
	require.NoError(t, repo.Create(acked))
	_, err := repo.Acknowledge(acked.ID, "supervisor-1")
	require.NoError(t, err)

	found, err := repo.FindStaleCritical(0, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestFindStaleCriticalHigherLevelUsesLastEscalation(t *testing.T) {
	repo := newAlertRepo(t)
	now := time.Now()

	alert := makeAlert("geofence_1_7_x", models.AlertPriorityCritical, now.Add(-time.Hour))
	require.NoError(t, repo.Create(alert))
	_, err := repo.BumpEscalation(alert.ID, now.Add(-20*time.Minute))
	require.NoError(t, err)

	found, err := repo.FindStaleCritical(1, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 1)

	// Recently escalated alerts are not stale at their level.
	found, err = repo.FindStaleCritical(1, now.Add(-25*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestBumpEscalationIsMonotonic(t *testing.T) {
	repo := newAlertRepo(t)
	now := time.Now()

	alert := makeAlert("geofence_1_7_x", models.AlertPriorityCritical, now)
	require.NoError(t, repo.Create(alert))

	bumped, err := repo.BumpEscalation(alert.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, bumped.EscalationLevel)
	require.NotNil(t, bumped.LastEscalatedAt)

	bumped, err = repo.BumpEscalation(alert.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, bumped.EscalationLevel)
}

func TestDeleteReadOlderThanSparesUnread(t *testing.T) {
	repo := newAlertRepo(t)
	now := time.Now()
	longAgo := now.AddDate(0, 0, -10)

	oldRead := makeAlert("absence_1_7_x", models.AlertPriorityWarning, longAgo)
	oldRead.IsRead = true
	oldRead.AcknowledgedAt = &longAgo
	require.NoError(t, repo.Create(oldRead))

	oldUnread := makeAlert("absence_2_7_x", models.AlertPriorityWarning, longAgo)
	require.NoError(t, repo.Create(oldUnread))

	recentRead := makeAlert("absence_3_7_x", models.AlertPriorityWarning, now)
	recentRead.IsRead = true
	recentRead.AcknowledgedAt = &now
	require.NoError(t, repo.Create(recentRead))

	count, err := repo.DeleteReadOlderThan(now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	remaining, err := repo.List("", false, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
	for _, a := range remaining {
		assert.NotEqual(t, oldRead.ID, a.ID)
	}
}

func TestDeleteExpired(t *testing.T) {
	repo := newAlertRepo(t)
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := makeAlert("absence_1_7_x", models.AlertPriorityWarning, past)
	expired.ExpiresAt = &past
	require.NoError(t, repo.Create(expired))

	live := makeAlert("absence_2_7_x", models.AlertPriorityWarning, past)
	live.ExpiresAt = &future
	require.NoError(t, repo.Create(live))

	forever := makeAlert("absence_3_7_x", models.AlertPriorityWarning, past)
	require.NoError(t, repo.Create(forever))

	count, err := repo.DeleteExpired(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDeleteDuplicateUnreadKeepsNewest(t *testing.T) {
	repo := newAlertRepo(t)
	now := time.Now()

	older := makeAlert("absence_42_7_x", models.AlertPriorityWarning, now.Add(-2*time.Minute))
	newer := makeAlert("absence_42_7_x", models.AlertPriorityWarning, now)
	other := makeAlert("absence_43_7_x", models.AlertPriorityWarning, now.Add(-2*time.Minute))
	require.NoError(t, repo.Create(older))
	require.NoError(t, repo.Create(newer))
	require.NoError(t, repo.Create(other))

	count, err := repo.DeleteDuplicateUnread()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	remaining, err := repo.List("", true, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	ids := []uint{remaining[0].ID, remaining[1].ID}
	assert.Contains(t, ids, newer.ID)
	assert.Contains(t, ids, other.ID)
	assert.NotContains(t, ids, older.ID)
}

func TestListFilters(t *testing.T) {
	repo := newAlertRepo(t)
	now := time.Now()

	critical := makeAlert("geofence_1_7_x", models.AlertPriorityCritical, now)
	warning := makeAlert("absence_2_7_x", models.AlertPriorityWarning, now)
	require.NoError(t, repo.Create(critical))
	require.NoError(t, repo.Create(warning))
	_, err := repo.Acknowledge(warning.ID, "supervisor-1")
	require.NoError(t, err)

	alerts, err := repo.List(models.AlertPriorityCritical, false, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, critical.ID, alerts[0].ID)

	alerts, err = repo.List("", true, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, critical.ID, alerts[0].ID)
}
