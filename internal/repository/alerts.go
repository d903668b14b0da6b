package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/siteeye/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when an alert or escalation id does not
// exist.
var ErrNotFound = errors.New("record not found")

// AlertRepository is the persistence boundary for alerts. All alert
// mutation in the system goes through these methods.
type AlertRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewAlertRepository(db *gorm.DB, logger *zap.Logger) *AlertRepository {
	return &AlertRepository{db: db, logger: logger}
}

// Create persists a new alert. The id comes from the database
// sequence, so concurrent creators never collide.
func (r *AlertRepository) Create(alert *models.Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}
	if err := r.db.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// FindUnreadByIdentifier returns the most recent unread alert with the
// given dedup identifier created at or after since, or nil if none.
func (r *AlertRepository) FindUnreadByIdentifier(identifier string, since time.Time) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.
		Where("alert_identifier = ? AND is_read = ? AND timestamp >= ?", identifier, false, since).
		Order("timestamp DESC").
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query alert by identifier: %w", err)
	}
	return &alert, nil
}

// Get returns a single alert by id.
func (r *AlertRepository) Get(id uint) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find alert %d: %w", id, err)
	}
	return &alert, nil
}

// Acknowledge marks an alert read, which also removes it from all
// future escalation sweeps.
func (r *AlertRepository) Acknowledge(id uint, byID string) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find alert %d: %w", id, err)
	}

	now := time.Now()
	alert.IsRead = true
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = byID

	if err := r.db.Save(&alert).Error; err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert %d: %w", id, err)
	}
	return &alert, nil
}

// FindStaleCritical returns unread critical alerts sitting at the given
// escalation level past the cutoff. Level 0 is measured from creation
// time; higher levels from the last escalation.
func (r *AlertRepository) FindStaleCritical(level int, olderThan time.Time) ([]models.Alert, error) {
	query := r.db.Where(
		"priority = ? AND is_read = ? AND escalation_level = ?",
		models.AlertPriorityCritical, false, level,
	)
	if level == 0 {
		query = query.Where("timestamp <= ?", olderThan)
	} else {
		query = query.Where("last_escalated_at <= ?", olderThan)
	}

	var alerts []models.Alert
	if err := query.Order("timestamp ASC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to query stale critical alerts: %w", err)
	}
	return alerts, nil
}

// BumpEscalation increments the escalation level by one. Only the
// escalation scheduler calls this.
func (r *AlertRepository) BumpEscalation(id uint, now time.Time) (*models.Alert, error) {
	var alert models.Alert
	if err := r.db.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find alert %d: %w", id, err)
	}

	alert.EscalationLevel++
	alert.LastEscalatedAt = &now

	if err := r.db.Save(&alert).Error; err != nil {
		return nil, fmt.Errorf("failed to bump escalation for alert %d: %w", id, err)
	}
	return &alert, nil
}

// DeleteReadOlderThan removes alerts acknowledged before the cutoff.
// Unread alerts are never touched, regardless of age.
func (r *AlertRepository) DeleteReadOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Where("is_read = ? AND acknowledged_at <= ?", true, cutoff).Delete(&models.Alert{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete read alerts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteExpired removes alerts whose TTL has passed.
func (r *AlertRepository) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at IS NOT NULL AND expires_at <= ?", now).Delete(&models.Alert{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired alerts: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteDuplicateUnread keeps the most recent unread alert per dedup
// group and removes the rest. Overlapping detection ticks can both
// pass the dedup probe before either commits; this sweep is the
// safety net.
func (r *AlertRepository) DeleteDuplicateUnread() (int64, error) {
	var alerts []models.Alert
	if err := r.db.Where("is_read = ?", false).Order("timestamp DESC").Find(&alerts).Error; err != nil {
		return 0, fmt.Errorf("failed to list unread alerts: %w", err)
	}

	type dedupGroup struct {
		Type         models.AlertType
		SupervisorID uint
		WorkerID     uint
		ProjectID    uint
		Identifier   string
	}

	seen := make(map[dedupGroup]struct{}, len(alerts))
	var duplicateIDs []uint
	for _, a := range alerts {
		key := dedupGroup{
			Type:         a.Type,
			SupervisorID: a.SupervisorID,
			WorkerID:     derefID(a.WorkerID),
			ProjectID:    derefID(a.ProjectID),
			Identifier:   a.Identifier,
		}
		if _, dup := seen[key]; dup {
			duplicateIDs = append(duplicateIDs, a.ID)
			continue
		}
		seen[key] = struct{}{}
	}

	if len(duplicateIDs) == 0 {
		return 0, nil
	}

	res := r.db.Delete(&models.Alert{}, duplicateIDs)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete duplicate alerts: %w", res.Error)
	}
	r.logger.Info("removed duplicate unread alerts", zap.Int64("count", res.RowsAffected))
	return res.RowsAffected, nil
}

// List returns alerts for API consumers, newest first.
func (r *AlertRepository) List(priority models.AlertPriority, unreadOnly bool, limit int) ([]models.Alert, error) {
	query := r.db.Order("timestamp DESC")
	if priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var alerts []models.Alert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func derefID(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
