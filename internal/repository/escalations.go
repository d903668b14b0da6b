package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/siteeye/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EscalationRepository is the persistence boundary for escalation
// events. Events are created only by the escalation scheduler and stay
// immutable apart from acknowledgment, resolution, and the
// notification log.
type EscalationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewEscalationRepository(db *gorm.DB, logger *zap.Logger) *EscalationRepository {
	return &EscalationRepository{db: db, logger: logger}
}

func (r *EscalationRepository) Create(event *models.EscalationEvent) error {
	if event.EscalatedAt.IsZero() {
		event.EscalatedAt = time.Now()
	}
	if event.Resolution == "" {
		event.Resolution = models.ResolutionPending
	}
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to create escalation event: %w", err)
	}
	return nil
}

func (r *EscalationRepository) Get(id uint) (*models.EscalationEvent, error) {
	var event models.EscalationEvent
	if err := r.db.First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find escalation %d: %w", id, err)
	}
	return &event, nil
}

// ListByAlert returns all escalation events for one alert, oldest
// first.
func (r *EscalationRepository) ListByAlert(alertID uint) ([]models.EscalationEvent, error) {
	var events []models.EscalationEvent
	if err := r.db.Where("alert_id = ?", alertID).Order("escalation_level ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list escalations for alert %d: %w", alertID, err)
	}
	return events, nil
}

func (r *EscalationRepository) List(limit int) ([]models.EscalationEvent, error) {
	query := r.db.Order("escalated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []models.EscalationEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list escalations: %w", err)
	}
	return events, nil
}

func (r *EscalationRepository) Acknowledge(id uint, byID string) (*models.EscalationEvent, error) {
	event, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	event.Acknowledged = true
	event.AcknowledgedAt = &now
	event.AcknowledgedBy = byID

	if err := r.db.Save(event).Error; err != nil {
		return nil, fmt.Errorf("failed to acknowledge escalation %d: %w", id, err)
	}
	return event, nil
}

// Resolve sets the resolution outcome. This is a supervisor action and
// does not affect the owning alert's escalation eligibility.
func (r *EscalationRepository) Resolve(id uint, resolution models.EscalationResolution) (*models.EscalationEvent, error) {
	switch resolution {
	case models.ResolutionResolved, models.ResolutionForwarded, models.ResolutionDismissed:
	default:
		return nil, fmt.Errorf("invalid resolution %q", resolution)
	}

	event, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	event.Resolution = resolution
	if err := r.db.Save(event).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve escalation %d: %w", id, err)
	}
	return event, nil
}

// AppendNotification adds one delivery attempt to the event's log.
func (r *EscalationRepository) AppendNotification(id uint, record models.NotificationRecord) error {
	event, err := r.Get(id)
	if err != nil {
		return err
	}

	event.Notifications = append(event.Notifications, record)
	if err := r.db.Save(event).Error; err != nil {
		return fmt.Errorf("failed to append notification to escalation %d: %w", id, err)
	}
	return nil
}

// DeleteResolvedOlderThan removes resolved and dismissed events created
// before the cutoff. Pending and forwarded events are kept regardless
// of age.
func (r *EscalationRepository) DeleteResolvedOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.
		Where("resolution IN ? AND created_at <= ?",
			[]models.EscalationResolution{models.ResolutionResolved, models.ResolutionDismissed}, cutoff).
		Delete(&models.EscalationEvent{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete resolved escalations: %w", res.Error)
	}
	return res.RowsAffected, nil
}
