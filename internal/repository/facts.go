package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/siteeye/internal/models"
	"gorm.io/gorm"
)

// FactRepository answers the read-only attendance and assignment
// queries the detector needs. Empty results are not errors; only a
// missing project is.
type FactRepository struct {
	db *gorm.DB
}

func NewFactRepository(db *gorm.DB) *FactRepository {
	return &FactRepository{db: db}
}

func (r *FactRepository) ActiveProjects() ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.Where("is_active = ?", true).Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list active projects: %w", err)
	}
	return projects, nil
}

func (r *FactRepository) ProjectByID(id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find project %d: %w", id, err)
	}
	return &project, nil
}

// AssignedWorkerIDs returns the distinct workers assigned to the
// project on the given day.
func (r *FactRepository) AssignedWorkerIDs(projectID uint, day string) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.TaskAssignment{}).
		Where("project_id = ? AND day = ?", projectID, day).
		Distinct().
		Pluck("worker_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	return ids, nil
}

// CheckedInWorkerIDs returns workers with a non-null check-in on the
// project for the given day.
func (r *FactRepository) CheckedInWorkerIDs(projectID uint, day string) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.AttendanceRecord{}).
		Where("project_id = ? AND day = ? AND check_in_at IS NOT NULL", projectID, day).
		Distinct().
		Pluck("worker_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins: %w", err)
	}
	return ids, nil
}

// OpenSessions returns attendance records that are checked in but not
// checked out.
func (r *FactRepository) OpenSessions(projectID uint, day string) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	err := r.db.
		Where("project_id = ? AND day = ? AND check_in_at IS NOT NULL AND check_out_at IS NULL", projectID, day).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query open sessions: %w", err)
	}
	return records, nil
}

// RecentGeofenceBreaches returns geofence events recorded since the
// given time.
func (r *FactRepository) RecentGeofenceBreaches(projectID uint, since time.Time) ([]models.GeofenceEvent, error) {
	var events []models.GeofenceEvent
	err := r.db.
		Where("project_id = ? AND at >= ?", projectID, since).
		Order("at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query geofence breaches: %w", err)
	}
	return events, nil
}

// RecordGeofenceEvent stores a breach observed at check-in or
// check-out time.
func (r *FactRepository) RecordGeofenceEvent(event *models.GeofenceEvent) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	if err := r.db.Create(event).Error; err != nil {
		return fmt.Errorf("failed to record geofence event: %w", err)
	}
	return nil
}
