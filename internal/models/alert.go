package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type AlertType string

const (
	AlertTypeGeofenceViolation AlertType = "GEOFENCE_VIOLATION"
	AlertTypeWorkerAbsence     AlertType = "WORKER_ABSENCE"
	AlertTypeAttendanceAnomaly AlertType = "ATTENDANCE_ANOMALY"
	AlertTypeSafetyAlert       AlertType = "SAFETY_ALERT"
)

type AlertPriority string

const (
	AlertPriorityCritical AlertPriority = "CRITICAL"
	AlertPriorityWarning  AlertPriority = "WARNING"
	AlertPriorityInfo     AlertPriority = "INFO"
)

type BreachKind string

const (
	BreachCheckIn  BreachKind = "check_in"
	BreachCheckOut BreachKind = "check_out"
)

// GeofenceDetails records where a worker checked in or out relative to
// the project geofence.
type GeofenceDetails struct {
	BreachKind     BreachKind `json:"breach_kind"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	DistanceMeters float64    `json:"distance_meters"`
}

type AbsenceDetails struct {
	Day string `json:"day"`
}

type CheckoutDetails struct {
	CheckInAt time.Time `json:"check_in_at"`
}

type OvertimeDetails struct {
	OvertimeHours float64 `json:"overtime_hours"`
}

// AlertDetails is the typed payload attached to an alert. Exactly one
// variant is set, matching the alert type.
type AlertDetails struct {
	Geofence *GeofenceDetails `json:"geofence,omitempty"`
	Absence  *AbsenceDetails  `json:"absence,omitempty"`
	Checkout *CheckoutDetails `json:"checkout,omitempty"`
	Overtime *OvertimeDetails `json:"overtime,omitempty"`
}

type Alert struct {
	gorm.Model
	Type            AlertType     `json:"type" gorm:"not null;index"`
	Priority        AlertPriority `json:"priority" gorm:"not null;index"`
	Message         string        `json:"message"`
	Timestamp       time.Time     `json:"timestamp" gorm:"index"`
	SupervisorID    uint          `json:"supervisor_id"`
	WorkerID        *uint         `json:"worker_id,omitempty"`
	ProjectID       *uint         `json:"project_id,omitempty" gorm:"index"`
	IsRead          bool          `json:"is_read" gorm:"default:false;index"`
	AcknowledgedAt  *time.Time    `json:"acknowledged_at,omitempty"`
	AcknowledgedBy  string        `json:"acknowledged_by,omitempty"`
	Identifier      string        `json:"alert_identifier" gorm:"column:alert_identifier;index"`
	Details         AlertDetails  `json:"details" gorm:"serializer:json"`
	EscalationLevel int           `json:"escalation_level" gorm:"default:0"`
	LastEscalatedAt *time.Time    `json:"last_escalated_at,omitempty"`
	ExpiresAt       *time.Time    `json:"expires_at,omitempty"`
}

// DedupIdentifier derives the deduplication key for an alert from its
// detail variant, the involved entities, and the calendar day. Alerts
// sharing a key on the same day are duplicates of one another.
func DedupIdentifier(details AlertDetails, workerID, projectID uint, day string) string {
	var prefix string
	switch {
	case details.Geofence != nil:
		prefix = "geofence"
	case details.Absence != nil:
		prefix = "absence"
	case details.Checkout != nil:
		prefix = "missing_checkout"
	case details.Overtime != nil:
		prefix = "overtime"
	default:
		prefix = "alert"
	}
	return fmt.Sprintf("%s_%d_%d_%s", prefix, workerID, projectID, day)
}
