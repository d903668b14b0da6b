package models

import (
	"time"

	"gorm.io/gorm"
)

type EscalationReason string

const (
	EscalationReasonTimeout          EscalationReason = "timeout"
	EscalationReasonManual           EscalationReason = "manual"
	EscalationReasonCriticalPriority EscalationReason = "critical_priority"
	EscalationReasonSystemRule       EscalationReason = "system_rule"
)

type EscalationResolution string

const (
	ResolutionPending   EscalationResolution = "PENDING"
	ResolutionResolved  EscalationResolution = "RESOLVED"
	ResolutionForwarded EscalationResolution = "FORWARDED"
	ResolutionDismissed EscalationResolution = "DISMISSED"
)

// NotificationRecord is one delivery attempt for an escalation. The
// slice on EscalationEvent is append-only.
type NotificationRecord struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Method    string    `json:"method"`
	SentAt    time.Time `json:"sent_at"`
	Status    string    `json:"status"`
}

type EscalationEvent struct {
	gorm.Model
	AlertID         uint                 `json:"alert_id" gorm:"not null;index"`
	EscalationLevel int                  `json:"escalation_level" gorm:"not null"`
	EscalatedTo     string               `json:"escalated_to"`
	EscalatedAt     time.Time            `json:"escalated_at"`
	Reason          EscalationReason     `json:"escalation_reason"`
	Acknowledged    bool                 `json:"acknowledged" gorm:"default:false"`
	AcknowledgedAt  *time.Time           `json:"acknowledged_at,omitempty"`
	AcknowledgedBy  string               `json:"acknowledged_by,omitempty"`
	Resolution      EscalationResolution `json:"resolution" gorm:"index"`
	Notifications   []NotificationRecord `json:"notifications_sent" gorm:"serializer:json"`
}
