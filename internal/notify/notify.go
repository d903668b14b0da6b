// Package notify delivers escalation notices. The engine depends only
// on the Notifier interface; concrete transports are adapters wired in
// by the host process.
package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/siteeye/internal/models"
)

type Notifier interface {
	// Notify delivers an escalation notice and reports the attempt.
	// The returned record is valid even when delivery failed.
	Notify(alert *models.Alert, event *models.EscalationEvent) (models.NotificationRecord, error)

	// Method returns the transport name for logging and the delivery
	// log.
	Method() string
}

func newRecord(method, recipient string, err error) models.NotificationRecord {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	return models.NotificationRecord{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Method:    method,
		SentAt:    time.Now(),
		Status:    status,
	}
}

func priorityColor(priority models.AlertPriority) string {
	switch priority {
	case models.AlertPriorityCritical:
		return "#ff0000"
	case models.AlertPriorityWarning:
		return "#ffcc00"
	case models.AlertPriorityInfo:
		return "#36a64f"
	default:
		return "#808080"
	}
}
