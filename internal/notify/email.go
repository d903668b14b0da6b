package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/siteeye/internal/models"
	"gopkg.in/gomail.v2"
)

type EmailNotifier struct {
	dialer    *gomail.Dialer
	from      string
	receivers []string
}

func NewEmailNotifier(smtpHost string, smtpPort int, from, password string, receivers []string) *EmailNotifier {
	return &EmailNotifier{
		dialer:    gomail.NewDialer(smtpHost, smtpPort, from, password),
		from:      from,
		receivers: receivers,
	}
}

func (n *EmailNotifier) Method() string { return "email" }

func (n *EmailNotifier) Notify(alert *models.Alert, event *models.EscalationEvent) (models.NotificationRecord, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.receivers...)
	m.SetHeader("Subject", fmt.Sprintf("SiteEye Escalation L%d: %s", event.EscalationLevel, alert.Type))

	body := fmt.Sprintf(`Alert #%d escalated to level %d.

Priority: %s
Escalated To: %s
Reason: %s
Raised: %s

%s
`,
		alert.ID, event.EscalationLevel,
		alert.Priority,
		event.EscalatedTo,
		event.Reason,
		alert.Timestamp.Format(time.RFC3339),
		alert.Message,
	)
	m.SetBody("text/plain", body)

	recipient := strings.Join(n.receivers, ",")
	if err := n.dialer.DialAndSend(m); err != nil {
		return newRecord(n.Method(), recipient, err), fmt.Errorf("failed to send escalation email: %w", err)
	}
	return newRecord(n.Method(), recipient, nil), nil
}
