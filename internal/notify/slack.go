package notify

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/siteeye/internal/models"
	"github.com/slack-go/slack"
)

type SlackNotifier struct {
	client  *slack.Client
	channel string
}

func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

func (n *SlackNotifier) Method() string { return "slack" }

func (n *SlackNotifier) Notify(alert *models.Alert, event *models.EscalationEvent) (models.NotificationRecord, error) {
	attachment := slack.Attachment{
		Color: priorityColor(alert.Priority),
		Title: fmt.Sprintf("Escalation L%d: %s", event.EscalationLevel, alert.Type),
		Text:  alert.Message,
		Fields: []slack.AttachmentField{
			{
				Title: "Priority",
				Value: string(alert.Priority),
				Short: true,
			},
			{
				Title: "Escalated To",
				Value: event.EscalatedTo,
				Short: true,
			},
			{
				Title: "Alert ID",
				Value: strconv.FormatUint(uint64(alert.ID), 10),
				Short: true,
			},
			{
				Title: "Raised",
				Value: alert.Timestamp.Format(time.RFC3339),
				Short: true,
			},
		},
		Footer: "SiteEye Escalation",
		Ts:     json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
	}

	_, _, err := n.client.PostMessage(
		n.channel,
		slack.MsgOptionAttachments(attachment),
	)
	if err != nil {
		return newRecord(n.Method(), n.channel, err), fmt.Errorf("failed to send slack escalation: %w", err)
	}
	return newRecord(n.Method(), n.channel, nil), nil
}
