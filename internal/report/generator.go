// Package report builds daily operational summaries from the alert
// and attendance records.
package report

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/siteeye/internal/models"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

type Generator struct {
	db  *gorm.DB
	loc *time.Location
}

func NewGenerator(db *gorm.DB, loc *time.Location) *Generator {
	return &Generator{db: db, loc: loc}
}

type DailySummary struct {
	Day                    string `json:"day"`
	TotalAlerts            int64  `json:"total_alerts"`
	CriticalAlerts         int64  `json:"critical_alerts"`
	WarningAlerts          int64  `json:"warning_alerts"`
	InfoAlerts             int64  `json:"info_alerts"`
	UnacknowledgedCritical int64  `json:"unacknowledged_critical"`
	Escalations            int64  `json:"escalations"`
	GeofenceBreaches       int64  `json:"geofence_breaches"`
	CheckIns               int64  `json:"check_ins"`
}

// DailySummary aggregates one calendar day of alert and attendance
// activity.
func (g *Generator) DailySummary(day time.Time) (*DailySummary, error) {
	day = day.In(g.loc)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, g.loc)
	to := from.AddDate(0, 0, 1)

	summary := &DailySummary{Day: from.Format(models.DayFormat)}

	alertCount := func(query *gorm.DB) (int64, error) {
		var count int64
		err := query.Where("timestamp >= ? AND timestamp < ?", from, to).Count(&count).Error
		return count, err
	}

	var err error
	if summary.TotalAlerts, err = alertCount(g.db.Model(&models.Alert{})); err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	if summary.CriticalAlerts, err = alertCount(g.db.Model(&models.Alert{}).Where("priority = ?", models.AlertPriorityCritical)); err != nil {
		return nil, fmt.Errorf("failed to count critical alerts: %w", err)
	}
	if summary.WarningAlerts, err = alertCount(g.db.Model(&models.Alert{}).Where("priority = ?", models.AlertPriorityWarning)); err != nil {
		return nil, fmt.Errorf("failed to count warning alerts: %w", err)
	}
	if summary.InfoAlerts, err = alertCount(g.db.Model(&models.Alert{}).Where("priority = ?", models.AlertPriorityInfo)); err != nil {
		return nil, fmt.Errorf("failed to count info alerts: %w", err)
	}
	if summary.UnacknowledgedCritical, err = alertCount(
		g.db.Model(&models.Alert{}).Where("priority = ? AND is_read = ?", models.AlertPriorityCritical, false),
	); err != nil {
		return nil, fmt.Errorf("failed to count unacknowledged critical alerts: %w", err)
	}

	if err := g.db.Model(&models.EscalationEvent{}).
		Where("escalated_at >= ? AND escalated_at < ?", from, to).
		Count(&summary.Escalations).Error; err != nil {
		return nil, fmt.Errorf("failed to count escalations: %w", err)
	}

	if err := g.db.Model(&models.GeofenceEvent{}).
		Where("at >= ? AND at < ?", from, to).
		Count(&summary.GeofenceBreaches).Error; err != nil {
		return nil, fmt.Errorf("failed to count geofence breaches: %w", err)
	}

	if err := g.db.Model(&models.AttendanceRecord{}).
		Where("day = ? AND check_in_at IS NOT NULL", summary.Day).
		Count(&summary.CheckIns).Error; err != nil {
		return nil, fmt.Errorf("failed to count check-ins: %w", err)
	}

	return summary, nil
}

var emailTemplate = template.Must(template.New("daily").Parse(`SiteEye daily summary for {{.Day}}

Alerts raised: {{.TotalAlerts}} ({{.CriticalAlerts}} critical, {{.WarningAlerts}} warning, {{.InfoAlerts}} info)
Unacknowledged critical: {{.UnacknowledgedCritical}}
Escalations: {{.Escalations}}
Geofence breaches: {{.GeofenceBreaches}}
Check-ins: {{.CheckIns}}
`))

// Email renders the summary as a plain-text message ready to send.
func (g *Generator) Email(summary *DailySummary, from string, to []string) (*gomail.Message, error) {
	var buf bytes.Buffer
	if err := emailTemplate.Execute(&buf, summary); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", fmt.Sprintf("SiteEye Daily Report %s", summary.Day))
	m.SetBody("text/plain", buf.String())
	return m, nil
}
