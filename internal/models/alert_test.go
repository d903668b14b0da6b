package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupIdentifierPrefixes(t *testing.T) {
	day := "2026-03-04"

	tests := []struct {
		name    string
		details AlertDetails
		want    string
	}{
		{
			name:    "geofence",
			details: AlertDetails{Geofence: &GeofenceDetails{BreachKind: BreachCheckIn}},
			want:    "geofence_42_7_2026-03-04",
		},
		{
			name:    "absence",
			details: AlertDetails{Absence: &AbsenceDetails{Day: day}},
			want:    "absence_42_7_2026-03-04",
		},
		{
			name:    "missing checkout",
			details: AlertDetails{Checkout: &CheckoutDetails{CheckInAt: time.Now()}},
			want:    "missing_checkout_42_7_2026-03-04",
		},
		{
			name:    "overtime",
			details: AlertDetails{Overtime: &OvertimeDetails{OvertimeHours: 1.5}},
			want:    "overtime_42_7_2026-03-04",
		},
		{
			name:    "no variant",
			details: AlertDetails{},
			want:    "alert_42_7_2026-03-04",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupIdentifier(tt.details, 42, 7, day))
		})
	}
}

func TestDedupIdentifierSeparatesDays(t *testing.T) {
	details := AlertDetails{Absence: &AbsenceDetails{Day: "2026-03-04"}}

	today := DedupIdentifier(details, 42, 7, "2026-03-04")
	tomorrow := DedupIdentifier(details, 42, 7, "2026-03-05")
	assert.NotEqual(t, today, tomorrow)
}
