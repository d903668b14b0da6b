package models

import (
	"time"

	"gorm.io/gorm"
)

// DayFormat is the layout of calendar-day strings stored on assignment
// and attendance rows ("2006-01-02" in the engine's timezone).
const DayFormat = "2006-01-02"

// TaskAssignment puts a worker on a project for one calendar day.
type TaskAssignment struct {
	gorm.Model
	ProjectID uint   `json:"project_id" gorm:"not null;index:idx_assignment_project_day"`
	WorkerID  uint   `json:"worker_id" gorm:"not null;index"`
	Day       string `json:"day" gorm:"not null;index:idx_assignment_project_day"`
	TaskName  string `json:"task_name"`
}

// AttendanceRecord is one worker-day on a project. A record with a
// check-in and no check-out is an open session.
type AttendanceRecord struct {
	gorm.Model
	ProjectID   uint       `json:"project_id" gorm:"not null;index:idx_attendance_project_day"`
	WorkerID    uint       `json:"worker_id" gorm:"not null;index"`
	Day         string     `json:"day" gorm:"not null;index:idx_attendance_project_day"`
	CheckInAt   *time.Time `json:"check_in_at,omitempty"`
	CheckInLat  float64    `json:"check_in_lat"`
	CheckInLon  float64    `json:"check_in_lon"`
	CheckOutAt  *time.Time `json:"check_out_at,omitempty"`
	CheckOutLat float64    `json:"check_out_lat"`
	CheckOutLon float64    `json:"check_out_lon"`
}

// GeofenceEvent is recorded when a check-in or check-out location
// falls outside the project geofence.
type GeofenceEvent struct {
	gorm.Model
	ProjectID      uint       `json:"project_id" gorm:"not null;index"`
	WorkerID       uint       `json:"worker_id" gorm:"not null"`
	Kind           BreachKind `json:"kind"`
	At             time.Time  `json:"at" gorm:"index"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	DistanceMeters float64    `json:"distance_meters"`
}
