package models

import (
	"gorm.io/gorm"
)

// Project is a work site with a circular geofence around its location.
type Project struct {
	gorm.Model
	Name         string  `json:"name" gorm:"uniqueIndex;not null"`
	Address      string  `json:"address"`
	SupervisorID uint    `json:"supervisor_id" gorm:"not null"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	IsActive     bool    `json:"is_active" gorm:"default:true"`
}

type Employee struct {
	gorm.Model
	Name         string `json:"name" gorm:"not null"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	SupervisorID uint   `json:"supervisor_id"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`
}
