package models

import (
	"time"

	"gorm.io/gorm"
)

//City is the top of the lighting topology and owns a set of areas
type City struct {
	gorm.Model
	Name  string `gorm:"unique;not null"`
	Areas []Area `gorm:"constraint:OnDelete:CASCADE;"`
}

//Area is an administrative sub-region within a city that holds lighting units
type Area struct {
	gorm.Model
	CityID        uint   `gorm:"not null;index"`
	Name          string `gorm:"unique;not null"`
	Description   string
	LightingUnits []LightingUnit `gorm:"constraint:OnDelete:CASCADE;"`
}

//LightingUnit is a single street lighting fixture with a power rating and type
type LightingUnit struct {
	gorm.Model
	AreaID          uint `gorm:"not null;index"`
	UnitType        string
	Location        string
	PowerWatt       int
	Consumption     []EnergyConsumption `gorm:"constraint:OnDelete:CASCADE;"`
	Recommendations []Recommendation    `gorm:"constraint:OnDelete:CASCADE;"`
}

//EnergyConsumption stores one timestamped consumption measurement of a lighting unit.
//Rows are append only.
type EnergyConsumption struct {
	ID              uint      `gorm:"primaryKey"`
	LightingUnitID  uint      `gorm:"not null;index:consumption_unit_time,priority:1"`
	Timestamp       time.Time `gorm:"not null;index:consumption_unit_time,priority:2"`
	ConsumptionKWh  float64   `gorm:"column:consumption_kwh;not null"`
	StatusRecording string    `gorm:"size:50"`
}

//TableName keeps the table name used by the dashboard frontend tooling
func (EnergyConsumption) TableName() string {
	return "energy_consumption_data"
}

//Recommendation is an advisory record for an area and/or a single lighting unit.
//At most one row exists per (area, title).
type Recommendation struct {
	gorm.Model
	AreaID               *uint `gorm:"uniqueIndex:recommendation_area_title"`
	Area                 *Area `gorm:"constraint:OnDelete:CASCADE;"`
	LightingUnitID       *uint
	DateGenerated        time.Time `gorm:"not null"`
	Title                string    `gorm:"size:255;not null;uniqueIndex:recommendation_area_title"`
	Description          string    `gorm:"not null"`
	PotentialSavingsKWh  *float64  `gorm:"column:potential_savings_kwh"`
	PotentialSavingsEuro *float64  `gorm:"column:potential_savings_euro"`
	ActionStatus         string    `gorm:"size:50"`
}
