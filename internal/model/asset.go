package model

import (
	"time"

	"gorm.io/gorm"
)

// AssetStatus is the lifecycle status of an asset
type AssetStatus string

const (
	StatusAvailable AssetStatus = "AVAILABLE"
	StatusAssigned  AssetStatus = "ASSIGNED"
	StatusRepair    AssetStatus = "REPAIR"
	StatusLost      AssetStatus = "LOST"
	StatusRetired   AssetStatus = "RETIRED"
)

// ValidStatus reports whether s is one of the known asset statuses
func ValidStatus(s AssetStatus) bool {
	switch s {
	case StatusAvailable, StatusAssigned, StatusRepair, StatusLost, StatusRetired:
		return true
	}
	return false
}

// Asset represents a tracked physical item. Status and current location are
// mutated only by the transition engine; every change is paired with a
// Transaction row in the same database transaction.
type Asset struct {
	ID                uint           `json:"id" gorm:"primarykey"`
	AssetTag          string         `json:"asset_tag" gorm:"type:varchar(50);unique;not null"`
	Name              string         `json:"name" gorm:"type:varchar(200);not null"`
	CategoryID        uint           `json:"category_id" gorm:"not null"`
	SerialNo          *string        `json:"serial_no,omitempty" gorm:"type:varchar(120);unique"`
	Brand             string         `json:"brand" gorm:"type:varchar(120)"`
	Model             string         `json:"model" gorm:"type:varchar(120)"`
	UnitCost          float64        `json:"unit_cost" gorm:"type:numeric(12,2);default:0"`
	PurchaseDate      *time.Time     `json:"purchase_date,omitempty"`
	WarrantyEnd       *time.Time     `json:"warranty_end,omitempty"`
	Status            AssetStatus    `json:"status" gorm:"type:varchar(20);not null;default:'AVAILABLE';index"`
	CurrentLocationID uint           `json:"current_location_id" gorm:"not null"`
	Notes             string         `json:"notes" gorm:"type:text"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
