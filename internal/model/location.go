package model

import (
	"time"

	"gorm.io/gorm"
)

// Location represents a physical place assets live in. Referenced by assets
// and by ledger entries; deletion is blocked while referenced.
type Location struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	Name        string         `json:"name" gorm:"type:varchar(120);not null;unique"`
	Description string         `json:"description" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
