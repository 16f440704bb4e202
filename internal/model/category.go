package model

import (
	"time"

	"gorm.io/gorm"
)

// Category represents an asset category (e.g. laptop, monitor).
// Deletion is blocked while any asset references it.
type Category struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	Name      string         `json:"name" gorm:"type:varchar(120);not null;unique"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
