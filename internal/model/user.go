package model

import "time"

// User roles. Only ADMIN and CUSTODIAN (or superusers) may perform asset
// movements; the role gate lives in the request middleware.
const (
	RoleAdmin     = "ADMIN"
	RoleCustodian = "CUSTODIAN"
	RoleStaff     = "STAFF"
	RoleAuditor   = "AUDITOR"
)

// User is a reference record for principals. Account management is owned by
// an external identity service; this table exists so ledger rows and
// assignment checks have something to point at.
type User struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	Username    string    `json:"username" gorm:"type:varchar(150);unique;not null"`
	Email       string    `json:"email" gorm:"type:varchar(255)"`
	Role        string    `json:"role" gorm:"type:varchar(20);not null;default:'STAFF'"`
	IsSuperuser bool      `json:"is_superuser" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
