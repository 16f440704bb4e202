package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// TransactionType is the kind of state-changing event recorded in the ledger
type TransactionType string

const (
	TypeCheckout TransactionType = "CHECKOUT"
	TypeReturn   TransactionType = "RETURN"
	TypeTransfer TransactionType = "TRANSFER"
	TypeRepair   TransactionType = "REPAIR"
	TypeRetire   TransactionType = "RETIRE"
)

// ReturnCondition is the condition an asset comes back in
type ReturnCondition string

const (
	ConditionGood         ReturnCondition = "GOOD"
	ConditionDamaged      ReturnCondition = "DAMAGED"
	ConditionMissingParts ReturnCondition = "MISSING_PARTS"
)

// ValidCondition reports whether c is one of the known return conditions
func ValidCondition(c ReturnCondition) bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionMissingParts:
		return true
	}
	return false
}

// Transaction is one immutable ledger entry: the audit record of a single
// transition. Rows are append-only; the hooks below reject any update or
// delete that reaches GORM.
type Transaction struct {
	ID                uint             `json:"id" gorm:"primarykey"`
	Type              TransactionType  `json:"type" gorm:"type:varchar(20);not null;index"`
	AssetID           uint             `json:"asset_id" gorm:"not null;index"`
	FromLocationID    *uint            `json:"from_location_id,omitempty"`
	ToLocationID      *uint            `json:"to_location_id,omitempty"`
	AssignedToID      *uint            `json:"assigned_to_id,omitempty"`
	PerformedByID     uint             `json:"performed_by_id" gorm:"not null"`
	ConditionOnReturn *ReturnCondition `json:"condition_on_return,omitempty" gorm:"type:varchar(20)"`
	Remarks           string           `json:"remarks" gorm:"type:text"`
	CreatedAt         time.Time        `json:"created_at" gorm:"index"`
}

// ErrImmutable is returned when something attempts to mutate a ledger row
var ErrImmutable = errors.New("transactions are append-only")

// BeforeUpdate blocks updates to ledger rows
func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutable
}

// BeforeDelete blocks deletes of ledger rows
func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutable
}
