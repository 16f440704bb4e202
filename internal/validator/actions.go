// Package validator shape- and reference-checks transition requests before
// they reach the engine. Validators are read-only: they look up referenced
// entities but never mutate anything. Business-state preconditions (is the
// asset AVAILABLE, is it ASSIGNED) belong to the engine, not here.
package validator

import (
	"asset-service/internal/model"

	"gorm.io/gorm"
)

// CheckoutRequest is the payload for checking an asset out to a user
type CheckoutRequest struct {
	AssignedToID uint   `json:"assigned_to_id"`
	Remarks      string `json:"remarks"`
}

// Validate returns a field -> message map, empty when the request is valid
func (r *CheckoutRequest) Validate(db *gorm.DB) map[string]string {
	errs := make(map[string]string)
	if r.AssignedToID == 0 {
		errs["assigned_to_id"] = "This field is required."
		return errs
	}
	var count int64
	if err := db.Model(&model.User{}).Where("id = ?", r.AssignedToID).Count(&count).Error; err != nil || count == 0 {
		errs["assigned_to_id"] = "assigned_to user not found."
	}
	return errs
}

// ReturnRequest is the payload for returning an assigned asset
type ReturnRequest struct {
	ConditionOnReturn model.ReturnCondition `json:"condition_on_return"`
	ToLocationID      *uint                 `json:"to_location_id,omitempty"`
	Remarks           string                `json:"remarks"`
}

// Validate returns a field -> message map, empty when the request is valid
func (r *ReturnRequest) Validate(db *gorm.DB) map[string]string {
	errs := make(map[string]string)
	if r.ConditionOnReturn == "" {
		errs["condition_on_return"] = "This field is required."
	} else if !model.ValidCondition(r.ConditionOnReturn) {
		errs["condition_on_return"] = "\"" + string(r.ConditionOnReturn) + "\" is not a valid choice."
	}
	if r.ToLocationID != nil {
		var count int64
		if err := db.Model(&model.Location{}).Where("id = ?", *r.ToLocationID).Count(&count).Error; err != nil || count == 0 {
			errs["to_location_id"] = "to_location not found."
		}
	}
	return errs
}

// TransferRequest is the payload for moving an asset between locations
type TransferRequest struct {
	ToLocationID uint   `json:"to_location_id"`
	Remarks      string `json:"remarks"`
}

// Validate returns a field -> message map, empty when the request is valid
func (r *TransferRequest) Validate(db *gorm.DB) map[string]string {
	errs := make(map[string]string)
	if r.ToLocationID == 0 {
		errs["to_location_id"] = "This field is required."
		return errs
	}
	var count int64
	if err := db.Model(&model.Location{}).Where("id = ?", r.ToLocationID).Count(&count).Error; err != nil || count == 0 {
		errs["to_location_id"] = "to_location not found."
	}
	return errs
}
