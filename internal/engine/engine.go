// Package engine implements the asset transition engine: the single
// authority allowed to change an asset's status or current location. Every
// operation runs as one database transaction that re-checks the
// precondition against the committed row, applies the state change and
// appends exactly one ledger entry, so the cached asset state and the
// ledger can never diverge.
package engine

import (
	"context"
	"errors"
	"fmt"

	"asset-service/internal/model"
	"asset-service/internal/validator"

	"gorm.io/gorm"
)

// Engine applies checkout/return/transfer/retire/repair operations
type Engine struct {
	db *gorm.DB
}

// New creates a transition engine on top of the given database
func New(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Result is the outcome of a successful transition
type Result struct {
	Message string            `json:"detail"`
	Status  model.AssetStatus `json:"status"`
}

// Checkout assigns an AVAILABLE asset to a user. The asset does not move:
// the ledger entry records from = to = current location.
func (e *Engine) Checkout(ctx context.Context, assetID, actorID uint, req validator.CheckoutRequest) (*Result, error) {
	var result *Result

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Compare-and-set on the status column. Of two racing checkouts
		// only one matches the AVAILABLE predicate against the committed
		// row; the other falls through to the re-read below.
		res := tx.Model(&model.Asset{}).
			Where("id = ? AND status = ?", assetID, model.StatusAvailable).
			Update("status", model.StatusAssigned)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := assetExists(tx, assetID); err != nil {
				return err
			}
			return invalidState("Asset must be AVAILABLE to checkout.")
		}

		// Re-check the assignee inside the transactional unit
		var count int64
		if err := tx.Model(&model.User{}).Where("id = ?", req.AssignedToID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound("assigned_to user not found.")
		}

		var asset model.Asset
		if err := tx.First(&asset, assetID).Error; err != nil {
			return err
		}

		loc := asset.CurrentLocationID
		assignedTo := req.AssignedToID
		entry := model.Transaction{
			Type:           model.TypeCheckout,
			AssetID:        asset.ID,
			FromLocationID: &loc,
			ToLocationID:   &loc,
			AssignedToID:   &assignedTo,
			PerformedByID:  actorID,
			Remarks:        req.Remarks,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &Result{Message: "Checked out successfully.", Status: model.StatusAssigned}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Return takes an ASSIGNED asset back. Condition GOOD makes it AVAILABLE
// again; DAMAGED or MISSING_PARTS sends it to REPAIR. An optional
// destination moves the asset; otherwise it stays where it is.
func (e *Engine) Return(ctx context.Context, assetID, actorID uint, req validator.ReturnRequest) (*Result, error) {
	newStatus := model.StatusAvailable
	if req.ConditionOnReturn == model.ConditionDamaged || req.ConditionOnReturn == model.ConditionMissingParts {
		newStatus = model.StatusRepair
	}

	var result *Result

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Asset{}).
			Where("id = ? AND status = ?", assetID, model.StatusAssigned).
			Update("status", newStatus)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := assetExists(tx, assetID); err != nil {
				return err
			}
			return invalidState("Asset must be ASSIGNED to return.")
		}

		// The row is locked by the update above; current_location_id is
		// still the pre-return location.
		var asset model.Asset
		if err := tx.First(&asset, assetID).Error; err != nil {
			return err
		}

		from := asset.CurrentLocationID
		dest := from
		if req.ToLocationID != nil {
			var count int64
			if err := tx.Model(&model.Location{}).Where("id = ?", *req.ToLocationID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return notFound("to_location not found.")
			}
			dest = *req.ToLocationID
			if dest != from {
				if err := tx.Model(&model.Asset{}).Where("id = ?", assetID).
					Update("current_location_id", dest).Error; err != nil {
					return err
				}
			}
		}

		cond := req.ConditionOnReturn
		entry := model.Transaction{
			Type:              model.TypeReturn,
			AssetID:           asset.ID,
			FromLocationID:    &from,
			ToLocationID:      &dest,
			PerformedByID:     actorID,
			ConditionOnReturn: &cond,
			Remarks:           req.Remarks,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &Result{
			Message: fmt.Sprintf("Returned successfully. New status: %s", newStatus),
			Status:  newStatus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Transfer moves an asset to another location. Any status but RETIRED may
// move; transferring to the asset's current location is rejected rather
// than silently succeeding. Status is unchanged by a transfer.
func (e *Engine) Transfer(ctx context.Context, assetID, actorID uint, req validator.TransferRequest) (*Result, error) {
	var result *Result

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset model.Asset
		if err := tx.First(&asset, assetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("Asset not found.")
			}
			return err
		}
		if asset.Status == model.StatusRetired {
			return invalidState("Cannot transfer a RETIRED asset.")
		}

		var count int64
		if err := tx.Model(&model.Location{}).Where("id = ?", req.ToLocationID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound("to_location not found.")
		}
		if req.ToLocationID == asset.CurrentLocationID {
			return invalidRequest("Asset is already in that location.")
		}

		// CAS on the location read above so a racing transition cannot
		// slip between the read and the write.
		from := asset.CurrentLocationID
		res := tx.Model(&model.Asset{}).
			Where("id = ? AND status <> ? AND current_location_id = ?", assetID, model.StatusRetired, from).
			Update("current_location_id", req.ToLocationID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("asset %d changed concurrently, retry the transfer", assetID)
		}

		to := req.ToLocationID
		entry := model.Transaction{
			Type:           model.TypeTransfer,
			AssetID:        asset.ID,
			FromLocationID: &from,
			ToLocationID:   &to,
			PerformedByID:  actorID,
			Remarks:        req.Remarks,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &Result{Message: "Transferred successfully.", Status: asset.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Retire permanently takes an asset out of circulation. Assets in hand must
// be returned first; RETIRED is terminal.
func (e *Engine) Retire(ctx context.Context, assetID, actorID uint, remarks string) (*Result, error) {
	var result *Result

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Asset{}).
			Where("id = ? AND status NOT IN ?", assetID, []model.AssetStatus{model.StatusAssigned, model.StatusRetired}).
			Update("status", model.StatusRetired)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var asset model.Asset
			if err := tx.First(&asset, assetID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("Asset not found.")
				}
				return err
			}
			if asset.Status == model.StatusRetired {
				return invalidState("Asset is already RETIRED.")
			}
			return invalidState("Asset must be returned before it can be retired.")
		}

		var asset model.Asset
		if err := tx.First(&asset, assetID).Error; err != nil {
			return err
		}

		loc := asset.CurrentLocationID
		entry := model.Transaction{
			Type:           model.TypeRetire,
			AssetID:        asset.ID,
			FromLocationID: &loc,
			ToLocationID:   &loc,
			PerformedByID:  actorID,
			Remarks:        remarks,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &Result{Message: "Retired successfully.", Status: model.StatusRetired}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkRepaired puts an asset under REPAIR back into circulation
func (e *Engine) MarkRepaired(ctx context.Context, assetID, actorID uint, remarks string) (*Result, error) {
	var result *Result

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Asset{}).
			Where("id = ? AND status = ?", assetID, model.StatusRepair).
			Update("status", model.StatusAvailable)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := assetExists(tx, assetID); err != nil {
				return err
			}
			return invalidState("Asset must be under REPAIR to mark repaired.")
		}

		var asset model.Asset
		if err := tx.First(&asset, assetID).Error; err != nil {
			return err
		}

		loc := asset.CurrentLocationID
		entry := model.Transaction{
			Type:           model.TypeRepair,
			AssetID:        asset.ID,
			FromLocationID: &loc,
			ToLocationID:   &loc,
			PerformedByID:  actorID,
			Remarks:        remarks,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		result = &Result{Message: "Repair completed successfully.", Status: model.StatusAvailable}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// assetExists distinguishes NotFound from a failed precondition after a
// compare-and-set matched no rows
func assetExists(tx *gorm.DB, assetID uint) error {
	var count int64
	if err := tx.Model(&model.Asset{}).Where("id = ?", assetID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound("Asset not found.")
	}
	return nil
}
