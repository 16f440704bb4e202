package handler

import (
	"net/http"
	"strconv"
	"time"

	"asset-service/internal/engine"
	"asset-service/internal/middleware"
	"asset-service/internal/model"
	"asset-service/internal/validator"
	"asset-service/pkg/database"
	"asset-service/pkg/logger"
	"asset-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AssetRequest defines the structure for asset creation/update requests.
// Status and current location are set on creation only; afterwards they are
// owned by the transition engine and ignored on update.
type AssetRequest struct {
	AssetTag          string            `json:"asset_tag"`
	Name              string            `json:"name"`
	CategoryID        uint              `json:"category_id"`
	SerialNo          *string           `json:"serial_no"`
	Brand             string            `json:"brand"`
	Model             string            `json:"model"`
	UnitCost          float64           `json:"unit_cost"`
	PurchaseDate      *time.Time        `json:"purchase_date"`
	WarrantyEnd       *time.Time        `json:"warranty_end"`
	Status            model.AssetStatus `json:"status"`
	CurrentLocationID uint              `json:"current_location_id"`
	Notes             string            `json:"notes"`
}

// ListAssets retrieves assets, newest first, optionally filtered by tag or
// status
func ListAssets(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB().Model(&model.Asset{})
	if tag := c.QueryParam("tag"); tag != "" {
		query = query.Where("asset_tag = ?", tag)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var assets []model.Asset
	result := query.Order("created_at DESC").Find(&assets)
	if result.Error != nil {
		log.Error("Failed to retrieve assets", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve assets",
		})
	}

	return c.JSON(http.StatusOK, assets)
}

// GetAsset retrieves a specific asset by ID
func GetAsset(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var asset model.Asset
	result := database.GetDB().Where("id = ?", id).First(&asset)
	if result.Error != nil {
		log.Warn("Asset not found", zap.String("asset_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Asset not found",
		})
	}

	return c.JSON(http.StatusOK, asset)
}

// CreateAsset registers a new asset in the inventory
func CreateAsset(c echo.Context) error {
	log := logger.FromContext(c)

	var req AssetRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	errs := make(map[string]string)
	if req.AssetTag == "" {
		errs["asset_tag"] = "This field is required."
	}
	if req.Name == "" {
		errs["name"] = "This field is required."
	}
	if req.CategoryID == 0 {
		errs["category_id"] = "This field is required."
	}
	if req.CurrentLocationID == 0 {
		errs["current_location_id"] = "This field is required."
	}
	if req.Status != "" && !model.ValidStatus(req.Status) {
		errs["status"] = "\"" + string(req.Status) + "\" is not a valid choice."
	}
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": errs})
	}

	db := database.GetDB()

	// Referenced entities must exist
	var count int64
	db.Model(&model.Category{}).Where("id = ?", req.CategoryID).Count(&count)
	if count == 0 {
		errs["category_id"] = "category not found."
	}
	db.Model(&model.Location{}).Where("id = ?", req.CurrentLocationID).Count(&count)
	if count == 0 {
		errs["current_location_id"] = "location not found."
	}
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": errs})
	}

	// Asset tags are unique
	db.Model(&model.Asset{}).Where("asset_tag = ?", req.AssetTag).Count(&count)
	if count > 0 {
		log.Warn("Asset with this tag already exists", zap.String("asset_tag", req.AssetTag))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Asset with this tag already exists",
		})
	}

	// Serial numbers are unique when provided
	if req.SerialNo != nil && *req.SerialNo != "" {
		db.Model(&model.Asset{}).Where("serial_no = ?", *req.SerialNo).Count(&count)
		if count > 0 {
			log.Warn("Asset with this serial number already exists", zap.String("serial_no", *req.SerialNo))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Asset with this serial number already exists",
			})
		}
	}

	status := req.Status
	if status == "" {
		status = model.StatusAvailable
	}

	asset := model.Asset{
		AssetTag:          req.AssetTag,
		Name:              req.Name,
		CategoryID:        req.CategoryID,
		SerialNo:          req.SerialNo,
		Brand:             req.Brand,
		Model:             req.Model,
		UnitCost:          req.UnitCost,
		PurchaseDate:      req.PurchaseDate,
		WarrantyEnd:       req.WarrantyEnd,
		Status:            status,
		CurrentLocationID: req.CurrentLocationID,
		Notes:             req.Notes,
	}

	result := db.Create(&asset)
	if result.Error != nil {
		log.Error("Failed to create asset", zap.String("asset_tag", req.AssetTag), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create asset",
		})
	}

	prometheus.RecordAssetOperation("create")
	log.Info("Asset created successfully",
		zap.String("asset_id", strconv.FormatUint(uint64(asset.ID), 10)),
		zap.String("asset_tag", asset.AssetTag),
		zap.String("status", string(asset.Status)))
	return c.JSON(http.StatusCreated, asset)
}

// UpdateAsset updates an asset's descriptive fields. The asset tag is
// immutable and status/current_location belong to the transition engine,
// so all three are left untouched here.
func UpdateAsset(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req AssetRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("asset_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	db := database.GetDB()

	var asset model.Asset
	result := db.Where("id = ?", id).First(&asset)
	if result.Error != nil {
		log.Warn("Asset not found", zap.String("asset_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Asset not found",
		})
	}

	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"errors": map[string]string{"name": "This field is required."},
		})
	}

	if req.CategoryID != 0 && req.CategoryID != asset.CategoryID {
		var count int64
		db.Model(&model.Category{}).Where("id = ?", req.CategoryID).Count(&count)
		if count == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"errors": map[string]string{"category_id": "category not found."},
			})
		}
		asset.CategoryID = req.CategoryID
	}

	if req.SerialNo != nil && *req.SerialNo != "" {
		var count int64
		db.Model(&model.Asset{}).Where("serial_no = ? AND id != ?", *req.SerialNo, id).Count(&count)
		if count > 0 {
			log.Warn("Asset with this serial number already exists", zap.String("serial_no", *req.SerialNo))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Asset with this serial number already exists",
			})
		}
		asset.SerialNo = req.SerialNo
	}

	asset.Name = req.Name
	asset.Brand = req.Brand
	asset.Model = req.Model
	asset.UnitCost = req.UnitCost
	asset.PurchaseDate = req.PurchaseDate
	asset.WarrantyEnd = req.WarrantyEnd
	asset.Notes = req.Notes

	result = db.Save(&asset)
	if result.Error != nil {
		log.Error("Failed to update asset", zap.String("asset_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update asset",
		})
	}

	prometheus.RecordAssetOperation("update")
	log.Info("Asset updated successfully", zap.String("asset_id", id))
	return c.JSON(http.StatusOK, asset)
}

// DeleteAsset soft-deletes an asset. Assets are never hard-deleted; the
// ledger keeps pointing at the row.
func DeleteAsset(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var asset model.Asset
	preResult := database.GetDB().Where("id = ?", id).First(&asset)
	if preResult.Error != nil {
		log.Warn("Asset not found", zap.String("asset_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Asset not found",
		})
	}

	result := database.GetDB().Delete(&asset)
	if result.Error != nil {
		log.Error("Failed to delete asset", zap.String("asset_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete asset",
		})
	}

	prometheus.RecordAssetOperation("delete")
	log.Info("Asset deleted successfully", zap.String("asset_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Asset deleted successfully",
	})
}

// CheckoutAsset handles POST /api/assets/:id/checkout
func CheckoutAsset(c echo.Context) error {
	log := logger.FromContext(c)

	assetID, actorID, err := transitionParams(c)
	if err != nil {
		return err
	}

	var req validator.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if errs := req.Validate(database.GetDB()); len(errs) > 0 {
		prometheus.RecordTransition(string(model.TypeCheckout), "rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": errs})
	}

	eng := engine.New(database.GetDB())
	result, err := eng.Checkout(c.Request().Context(), assetID, actorID, req)
	if err != nil {
		return transitionError(c, model.TypeCheckout, err)
	}

	prometheus.RecordTransition(string(model.TypeCheckout), "success")
	prometheus.RecordLedgerEntry(string(model.TypeCheckout))
	log.Info("Asset checked out",
		zap.Uint("asset_id", assetID),
		zap.Uint("assigned_to", req.AssignedToID),
		zap.Uint("performed_by", actorID))
	return c.JSON(http.StatusOK, result)
}

// ReturnAsset handles POST /api/assets/:id/return
func ReturnAsset(c echo.Context) error {
	log := logger.FromContext(c)

	assetID, actorID, err := transitionParams(c)
	if err != nil {
		return err
	}

	var req validator.ReturnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if errs := req.Validate(database.GetDB()); len(errs) > 0 {
		prometheus.RecordTransition(string(model.TypeReturn), "rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": errs})
	}

	eng := engine.New(database.GetDB())
	result, err := eng.Return(c.Request().Context(), assetID, actorID, req)
	if err != nil {
		return transitionError(c, model.TypeReturn, err)
	}

	prometheus.RecordTransition(string(model.TypeReturn), "success")
	prometheus.RecordLedgerEntry(string(model.TypeReturn))
	log.Info("Asset returned",
		zap.Uint("asset_id", assetID),
		zap.String("condition", string(req.ConditionOnReturn)),
		zap.String("new_status", string(result.Status)),
		zap.Uint("performed_by", actorID))
	return c.JSON(http.StatusOK, result)
}

// TransferAsset handles POST /api/assets/:id/transfer
func TransferAsset(c echo.Context) error {
	log := logger.FromContext(c)

	assetID, actorID, err := transitionParams(c)
	if err != nil {
		return err
	}

	var req validator.TransferRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if errs := req.Validate(database.GetDB()); len(errs) > 0 {
		prometheus.RecordTransition(string(model.TypeTransfer), "rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": errs})
	}

	eng := engine.New(database.GetDB())
	result, err := eng.Transfer(c.Request().Context(), assetID, actorID, req)
	if err != nil {
		return transitionError(c, model.TypeTransfer, err)
	}

	prometheus.RecordTransition(string(model.TypeTransfer), "success")
	prometheus.RecordLedgerEntry(string(model.TypeTransfer))
	log.Info("Asset transferred",
		zap.Uint("asset_id", assetID),
		zap.Uint("to_location", req.ToLocationID),
		zap.Uint("performed_by", actorID))
	return c.JSON(http.StatusOK, result)
}

// RemarksRequest carries the optional remarks for retire/repair actions
type RemarksRequest struct {
	Remarks string `json:"remarks"`
}

// RetireAsset handles POST /api/assets/:id/retire
func RetireAsset(c echo.Context) error {
	log := logger.FromContext(c)

	assetID, actorID, err := transitionParams(c)
	if err != nil {
		return err
	}

	var req RemarksRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	eng := engine.New(database.GetDB())
	result, err := eng.Retire(c.Request().Context(), assetID, actorID, req.Remarks)
	if err != nil {
		return transitionError(c, model.TypeRetire, err)
	}

	prometheus.RecordTransition(string(model.TypeRetire), "success")
	prometheus.RecordLedgerEntry(string(model.TypeRetire))
	log.Info("Asset retired", zap.Uint("asset_id", assetID), zap.Uint("performed_by", actorID))
	return c.JSON(http.StatusOK, result)
}

// RepairAsset handles POST /api/assets/:id/repair, marking a repair complete
func RepairAsset(c echo.Context) error {
	log := logger.FromContext(c)

	assetID, actorID, err := transitionParams(c)
	if err != nil {
		return err
	}

	var req RemarksRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	eng := engine.New(database.GetDB())
	result, err := eng.MarkRepaired(c.Request().Context(), assetID, actorID, req.Remarks)
	if err != nil {
		return transitionError(c, model.TypeRepair, err)
	}

	prometheus.RecordTransition(string(model.TypeRepair), "success")
	prometheus.RecordLedgerEntry(string(model.TypeRepair))
	log.Info("Asset repair completed", zap.Uint("asset_id", assetID), zap.Uint("performed_by", actorID))
	return c.JSON(http.StatusOK, result)
}

// transitionParams extracts the asset ID and acting user for a transition
// endpoint
func transitionParams(c echo.Context) (uint, uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, 0, echo.NewHTTPError(http.StatusBadRequest, "invalid asset id")
	}

	actorID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return 0, 0, echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}

	return uint(id), actorID, nil
}

// transitionError maps engine failures to protocol errors
func transitionError(c echo.Context, t model.TransactionType, err error) error {
	log := logger.FromContext(c)

	switch engine.KindOf(err) {
	case engine.KindInvalidState, engine.KindInvalidRequest:
		prometheus.RecordTransition(string(t), "rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": err.Error()})
	case engine.KindNotFound:
		prometheus.RecordTransition(string(t), "rejected")
		return c.JSON(http.StatusNotFound, echo.Map{"detail": err.Error()})
	default:
		prometheus.RecordTransition(string(t), "error")
		log.Error("Transition failed", zap.String("type", string(t)), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Transition failed"})
	}
}
