package handler

import (
	"net/http"
	"time"

	"asset-service/internal/model"
	"asset-service/pkg/database"
	"asset-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListTransactions retrieves ledger entries, newest first, filterable by
// asset, type and date range. The ledger is read-only: no update or delete
// endpoint exists.
func ListTransactions(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB().Model(&model.Transaction{})

	if assetID := c.QueryParam("asset_id"); assetID != "" {
		query = query.Where("asset_id = ?", assetID)
	}
	if txType := c.QueryParam("type"); txType != "" {
		query = query.Where("type = ?", txType)
	}
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"errors": map[string]string{"from": "must be an RFC 3339 timestamp."},
			})
		}
		query = query.Where("created_at >= ?", t)
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"errors": map[string]string{"to": "must be an RFC 3339 timestamp."},
			})
		}
		query = query.Where("created_at <= ?", t)
	}

	var transactions []model.Transaction
	result := query.Order("created_at DESC").Find(&transactions)
	if result.Error != nil {
		log.Error("Failed to retrieve transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve transactions",
		})
	}

	return c.JSON(http.StatusOK, transactions)
}

// ListAssetTransactions retrieves the full ledger for one asset in
// chronological order
func ListAssetTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var asset model.Asset
	if err := database.GetDB().Where("id = ?", id).First(&asset).Error; err != nil {
		log.Warn("Asset not found", zap.String("asset_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Asset not found",
		})
	}

	var transactions []model.Transaction
	result := database.GetDB().
		Where("asset_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&transactions)
	if result.Error != nil {
		log.Error("Failed to retrieve asset transactions",
			zap.String("asset_id", id),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve transactions",
		})
	}

	return c.JSON(http.StatusOK, transactions)
}
