package handler

import (
	"net/http"
	"strconv"

	"asset-service/internal/model"
	"asset-service/pkg/database"
	"asset-service/pkg/logger"
	"asset-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LocationRequest defines the structure for location creation/update requests
type LocationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListLocations retrieves all locations ordered by name
func ListLocations(c echo.Context) error {
	log := logger.FromContext(c)

	var locations []model.Location
	result := database.GetDB().Order("name ASC").Find(&locations)
	if result.Error != nil {
		log.Error("Failed to retrieve locations", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve locations",
		})
	}

	return c.JSON(http.StatusOK, locations)
}

// GetLocation retrieves a specific location by ID
func GetLocation(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var location model.Location
	result := database.GetDB().Where("id = ?", id).First(&location)
	if result.Error != nil {
		log.Warn("Location not found", zap.String("location_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Location not found",
		})
	}

	return c.JSON(http.StatusOK, location)
}

// CreateLocation adds a new location
func CreateLocation(c echo.Context) error {
	log := logger.FromContext(c)

	var req LocationRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"errors": map[string]string{"name": "This field is required."},
		})
	}

	// Location names are unique
	var count int64
	database.GetDB().Model(&model.Location{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		log.Warn("Location with this name already exists", zap.String("name", req.Name))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Location with this name already exists",
		})
	}

	location := model.Location{Name: req.Name, Description: req.Description}
	result := database.GetDB().Create(&location)
	if result.Error != nil {
		log.Error("Failed to create location", zap.String("name", req.Name), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create location",
		})
	}

	prometheus.RecordLocationOperation("create")
	log.Info("Location created successfully",
		zap.String("location_id", strconv.FormatUint(uint64(location.ID), 10)),
		zap.String("name", location.Name))
	return c.JSON(http.StatusCreated, location)
}

// UpdateLocation updates an existing location
func UpdateLocation(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req LocationRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("location_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	var location model.Location
	result := database.GetDB().Where("id = ?", id).First(&location)
	if result.Error != nil {
		log.Warn("Location not found", zap.String("location_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Location not found",
		})
	}

	if req.Name != location.Name {
		var count int64
		database.GetDB().Model(&model.Location{}).
			Where("name = ? AND id != ?", req.Name, id).
			Count(&count)
		if count > 0 {
			log.Warn("Location with this name already exists", zap.String("name", req.Name))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Location with this name already exists",
			})
		}
	}

	location.Name = req.Name
	location.Description = req.Description
	result = database.GetDB().Save(&location)
	if result.Error != nil {
		log.Error("Failed to update location", zap.String("location_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update location",
		})
	}

	prometheus.RecordLocationOperation("update")
	log.Info("Location updated successfully", zap.String("location_id", id))
	return c.JSON(http.StatusOK, location)
}

// DeleteLocation deletes a location unless assets or ledger entries still
// reference it
func DeleteLocation(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var location model.Location
	preResult := database.GetDB().Where("id = ?", id).First(&location)
	if preResult.Error != nil {
		log.Warn("Location not found", zap.String("location_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Location not found",
		})
	}

	// Protect-on-delete: block while any asset sits here
	var assetCount int64
	database.GetDB().Model(&model.Asset{}).Where("current_location_id = ?", id).Count(&assetCount)
	if assetCount > 0 {
		log.Warn("Cannot delete location that is being used by assets",
			zap.String("location_id", id),
			zap.Int64("asset_count", assetCount))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Cannot delete location that is being used by assets",
		})
	}

	// Ledger entries snapshot locations too; those references also block
	var ledgerCount int64
	database.GetDB().Model(&model.Transaction{}).
		Where("from_location_id = ? OR to_location_id = ?", id, id).
		Count(&ledgerCount)
	if ledgerCount > 0 {
		log.Warn("Cannot delete location referenced by the ledger",
			zap.String("location_id", id),
			zap.Int64("ledger_count", ledgerCount))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Cannot delete location referenced by transactions",
		})
	}

	result := database.GetDB().Delete(&location)
	if result.Error != nil {
		log.Error("Failed to delete location", zap.String("location_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete location",
		})
	}

	prometheus.RecordLocationOperation("delete")
	log.Info("Location deleted successfully", zap.String("location_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Location deleted successfully",
	})
}
