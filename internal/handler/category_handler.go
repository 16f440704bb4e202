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

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name string `json:"name"`
}

// ListCategories retrieves all asset categories ordered by name
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)

	var categories []model.Category
	result := database.GetDB().Order("name ASC").Find(&categories)
	if result.Error != nil {
		log.Error("Failed to retrieve categories", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve categories",
		})
	}

	return c.JSON(http.StatusOK, categories)
}

// GetCategory retrieves a specific category by ID
func GetCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var category model.Category
	result := database.GetDB().Where("id = ?", id).First(&category)
	if result.Error != nil {
		log.Warn("Category not found", zap.String("category_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Category not found",
		})
	}

	return c.JSON(http.StatusOK, category)
}

// CreateCategory adds a new asset category
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)

	var req CategoryRequest
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

	// Category names are unique
	var count int64
	database.GetDB().Model(&model.Category{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		log.Warn("Category with this name already exists", zap.String("name", req.Name))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Category with this name already exists",
		})
	}

	category := model.Category{Name: req.Name}
	result := database.GetDB().Create(&category)
	if result.Error != nil {
		log.Error("Failed to create category", zap.String("name", req.Name), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create category",
		})
	}

	prometheus.RecordCategoryOperation("create")
	log.Info("Category created successfully",
		zap.String("category_id", strconv.FormatUint(uint64(category.ID), 10)),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory updates an existing asset category
func UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("category_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	var category model.Category
	result := database.GetDB().Where("id = ?", id).First(&category)
	if result.Error != nil {
		log.Warn("Category not found", zap.String("category_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Category not found",
		})
	}

	// Check if name is changed and the new name is already taken
	if req.Name != category.Name {
		var count int64
		database.GetDB().Model(&model.Category{}).
			Where("name = ? AND id != ?", req.Name, id).
			Count(&count)
		if count > 0 {
			log.Warn("Category with this name already exists", zap.String("name", req.Name))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Category with this name already exists",
			})
		}
	}

	category.Name = req.Name
	result = database.GetDB().Save(&category)
	if result.Error != nil {
		log.Error("Failed to update category", zap.String("category_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update category",
		})
	}

	prometheus.RecordCategoryOperation("update")
	log.Info("Category updated successfully",
		zap.String("category_id", id),
		zap.String("name", category.Name))
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory deletes a category unless assets still reference it
func DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var category model.Category
	preResult := database.GetDB().Where("id = ?", id).First(&category)
	if preResult.Error != nil {
		log.Warn("Category not found", zap.String("category_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Category not found",
		})
	}

	// Protect-on-delete: block while any asset references this category
	var count int64
	database.GetDB().Model(&model.Asset{}).Where("category_id = ?", id).Count(&count)
	if count > 0 {
		log.Warn("Cannot delete category that is being used by assets",
			zap.String("category_id", id),
			zap.Int64("asset_count", count))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Cannot delete category that is being used by assets",
		})
	}

	result := database.GetDB().Delete(&category)
	if result.Error != nil {
		log.Error("Failed to delete category", zap.String("category_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete category",
		})
	}

	prometheus.RecordCategoryOperation("delete")
	log.Info("Category deleted successfully", zap.String("category_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Category deleted successfully",
	})
}
