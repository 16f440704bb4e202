package handler

import (
	"net/http"

	"asset-service/internal/model"
	"asset-service/pkg/database"
	"asset-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListUsers retrieves the known principals, for picking a checkout assignee.
// User management itself lives in the identity service.
func ListUsers(c echo.Context) error {
	log := logger.FromContext(c)

	var users []model.User
	result := database.GetDB().Order("username ASC").Find(&users)
	if result.Error != nil {
		log.Error("Failed to retrieve users", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve users",
		})
	}

	return c.JSON(http.StatusOK, users)
}
