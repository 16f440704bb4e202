package middleware

import (
	"net/http"
	"strings"

	"asset-service/internal/model"
	"asset-service/pkg/jwtutil"
	"asset-service/pkg/logger"
	"asset-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the JWT token and extracts the acting user
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)
		prometheus.AuthAttemptsCounter.Inc()

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing Authorization header")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid Authorization header format")
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.AuthErrorsCounter.Inc()
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store user info in context for later use
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("user_role", claims.Role)
		c.Set("is_superuser", claims.IsSuperuser)

		prometheus.AuthSuccessCounter.Inc()
		log.Info("Request authenticated",
			zap.Uint("user_id", claims.UserID),
			zap.String("role", claims.Role))

		return next(c)
	}
}

// RequireMovementRole gates asset movement endpoints: only ADMIN and
// CUSTODIAN can perform transitions. Superusers are also allowed.
func RequireMovementRole(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		if superuser, ok := c.Get("is_superuser").(bool); ok && superuser {
			return next(c)
		}

		role, _ := c.Get("user_role").(string)
		if role != model.RoleAdmin && role != model.RoleCustodian {
			log.Warn("User lacks movement permission", zap.String("role", role))
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "only ADMIN or CUSTODIAN can perform asset movements",
			})
		}

		return next(c)
	}
}

// GetUserIDFromContext retrieves the acting user ID from the context.
// Returns 0, false if it is not set.
func GetUserIDFromContext(c echo.Context) (uint, bool) {
	userID, ok := c.Get("user_id").(uint)
	return userID, ok
}
