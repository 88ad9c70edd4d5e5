package routes

import (
	"flashoffers/internal/handlers"
	"flashoffers/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRedemptionRoutes sets up routes for staff token validation and
// redemption. Both require a venue identity on the token.
func SetupRedemptionRoutes(r *gin.RouterGroup, redemptionHandler *handlers.RedemptionHandler, jwtSecret string) {
	staff := r.Group("/venues/redemptions")
	staff.Use(middleware.AuthRequired(jwtSecret), middleware.VenueRequired())
	{
		staff.POST("/validate", redemptionHandler.ValidateToken)
		staff.POST("/claims/:id/redeem", redemptionHandler.Redeem)
	}
}
