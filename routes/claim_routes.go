package routes

import (
	"flashoffers/internal/handlers"
	"flashoffers/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupClaimRoutes sets up routes for claiming offers
func SetupClaimRoutes(r *gin.RouterGroup, claimHandler *handlers.ClaimHandler, jwtSecret string) {
	claims := r.Group("")
	claims.Use(middleware.AuthRequired(jwtSecret))
	{
		claims.POST("/offers/:id/claim", claimHandler.ClaimOffer)
		claims.GET("/claims/:id", claimHandler.GetClaim)
	}

	// Venue dashboards list the claims on their own offers
	venue := r.Group("/venues/offers")
	venue.Use(middleware.AuthRequired(jwtSecret), middleware.VenueRequired())
	{
		venue.GET("/:id/claims", claimHandler.ListOfferClaims)
	}
}
