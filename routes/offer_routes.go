package routes

import (
	"flashoffers/internal/handlers"
	"flashoffers/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupOfferRoutes sets up routes for offer lifecycle management
func SetupOfferRoutes(r *gin.RouterGroup, offerHandler *handlers.OfferHandler, jwtSecret string) {
	offers := r.Group("/offers")
	offers.Use(middleware.AuthRequired(jwtSecret))
	{
		// Public-ish reads: any authenticated caller can inspect an offer
		offers.GET("/:id", offerHandler.GetOffer)
	}

	// Venue-only lifecycle operations
	venue := r.Group("/venues/offers")
	venue.Use(middleware.AuthRequired(jwtSecret), middleware.VenueRequired())
	{
		venue.POST("/", offerHandler.CreateOffer)
		venue.GET("/", offerHandler.ListOffers)
		venue.PUT("/:id/cancel", offerHandler.CancelOffer)
		venue.GET("/rate-limit", offerHandler.GetRateLimitStatus)
	}
}
