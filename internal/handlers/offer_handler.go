package handlers

import (
	"flashoffers/internal/models"
	"flashoffers/internal/services"
	"flashoffers/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OfferHandler struct {
	offerService services.OfferService
}

func NewOfferHandler(offerService services.OfferService) *OfferHandler {
	return &OfferHandler{
		offerService: offerService,
	}
}

// CreateOffer publishes a new flash offer for the authenticated venue,
// subject to the venue's daily quota.
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	var request models.CreateOfferRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	venueID, ok := venueIDFromContext(c)
	if !ok {
		return
	}

	offer, err := h.offerService.CreateOffer(c.Request.Context(), venueID, &request)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.CreatedResponse(c, "Offer created successfully", offer)
}

// CancelOffer terminalizes an offer from any non-terminal state.
func (h *OfferHandler) CancelOffer(c *gin.Context) {
	offerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid offer ID")
		return
	}

	if err := h.offerService.CancelOffer(c.Request.Context(), offerID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Offer cancelled successfully", nil)
}

// GetOffer returns a single offer with its derived status.
func (h *OfferHandler) GetOffer(c *gin.Context) {
	offerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid offer ID")
		return
	}

	offer, err := h.offerService.GetOffer(c.Request.Context(), offerID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Offer retrieved successfully", offer)
}

// ListOffers returns the venue's offers, optionally filtered by derived
// status.
func (h *OfferHandler) ListOffers(c *gin.Context) {
	venueID, ok := venueIDFromContext(c)
	if !ok {
		return
	}

	statusFilter := models.OfferStatus(c.Query("status"))
	params := utils.GetPaginationParams(c)

	offers, total, err := h.offerService.ListOffers(c.Request.Context(), venueID, statusFilter, params)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Offers retrieved successfully", offers, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Count:      len(offers),
	})
}

// GetRateLimitStatus reports the venue's remaining daily quota and when it
// resets.
func (h *OfferHandler) GetRateLimitStatus(c *gin.Context) {
	venueID, ok := venueIDFromContext(c)
	if !ok {
		return
	}

	status, err := h.offerService.GetRateLimitStatus(c.Request.Context(), venueID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Rate limit status retrieved", status)
}

func venueIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get("venue_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	venueID, ok := value.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid venue ID")
		return primitive.NilObjectID, false
	}
	return venueID, true
}
