package handlers

import (
	"flashoffers/internal/services"
	"flashoffers/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ClaimHandler struct {
	claimService services.ClaimService
}

func NewClaimHandler(claimService services.ClaimService) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
	}
}

// ClaimOffer reserves a slot on the offer for the authenticated user and
// returns the claim with its redemption token.
func (h *ClaimHandler) ClaimOffer(c *gin.Context) {
	offerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid offer ID")
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	claim, err := h.claimService.Claim(c.Request.Context(), offerID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.CreatedResponse(c, "Offer claimed successfully", claim)
}

// GetClaim returns one claim by id.
func (h *ClaimHandler) GetClaim(c *gin.Context) {
	claimID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid claim ID")
		return
	}

	claim, err := h.claimService.GetClaim(c.Request.Context(), claimID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Claim retrieved successfully", claim)
}

// ListOfferClaims returns all claims on an offer, for venue dashboards.
func (h *ClaimHandler) ListOfferClaims(c *gin.Context) {
	offerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid offer ID")
		return
	}

	claims, err := h.claimService.ListOfferClaims(c.Request.Context(), offerID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Claims retrieved successfully", claims, &utils.Meta{
		Count: len(claims),
	})
}

func userIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}

	userID, ok := value.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return primitive.NilObjectID, false
	}
	return userID, true
}
