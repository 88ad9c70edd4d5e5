package handlers

import (
	"flashoffers/internal/models"
	"flashoffers/internal/services"
	"flashoffers/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RedemptionHandler struct {
	redemptionService services.RedemptionService
}

func NewRedemptionHandler(redemptionService services.RedemptionService) *RedemptionHandler {
	return &RedemptionHandler{
		redemptionService: redemptionService,
	}
}

// ValidateToken looks up the claim behind a token so staff can inspect it
// before committing the redemption. Read-only.
func (h *RedemptionHandler) ValidateToken(c *gin.Context) {
	var request models.ValidateTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	venueID, ok := venueIDFromContext(c)
	if !ok {
		return
	}

	claim, err := h.redemptionService.Validate(c.Request.Context(), venueID, request.Token)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Token is valid", claim)
}

// Redeem consumes a claim exactly once on behalf of the authenticated
// staff member.
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	claimID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid claim ID")
		return
	}

	redeemerID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	claim, err := h.redemptionService.Redeem(c.Request.Context(), claimID, redeemerID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Claim redeemed successfully", claim)
}
