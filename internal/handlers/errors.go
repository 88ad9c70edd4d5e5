package handlers

import (
	"errors"
	"net/http"

	"flashoffers/internal/models"
	"flashoffers/internal/utils"
	"flashoffers/internal/validators"

	"github.com/gin-gonic/gin"
)

// respondDomainError maps the domain error taxonomy onto the API envelope.
// Every domain outcome is user-facing; only unknown errors fall through to
// a 500.
func respondDomainError(c *gin.Context, err error) {
	var raceErr *models.RaceConditionError
	var rateErr *models.RateLimitExceededError
	var notActiveErr *models.OfferNotActiveError
	var validationErrs validators.ValidationErrors

	switch {
	case errors.As(err, &validationErrs):
		details := make(map[string]string, len(validationErrs))
		for _, ve := range validationErrs {
			details[ve.Field] = ve.Message
		}
		utils.ErrorResponseWithDetails(c, http.StatusBadRequest, "VALIDATION_FAILED", validationErrs.Error(), details)
	case errors.Is(err, models.ErrOfferNotFound):
		utils.NotFoundResponse(c, "Offer")
	case errors.Is(err, models.ErrClaimNotFound):
		utils.NotFoundResponse(c, "Claim")
	case errors.Is(err, models.ErrVenueNotFound):
		utils.NotFoundResponse(c, "Venue")
	case errors.Is(err, models.ErrTokenNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "TOKEN_NOT_FOUND", err.Error())
	case errors.Is(err, models.ErrOfferFull):
		utils.ConflictResponse(c, "OFFER_FULL", err.Error())
	case errors.As(err, &notActiveErr):
		utils.ConflictResponse(c, "OFFER_NOT_ACTIVE", notActiveErr.Error())
	case errors.Is(err, models.ErrOfferNotActive):
		utils.ConflictResponse(c, "OFFER_NOT_ACTIVE", err.Error())
	case errors.Is(err, models.ErrDuplicateClaim):
		utils.ConflictResponse(c, "DUPLICATE_CLAIM", err.Error())
	case errors.Is(err, models.ErrAlreadyRedeemed):
		utils.ConflictResponse(c, "ALREADY_REDEEMED", err.Error())
	case errors.Is(err, models.ErrTokenExpired):
		utils.ErrorResponse(c, http.StatusGone, "TOKEN_EXPIRED", err.Error())
	case errors.Is(err, models.ErrOfferTerminal):
		utils.ConflictResponse(c, "OFFER_TERMINAL", err.Error())
	case errors.Is(err, models.ErrTokenSpaceExhausted):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "TOKEN_SPACE_EXHAUSTED", err.Error())
	case errors.As(err, &raceErr):
		utils.ErrorResponseWithDetails(c, http.StatusConflict, "RACE_CONDITION", raceErr.Error(),
			map[string]string{"current_status": string(raceErr.ClaimStatus)})
	case errors.As(err, &rateErr):
		utils.ErrorResponseWithDetails(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", rateErr.Error(),
			map[string]string{"resets_at": rateErr.ResetsAt.Format("2006-01-02T15:04:05Z07:00")})
	default:
		utils.InternalServerErrorResponse(c)
	}
}
