package services

import (
	"context"

	"flashoffers/internal/models"
	"flashoffers/internal/repositories/interfaces"
	"flashoffers/internal/utils"
	"flashoffers/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenGenerator issues 6-digit numeric tokens unique among a venue's
// currently-active claims. Tokens are free for reuse once the holding claim
// settles.
type TokenGenerator interface {
	Generate(ctx context.Context, venueID primitive.ObjectID) (string, error)
}

type tokenGenerator struct {
	claimRepo   interfaces.ClaimRepository
	maxAttempts int
	logger      *logger.Logger
}

func NewTokenGenerator(claimRepo interfaces.ClaimRepository, maxAttempts int, log *logger.Logger) TokenGenerator {
	if maxAttempts <= 0 {
		maxAttempts = utils.MaxTokenAttempts
	}
	return &tokenGenerator{
		claimRepo:   claimRepo,
		maxAttempts: maxAttempts,
		logger:      log,
	}
}

func (g *tokenGenerator) Generate(ctx context.Context, venueID primitive.ObjectID) (string, error) {
	// With the active-claim set near the full million-value space the
	// collision loop would degenerate; fail instead of looping forever.
	active, err := g.claimRepo.CountActiveByVenue(ctx, venueID)
	if err != nil {
		return "", err
	}
	if active >= utils.TokenSpaceExhaustionThreshold {
		g.logger.WithVenueID(venueID).
			WithField("active_claims", active).
			Error("token space exhausted")
		return "", models.ErrTokenSpaceExhausted
	}

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		token := utils.GenerateClaimToken()

		exists, err := g.claimRepo.ActiveTokenExists(ctx, venueID, token)
		if err != nil {
			return "", err
		}
		if !exists {
			return token, nil
		}
	}

	g.logger.WithVenueID(venueID).
		WithField("attempts", g.maxAttempts).
		Error("token generation retries exhausted")
	return "", models.ErrTokenSpaceExhausted
}
