package config

import (
	"time"

	"flashoffers/internal/models"
	"flashoffers/internal/utils"
)

// OffersConfig carries the claim/redemption policy knobs.
type OffersConfig struct {
	// ClaimTTL is the fixed claim lifetime; a claim's expires_at is the
	// sooner of created_at+ClaimTTL and the offer's end_time.
	ClaimTTL         time.Duration `yaml:"claim_ttl"`
	MaxTokenAttempts int           `yaml:"max_token_attempts"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`

	// Daily offer-creation quotas by subscription tier; zero = unlimited.
	TierDailyLimits map[models.SubscriptionTier]int `yaml:"tier_daily_limits"`
}

func loadOffersConfig() *OffersConfig {
	return &OffersConfig{
		ClaimTTL:         getEnvAsDuration("OFFER_CLAIM_TTL", utils.DefaultClaimTTL),
		MaxTokenAttempts: getEnvAsInt("OFFER_MAX_TOKEN_ATTEMPTS", utils.MaxTokenAttempts),
		SweepInterval:    getEnvAsDuration("OFFER_SWEEP_INTERVAL", utils.DefaultSweepInterval),
		TierDailyLimits: map[models.SubscriptionTier]int{
			models.TierFree:      getEnvAsInt("OFFER_LIMIT_FREE", utils.FreeTierDailyOfferLimit),
			models.TierStarter:   getEnvAsInt("OFFER_LIMIT_STARTER", utils.StarterTierDailyOfferLimit),
			models.TierPro:       getEnvAsInt("OFFER_LIMIT_PRO", 0),
			models.TierUnlimited: 0,
		},
	}
}

// DailyLimit resolves the quota for a tier; unknown tiers fall back to the
// free tier's limit.
func (c *OffersConfig) DailyLimit(tier models.SubscriptionTier) (limit int, unlimited bool) {
	value, ok := c.TierDailyLimits[tier]
	if !ok {
		return c.TierDailyLimits[models.TierFree], false
	}
	return value, value == 0
}
