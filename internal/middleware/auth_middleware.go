package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IdentityClaims is the verified identity surface this core consumes.
// Authentication itself is an external collaborator: tokens arrive already
// issued, and this middleware only extracts the opaque identities
// (user/staff id, venue id, role) that the services treat as trusted input.
type IdentityClaims struct {
	UserID  string `json:"user_id"`
	VenueID string `json:"venue_id,omitempty"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer token and stores the caller's
// identities in the Gin context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*IdentityClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Set("role", claims.Role)

		if claims.VenueID != "" {
			venueID, err := primitive.ObjectIDFromHex(claims.VenueID)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid venue ID in token"})
				c.Abort()
				return
			}
			c.Set("venue_id", venueID)
		}

		c.Next()
	}
}

// VenueRequired ensures the caller carries a venue identity (operator or
// staff tokens).
func VenueRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get("venue_id"); !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "Venue credentials required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
