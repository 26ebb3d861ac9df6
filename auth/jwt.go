package auth

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long minted API tokens stay valid.
const DefaultTTL = 24 * time.Hour * 7

// stateTTL bounds how long a YouTube connect flow may take.
const stateTTL = 10 * time.Minute

const stateAudience = "youtube-connect"

var ErrNoSecret = errors.New("JWT_SECRET environment variable not set")

type Claims struct {
	jwt.RegisteredClaims
}

// GenerateJWT mints an HS256 token for subject (an operator or service name).
func GenerateJWT(secret, subject string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWT accepts API tokens only; OAuth state tokens are rejected.
func ValidateJWT(secret, tokenString string) (*Claims, error) {
	claims, err := parseToken(secret, tokenString)
	if err != nil {
		return nil, err
	}
	if len(claims.Audience) > 0 {
		return nil, errors.New("not an API token")
	}
	return claims, nil
}

// generateState signs a single-use OAuth state naming the operator who
// started the flow.
func generateState(secret, subject string) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	nonce, err := generateStateToken()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{stateAudience},
			ID:        nonce,
			ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func validateState(secret, state string) (*Claims, error) {
	claims, err := parseToken(secret, state)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(claims.Audience, stateAudience) {
		return nil, errors.New("not an OAuth state")
	}
	return claims, nil
}

func parseToken(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// requestToken reads a bearer header, or the token query parameter when
// allowQuery is set (browser redirects cannot send headers).
func requestToken(c *gin.Context, allowQuery bool) string {
	if t, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	if allowQuery {
		return strings.TrimSpace(c.Query("token"))
	}
	return ""
}

// AuthMiddleware protects routes with a bearer token signed with secret.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := requestToken(c, false)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authentication token provided"})
			return
		}

		claims, err := ValidateJWT(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("subject", claims.Subject)
		c.Next()
	}
}
