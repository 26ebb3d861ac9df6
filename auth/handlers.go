package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/drewmudry/scriptcast/youtube"
)

const stateCookie = "oauth_state"

// Handler connects the YouTube channel videos are published to.
// Only operators holding an API token may connect a channel.
type Handler struct {
	YouTube     *youtube.Authenticator
	Secret      string
	FrontendURL string
	Log         *zap.Logger
}

func NewHandler(yt *youtube.Authenticator, secret, frontendURL string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{YouTube: yt, Secret: secret, FrontendURL: frontendURL, Log: log}
}

// ConnectYouTube starts the OAuth flow. The API token may come from the
// Authorization header or the token query parameter.
func (h *Handler) ConnectYouTube(c *gin.Context) {
	tokenString := requestToken(c, true)
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No authentication token provided"})
		return
	}
	claims, err := ValidateJWT(h.Secret, tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	state, err := generateState(h.Secret, claims.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate state"})
		return
	}
	c.SetCookie(stateCookie, state, int(stateTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.YouTube.AuthCodeURL(state))
}

// YouTubeCallback stores the token granted by the user.
func (h *Handler) YouTubeCallback(c *gin.Context) {
	state := c.Query("state")
	storedState, _ := c.Cookie(stateCookie)
	if state == "" || state != storedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state token"})
		return
	}
	claims, err := validateState(h.Secret, state)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state token"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No authorization code"})
		return
	}

	if _, err := h.YouTube.Exchange(c.Request.Context(), code); err != nil {
		h.Log.Error("YouTube token exchange failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to connect YouTube channel"})
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)
	h.Log.Info("YouTube channel connected", zap.String("subject", claims.Subject))

	if h.FrontendURL == "" {
		c.JSON(http.StatusOK, gin.H{"message": "YouTube channel connected"})
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("%s/settings?youtube=connected", h.FrontendURL))
}

func generateStateToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
