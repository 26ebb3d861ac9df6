package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/drewmudry/scriptcast/youtube"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("s3cret", "scheduler", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "scheduler", claims.Subject)

	_, err = ValidateJWT("other", token)
	assert.Error(t, err)
}

func TestGenerateJWT_NoSecret(t *testing.T) {
	_, err := GenerateJWT("", "x", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestGenerateJWT_DefaultTTL(t *testing.T) {
	token, err := GenerateJWT("s3cret", "x", 0)
	require.NoError(t, err)

	claims, err := ValidateJWT("s3cret", token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateJWT_Expired(t *testing.T) {
	token, err := GenerateJWT("s3cret", "x", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = ValidateJWT("s3cret", token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/private", AuthMiddleware("s3cret"), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("subject"))
	})

	good, err := GenerateJWT("s3cret", "ops", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + good, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusOK {
				assert.Equal(t, "ops", w.Body.String())
			}
		})
	}
}

func TestYouTubeConnectFlow(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"granted","token_type":"Bearer","refresh_token":"r","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	yt := &youtube.Authenticator{
		Config: &oauth2.Config{
			ClientID:    "id",
			Endpoint:    oauth2.Endpoint{AuthURL: "https://accounts.example/auth", TokenURL: tokenSrv.URL},
			RedirectURL: "http://localhost/auth/youtube/callback",
			Scopes:      []string{"upload"},
		},
		TokenFile: filepath.Join(t.TempDir(), "token.json"),
	}
	h := NewHandler(yt, "s3cret", "", nil)

	r := gin.New()
	r.GET("/auth/youtube", h.ConnectYouTube)
	r.GET("/auth/youtube/callback", h.YouTubeCallback)

	apiToken, err := GenerateJWT("s3cret", "ops", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/youtube?token="+apiToken, nil))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/auth/youtube/callback?code=abc&state="+state, nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	tok, err := youtube.LoadToken(yt.TokenFile)
	require.NoError(t, err)
	assert.Equal(t, "granted", tok.AccessToken)
}

func TestYouTubeCallback_BadState(t *testing.T) {
	h := NewHandler(&youtube.Authenticator{Config: &oauth2.Config{}}, "s3cret", "", nil)
	r := gin.New()
	r.GET("/cb", h.YouTubeCallback)

	req := httptest.NewRequest(http.MethodGet, "/cb?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "real"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectYouTube_RequiresAPIToken(t *testing.T) {
	yt := &youtube.Authenticator{Config: &oauth2.Config{Endpoint: oauth2.Endpoint{AuthURL: "https://accounts.example/auth"}}}
	h := NewHandler(yt, "s3cret", "", nil)
	r := gin.New()
	r.GET("/auth/youtube", h.ConnectYouTube)

	good, err := GenerateJWT("s3cret", "ops", time.Hour)
	require.NoError(t, err)
	foreign, err := GenerateJWT("other", "ops", time.Hour)
	require.NoError(t, err)
	state, err := generateState("s3cret", "ops")
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		header string
		code   int
	}{
		{"anonymous", "/auth/youtube", "", http.StatusUnauthorized},
		{"wrong secret", "/auth/youtube?token=" + foreign, "", http.StatusUnauthorized},
		{"state as token", "/auth/youtube?token=" + state, "", http.StatusUnauthorized},
		{"query token", "/auth/youtube?token=" + good, "", http.StatusTemporaryRedirect},
		{"bearer header", "/auth/youtube", "Bearer " + good, http.StatusTemporaryRedirect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			if tt.code == http.StatusUnauthorized {
				assert.Empty(t, w.Result().Cookies())
			}
		})
	}
}

func TestYouTubeCallback_UnsignedState(t *testing.T) {
	yt := &youtube.Authenticator{
		Config:    &oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: "http://127.0.0.1:0/token"}},
		TokenFile: filepath.Join(t.TempDir(), "token.json"),
	}
	h := NewHandler(yt, "s3cret", "", nil)
	r := gin.New()
	r.GET("/cb", h.YouTubeCallback)

	// A visitor who sets their own cookie still cannot reach the exchange.
	req := httptest.NewRequest(http.MethodGet, "/cb?code=abc&state=chosen", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "chosen"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, err := youtube.LoadToken(yt.TokenFile)
	assert.ErrorIs(t, err, youtube.ErrNoToken)
}

func TestValidateJWT_RejectsState(t *testing.T) {
	state, err := generateState("s3cret", "ops")
	require.NoError(t, err)

	_, err = ValidateJWT("s3cret", state)
	assert.Error(t, err)

	claims, err := validateState("s3cret", state)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}
