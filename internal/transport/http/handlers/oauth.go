package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ndmitriev/auth-service/internal/infra/security"
	"github.com/ndmitriev/auth-service/internal/usecase"
)

const (
	oauthStateCookie   = "oauth_state"
	oauthStateMaxAge   = 600
	googleUserinfoURL  = "https://openidconnect.googleapis.com/v1/userinfo"
	googleSuccessRoute = "/google-success"
)

// googleUserinfo is the subset of the OpenID Connect userinfo response we use.
type googleUserinfo struct {
	Subject       string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// OAuthHandler implements the Google federated login flow.
type OAuthHandler struct {
	config      *oauth2.Config
	federation  *usecase.FederatedIdentityService
	issuer      *security.TokenIssuer
	frontendURL string
	userinfoURL string
	logger      *zap.Logger
}

// NewOAuthHandler builds the Google login handler. The flow stays disabled
// until both client credentials are configured.
func NewOAuthHandler(clientID, clientSecret, callbackURL, frontendURL string, federation *usecase.FederatedIdentityService, issuer *security.TokenIssuer, log *zap.Logger) *OAuthHandler {
	if log == nil {
		log = zap.NewNop()
	}

	h := &OAuthHandler{
		federation:  federation,
		issuer:      issuer,
		frontendURL: frontendURL,
		userinfoURL: googleUserinfoURL,
		logger:      log,
	}

	if clientID != "" && clientSecret != "" {
		h.config = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}
	}

	return h
}

// Enabled reports whether Google client credentials are configured.
func (h *OAuthHandler) Enabled() bool {
	return h != nil && h.config != nil
}

// WithUserinfoURL overrides the userinfo endpoint (for tests).
func (h *OAuthHandler) WithUserinfoURL(u string) *OAuthHandler {
	if u != "" {
		h.userinfoURL = u
	}
	return h
}

// Start redirects the browser to the Google consent screen. The state nonce
// is pinned in a short-lived cookie and checked on callback.
func (h *OAuthHandler) Start(c *gin.Context) {
	state, err := security.GenerateSecureToken(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Could not start Google sign-in."))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/", "", false, true)
	c.Redirect(http.StatusFound, h.config.AuthCodeURL(state))
}

// Callback completes the flow: state check, code exchange, userinfo fetch,
// account link-or-create, then a redirect to the frontend with the token.
func (h *OAuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	cookieState, err := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)
	if err != nil || state == "" || state != cookieState {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Invalid OAuth state."))
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Missing authorization code."))
		return
	}

	ctx := c.Request.Context()
	token, err := h.config.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("oauth code exchange failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, NewErrorResponse(c, "Could not complete Google sign-in."))
		return
	}

	info, err := h.fetchUserinfo(ctx, token)
	if err != nil {
		h.logger.Warn("oauth userinfo fetch failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, NewErrorResponse(c, "Could not complete Google sign-in."))
		return
	}

	if info.Email == "" || !info.EmailVerified {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "Google account has no verified email."))
		return
	}

	account, err := h.federation.LinkOrCreate(ctx, info.Email, info.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Could not complete Google sign-in."))
		return
	}

	signed, err := h.issuer.Sign(account.ID, account.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "Could not complete Google sign-in."))
		return
	}

	redirect := h.frontendURL + googleSuccessRoute + "?token=" + url.QueryEscape(signed)
	c.Redirect(http.StatusFound, redirect)
}

func (h *OAuthHandler) fetchUserinfo(ctx context.Context, token *oauth2.Token) (googleUserinfo, error) {
	client := h.config.Client(ctx, token)

	resp, err := client.Get(h.userinfoURL)
	if err != nil {
		return googleUserinfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserinfo{}, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserinfo{}, fmt.Errorf("decode userinfo: %w", err)
	}

	return info, nil
}
