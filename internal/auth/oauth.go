package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/oauth2"

	"github.com/celerix-dev/celerix-guild/internal/logger"
)

// Discord OAuth2 endpoints.
var (
	DiscordEndpoint = oauth2.Endpoint{
		AuthURL:   "https://discord.com/oauth2/authorize",
		TokenURL:  "https://discord.com/api/oauth2/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	DiscordUserURL = "https://discord.com/api/users/@me"
)

const stateCookie = "guild_oauth_state"

// ProviderConfig configures the Discord login.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Endpoint     oauth2.Endpoint
	UserURL      string
}

// Provider runs the Discord authorization-code flow.
type Provider struct {
	oauth    *oauth2.Config
	userURL  string
	sessions *Sessions
	log      logger.Logger
}

// NewProvider creates a provider. Zero endpoint fields default to Discord.
func NewProvider(cfg ProviderConfig, sessions *Sessions, log logger.Logger) *Provider {
	if log == nil {
		log = logger.NewNop()
	}
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = DiscordEndpoint
	}
	userURL := cfg.UserURL
	if userURL == "" {
		userURL = DiscordUserURL
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       []string{"identify", "guilds"},
			Endpoint:     endpoint,
		},
		userURL:  userURL,
		sessions: sessions,
		log:      log.With(map[string]interface{}{"component": "auth"}),
	}
}

// Register mounts /login, /auth/callback and /logout.
func (p *Provider) Register(r gin.IRoutes) {
	r.GET("/login", p.Login)
	r.GET("/auth/callback", p.Callback)
	r.GET("/logout", p.Logout)
}

// Login redirects to Discord with a fresh state value.
func (p *Provider) Login(c *gin.Context) {
	state, err := gonanoid.New()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, 600, "/", "", p.sessions.secure, true)
	c.Redirect(http.StatusFound, p.oauth.AuthCodeURL(state))
}

// Callback exchanges the code, loads the Discord profile and starts a session.
func (p *Provider) Callback(c *gin.Context) {
	want, err := c.Cookie(stateCookie)
	if err != nil || want == "" || c.Query("state") != want {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", p.sessions.secure, true)

	u, err := p.exchange(c, c.Query("code"))
	if err != nil {
		p.log.WithError(err).Warn("oauth callback failed", nil)
		c.Redirect(http.StatusFound, "/")
		return
	}
	if err := p.sessions.Issue(c, u); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	p.log.Info("dashboard login", map[string]interface{}{"user": u.ID, "username": u.Username})
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout clears the session.
func (p *Provider) Logout(c *gin.Context) {
	p.sessions.Clear(c)
	c.Redirect(http.StatusFound, "/")
}

func (p *Provider) exchange(c *gin.Context, code string) (User, error) {
	ctx := c.Request.Context()
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return User{}, fmt.Errorf("exchange code: %w", err)
	}

	resp, err := p.oauth.Client(ctx, tok).Get(p.userURL)
	if err != nil {
		return User{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return User{}, fmt.Errorf("fetch profile: status %d", resp.StatusCode)
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return User{}, fmt.Errorf("decode profile: %w", err)
	}
	if u.ID == "" {
		return User{}, fmt.Errorf("decode profile: missing id")
	}
	return u, nil
}
