// Package auth signs dashboard users in with Discord and keeps them in a sealed cookie.
package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-guild/internal/vault"
)

// SessionCookie is the name of the cookie holding the sealed session.
const SessionCookie = "guild_session"

const (
	contextUser = "user"
	sessionTTL  = 7 * 24 * time.Hour
)

// User is the signed-in dashboard operator.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Actor returns the identity recorded on decisions.
func (u User) Actor() string {
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}

type sessionPayload struct {
	User    User      `json:"user"`
	Expires time.Time `json:"exp"`
}

// Sessions stores the user in an encrypted cookie.
type Sessions struct {
	sealer *vault.Sealer
	secure bool
}

// NewSessions creates a cookie session store. secure marks cookies HTTPS-only.
func NewSessions(sealer *vault.Sealer, secure bool) *Sessions {
	return &Sessions{sealer: sealer, secure: secure}
}

// Encode seals a session for u.
func (s *Sessions) Encode(u User) (string, error) {
	raw, err := json.Marshal(sessionPayload{User: u, Expires: time.Now().Add(sessionTTL)})
	if err != nil {
		return "", err
	}
	return s.sealer.Seal(raw)
}

// Decode opens a sealed session and rejects expired ones.
func (s *Sessions) Decode(value string) (User, bool) {
	raw, err := s.sealer.Open(value)
	if err != nil {
		return User{}, false
	}
	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil || time.Now().After(p.Expires) || p.User.ID == "" {
		return User{}, false
	}
	return p.User, true
}

// Issue sets the session cookie.
func (s *Sessions) Issue(c *gin.Context, u User) error {
	value, err := s.Encode(u)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, value, int(sessionTTL.Seconds()), "/", "", s.secure, true)
	return nil
}

// Clear removes the session cookie.
func (s *Sessions) Clear(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", s.secure, true)
}

// Current returns the signed-in user, if any.
func (s *Sessions) Current(c *gin.Context) (User, bool) {
	value, err := c.Cookie(SessionCookie)
	if err != nil || value == "" {
		return User{}, false
	}
	return s.Decode(value)
}

// RequireUser rejects requests without a valid session.
func (s *Sessions) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := s.Current(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Set(contextUser, u)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireUser.
func CurrentUser(c *gin.Context) (User, bool) {
	v, ok := c.Get(contextUser)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	return u, ok
}
