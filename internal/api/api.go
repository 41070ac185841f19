// Package api is the dashboard's HTTP surface. It shares the record store with
// the bot and triggers the same automation notifications.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-guild/internal/auth"
	"github.com/celerix-dev/celerix-guild/internal/automation"
	"github.com/celerix-dev/celerix-guild/internal/engine"
	"github.com/celerix-dev/celerix-guild/internal/logger"
	"github.com/celerix-dev/celerix-guild/pkg/schema"
)

// Handler serves dashboard requests.
type Handler struct {
	Store      *engine.Store
	Automation *automation.Engine
	Log        logger.Logger
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrApplicationNotFound), errors.Is(err, engine.ErrTicketNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyDecided):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrInvalidDecision):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError && h.Log != nil {
		h.Log.WithError(err).Error("request failed", map[string]interface{}{"path": c.FullPath()})
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// Apply accepts a public application. Only the name is required.
func (h *Handler) Apply(c *gin.Context) {
	var input struct {
		Name       string `form:"name" json:"name" binding:"required"`
		DiscordTag string `form:"discordTag" json:"discordTag"`
		About      string `form:"about" json:"about"`
	}
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, err)
		return
	}

	app, err := h.Automation.SubmitApplication(c.Request.Context(), engine.NewApplication{
		Name:       input.Name,
		DiscordTag: input.DiscordTag,
		About:      input.About,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// ApplicationStatus is the public status lookup.
func (h *Handler) ApplicationStatus(c *gin.Context) {
	app, err := h.Store.Application(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         app.ID,
		"status":     app.Status,
		"decisionBy": app.DecisionBy,
		"decisionAt": app.DecisionAt,
	})
}

// Overview returns every record at once.
func (h *Handler) Overview(c *gin.Context) {
	snap, err := h.Store.Read()
	if err != nil {
		h.fail(c, err)
		return
	}
	u, _ := auth.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"user":         u,
		"applications": snap.Applications,
		"tickets":      snap.Tickets,
		"settings":     snap.Settings,
		"welcome":      snap.Welcome,
	})
}

// ListApplications returns applications, optionally filtered by ?status=.
func (h *Handler) ListApplications(c *gin.Context) {
	snap, err := h.Store.Read()
	if err != nil {
		h.fail(c, err)
		return
	}
	status := c.Query("status")
	apps := make([]schema.Application, 0, len(snap.Applications))
	for _, a := range snap.Applications {
		if status == "" || strings.EqualFold(a.Status, status) {
			apps = append(apps, a)
		}
	}
	c.JSON(http.StatusOK, apps)
}

func (h *Handler) GetApplication(c *gin.Context) {
	app, err := h.Store.Application(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// Decide records the signed-in user's decision.
func (h *Handler) Decide(c *gin.Context) {
	var input struct {
		Decision string `form:"decision" json:"decision" binding:"required"`
	}
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, err)
		return
	}
	u, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login required"})
		return
	}

	app, err := h.Automation.DecideApplication(c.Request.Context(), c.Param("id"), input.Decision, u.Actor())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// ListTickets returns tickets, optionally filtered by ?status=.
func (h *Handler) ListTickets(c *gin.Context) {
	snap, err := h.Store.Read()
	if err != nil {
		h.fail(c, err)
		return
	}
	status := c.Query("status")
	tickets := make([]schema.Ticket, 0, len(snap.Tickets))
	for _, t := range snap.Tickets {
		if status == "" || strings.EqualFold(t.Status, status) {
			tickets = append(tickets, t)
		}
	}
	c.JSON(http.StatusOK, tickets)
}

func (h *Handler) CreateTicket(c *gin.Context) {
	var input struct {
		Title       string `form:"title" json:"title" binding:"required"`
		Description string `form:"description" json:"description"`
	}
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, err)
		return
	}

	t, err := h.Automation.CreateTicket(c.Request.Context(), engine.NewTicket{
		Title:       input.Title,
		Description: input.Description,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) CloseTicket(c *gin.Context) {
	t, err := h.Store.CloseTicket(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) GetSettings(c *gin.Context) {
	snap, err := h.Store.Read()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": snap.Settings, "welcome": snap.Welcome})
}

// SaveSettings replaces prefix and auto-role name. Omitted fields reset to defaults.
func (h *Handler) SaveSettings(c *gin.Context) {
	var input struct {
		Prefix       string `form:"prefix" json:"prefix"`
		AutoRoleName string `form:"autoRoleName" json:"autoRoleName"`
	}
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, err)
		return
	}

	s, err := h.Store.SaveSettings(schema.Settings{
		Prefix:       strings.TrimSpace(input.Prefix),
		AutoRoleName: strings.TrimSpace(input.AutoRoleName),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) GetWelcome(c *gin.Context) {
	snap, err := h.Store.Read()
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap.Welcome)
}

// SaveWelcome replaces the welcome configuration. HTML checkboxes post "on".
func (h *Handler) SaveWelcome(c *gin.Context) {
	var input struct {
		Enabled checkbox `form:"enabled" json:"enabled"`
		Channel string   `form:"channel" json:"channel"`
		Message string   `form:"message" json:"message"`
	}
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, err)
		return
	}

	w, err := h.Store.SaveWelcome(schema.WelcomeConfig{
		Enabled: bool(input.Enabled),
		Channel: strings.TrimSpace(input.Channel),
		Message: input.Message,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// checkbox binds "on", "true" and "1" from forms and a boolean from JSON.
type checkbox bool

func (b *checkbox) UnmarshalParam(param string) error {
	*b = parseCheckbox(param)
	return nil
}

func (b *checkbox) UnmarshalJSON(data []byte) error {
	*b = parseCheckbox(strings.Trim(string(data), `"`))
	return nil
}

func parseCheckbox(v string) checkbox {
	if strings.EqualFold(v, "on") {
		return true
	}
	ok, _ := strconv.ParseBool(v)
	return checkbox(ok)
}
