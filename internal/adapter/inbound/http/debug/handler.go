package debughttp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devmob/onboard/internal/domain/invite"
	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/inbound"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

// ===== Responses =====

// GuildsResponse is the GET /debug/guilds payload.
type GuildsResponse struct {
	Guilds []*model.Guild `json:"guilds"`
	Count  int            `json:"count"`
}

// ChannelsResponse is the GET /debug/guilds/{id}/channels payload.
type ChannelsResponse struct {
	GuildID  string           `json:"guild_id"`
	Channels []*model.Channel `json:"channels"`
}

// RolesResponse is the GET /debug/guilds/{id}/roles payload.
type RolesResponse struct {
	GuildID string        `json:"guild_id"`
	Roles   []*model.Role `json:"roles"`
}

// InvitesResponse is the GET /debug/guilds/{id}/invites payload.
type InvitesResponse struct {
	GuildID string          `json:"guild_id"`
	Invites []*model.Invite `json:"invites"`
}

// Handler exposes read-only platform state for operators.
type Handler struct {
	directory outbound.DirectoryPort
	status    inbound.StatusPort
}

// Compile-time check
var _ inbound.DebugHttpPort = (*Handler)(nil)

// NewHandler creates a new debug handler.
func NewHandler(directory outbound.DirectoryPort, status inbound.StatusPort) *Handler {
	return &Handler{directory: directory, status: status}
}

// RegisterRoutes registers debug routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, middleware ...gin.HandlerFunc) {
	g := r.Group("/debug", middleware...)
	{
		g.GET("/guilds", h.ListGuilds)
		g.GET("/guilds/:id/channels", h.ListChannels)
		g.GET("/guilds/:id/roles", h.ListRoles)
		g.GET("/guilds/:id/invites", h.ListInvites)
	}
}

// ListGuilds lists the guilds the bot is in.
//
//	@Summary		List guilds
//	@Description	Guilds the bot is a member of
//	@Tags			Debug
//	@Produce		json
//	@Success		200	{object}	GuildsResponse
//	@Failure		429	{object}	apperrors.ErrorResponse	"Rate limit exceeded"
//	@Failure		502	{object}	apperrors.ErrorResponse	"Platform error"
//	@Router			/debug/guilds [get]
func (h *Handler) ListGuilds(c *gin.Context) {
	guilds, err := h.directory.Guilds(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, GuildsResponse{Guilds: guilds, Count: len(guilds)})
}

// ListChannels lists a guild's channels.
//
//	@Summary		List guild channels
//	@Description	Channels of a guild
//	@Tags			Debug
//	@Produce		json
//	@Param			id	path		string	true	"Guild ID"
//	@Success		200	{object}	ChannelsResponse
//	@Failure		400	{object}	apperrors.ErrorResponse	"Invalid guild id"
//	@Failure		429	{object}	apperrors.ErrorResponse	"Rate limit exceeded"
//	@Failure		502	{object}	apperrors.ErrorResponse	"Platform error"
//	@Router			/debug/guilds/{id}/channels [get]
func (h *Handler) ListChannels(c *gin.Context) {
	guildID, ok := guildParam(c)
	if !ok {
		return
	}
	channels, err := h.directory.Channels(c.Request.Context(), guildID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ChannelsResponse{GuildID: guildID.String(), Channels: channels})
}

// ListRoles lists a guild's roles.
//
//	@Summary		List guild roles
//	@Description	Roles of a guild
//	@Tags			Debug
//	@Produce		json
//	@Param			id	path		string	true	"Guild ID"
//	@Success		200	{object}	RolesResponse
//	@Failure		400	{object}	apperrors.ErrorResponse	"Invalid guild id"
//	@Failure		429	{object}	apperrors.ErrorResponse	"Rate limit exceeded"
//	@Failure		502	{object}	apperrors.ErrorResponse	"Platform error"
//	@Router			/debug/guilds/{id}/roles [get]
func (h *Handler) ListRoles(c *gin.Context) {
	guildID, ok := guildParam(c)
	if !ok {
		return
	}
	roles, err := h.directory.Roles(c.Request.Context(), guildID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, RolesResponse{GuildID: guildID.String(), Roles: roles})
}

// ListInvites returns the cached invite counters of a guild.
//
//	@Summary		List cached invites
//	@Description	Invite use counters last observed for a guild
//	@Tags			Debug
//	@Produce		json
//	@Param			id	path		string	true	"Guild ID"
//	@Success		200	{object}	InvitesResponse
//	@Failure		400	{object}	apperrors.ErrorResponse	"Invalid guild id"
//	@Failure		404	{object}	apperrors.ErrorResponse	"No invite snapshot for the guild"
//	@Failure		429	{object}	apperrors.ErrorResponse	"Rate limit exceeded"
//	@Failure		502	{object}	apperrors.ErrorResponse	"Platform error"
//	@Router			/debug/guilds/{id}/invites [get]
func (h *Handler) ListInvites(c *gin.Context) {
	guildID, ok := guildParam(c)
	if !ok {
		return
	}
	invites, err := h.status.InviteSnapshot(guildID)
	if errors.Is(err, invite.ErrNotInitialized) {
		writeError(c, apperrors.NotFound("invite snapshot"))
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, InvitesResponse{GuildID: guildID.String(), Invites: invites})
}

func guildParam(c *gin.Context) (model.Snowflake, bool) {
	id, err := model.ParseSnowflake(c.Param("id"))
	if err != nil || id.IsZero() {
		writeError(c, apperrors.BadRequest("invalid guild id"))
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal("internal error", err)
	}
	_ = c.Error(err)
	c.JSON(appErr.StatusCode, appErr.ToResponse())
}
