package inbound

import "github.com/gin-gonic/gin"

// SystemHttpPort defines HTTP handler interface for liveness and readiness.
type SystemHttpPort interface {
	// Health handles GET /health
	Health(c *gin.Context)

	// Ready handles GET /ready
	Ready(c *gin.Context)
}

// DebugHttpPort defines HTTP handler interface for platform introspection.
type DebugHttpPort interface {
	// ListGuilds handles GET /debug/guilds
	ListGuilds(c *gin.Context)

	// ListChannels handles GET /debug/guilds/:id/channels
	ListChannels(c *gin.Context)

	// ListRoles handles GET /debug/guilds/:id/roles
	ListRoles(c *gin.Context)

	// ListInvites handles GET /debug/guilds/:id/invites
	ListInvites(c *gin.Context)
}
