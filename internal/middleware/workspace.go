package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"event-service/internal/response"
)

const (
	WorkspaceHeader     = "X-Workspace-ID"
	WorkspaceContextKey = "workspace_id"
)

// WorkspaceMiddleware extracts the workspace scope from the X-Workspace-ID
// header. Every tenant-scoped route requires it; requests without a
// workspace are rejected before reaching handlers.
func WorkspaceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID := c.GetHeader(WorkspaceHeader)
		if workspaceID == "" {
			workspaceID = c.Query("workspaceId")
		}
		if workspaceID == "" {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Workspace ID is required")
			c.Abort()
			return
		}

		c.Set(WorkspaceContextKey, workspaceID)
		c.Next()
	}
}

// GetWorkspaceID returns the workspace scope set by WorkspaceMiddleware.
func GetWorkspaceID(c *gin.Context) string {
	return c.GetString(WorkspaceContextKey)
}
