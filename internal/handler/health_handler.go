package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"event-service/internal/database"
)

// ConnectionCounter reports the number of live websocket connections.
type ConnectionCounter interface {
	Count() int
}

type HealthHandler struct {
	redis       *redis.Client
	connections ConnectionCounter
}

func NewHealthHandler(redis *redis.Client, connections ConnectionCounter) *HealthHandler {
	return &HealthHandler{
		redis:       redis,
		connections: connections,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"service": "event-service",
	}
	if h.connections != nil {
		body["connections"] = h.connections.Count()
	}
	c.JSON(http.StatusOK, body)
}

// Ready reports whether the service can take traffic. The database comes up
// asynchronously, so readiness flips once the connection is established.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if !database.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  "database not reachable",
		})
		return
	}

	// Redis is optional: without it live push is disabled but the service
	// still serves catch-up queries.
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "redis not reachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}
