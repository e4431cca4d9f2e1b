package api

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 30 * time.Second

// stream serves priority snapshots as server-sent events until the client
// goes away or the broadcaster shuts down. ?disaster_id= narrows the stream
// to one disaster.
func (h *Handler) stream(c *gin.Context) {
	if h.broadcaster == nil {
		c.JSON(503, gin.H{"error": "stream unavailable"})
		return
	}

	disasterID := c.Query("disaster_id")
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	h.log.DebugContext(ctx, "stream subscriber connected", "subscriber", id, "disaster_id", disasterID)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			if disasterID == "" || snap.DisasterID == disasterID {
				c.SSEvent("snapshot", snap)
			}
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
	h.log.DebugContext(ctx, "stream subscriber disconnected", "subscriber", id)
}
