package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/livesync"
)

// stream pushes the owner's project list using Server-Sent Events (SSE).
// Every snapshot is sent as a "snapshot" event carrying the full list; a
// terminated subscription is reported once as an "error" event and ends the
// stream.
func (h *Handler) stream(c *gin.Context) {
	ownerID := auth.UserFirebaseUID(c)
	if ownerID == "" {
		writeError(c, domain.ErrUnauthenticated)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	sync := h.newSynchronizer(c)
	defer sync.Close()

	views := sync.Watch(ctx)
	if err := sync.Open(ctx, ownerID); err != nil {
		writeError(c, err)
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering
	c.Status(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case v, ok := <-views:
			if !ok {
				return
			}
			switch v.State {
			case livesync.StateLive:
				writeEvent(c, "snapshot", toSnapshotDTO(v))
				flusher.Flush()
			case livesync.StateFailed:
				writeEvent(c, "error", gin.H{"error": v.Err.Error()})
				flusher.Flush()
				return
			}
		}
	}
}

func writeEvent(c *gin.Context, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{}`)
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
}
