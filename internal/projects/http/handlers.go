package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/go-sim-projects/internal/auth"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/logging"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/domain"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/livesync"
	"github.com/GoSim-25-26J-441/go-sim-projects/internal/projects/service"
)

func (h *Handler) projectService(c *gin.Context) *service.ProjectService {
	logger := logging.NewLogger(c.Request.Context(), h.log)
	return service.NewProjectService(h.store, auth.RequestOwner(c),
		service.WithLogger(logger.Slog()),
		service.WithMetrics(h.metrics),
	)
}

func (h *Handler) newSynchronizer(c *gin.Context) *livesync.Synchronizer {
	logger := logging.NewLogger(c.Request.Context(), h.log)
	return livesync.New(h.store,
		livesync.WithLogger(logger.Slog()),
		livesync.WithMetrics(h.metrics),
	)
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	id, err := h.projectService(c).Create(c.Request.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Description))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": id})
}

func (h *Handler) delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	if err := h.projectService(c).Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// list opens a short-lived subscription and answers with the first full set
// the store delivers.
func (h *Handler) list(c *gin.Context) {
	ownerID := auth.UserFirebaseUID(c)
	if ownerID == "" {
		writeError(c, domain.ErrUnauthenticated)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.snapshotTimeout)
	defer cancel()

	sync := h.newSynchronizer(c)
	defer sync.Close()

	views := sync.Watch(ctx)
	if err := sync.Open(ctx, ownerID); err != nil {
		writeError(c, err)
		return
	}

	for v := range views {
		switch v.State {
		case livesync.StateLive:
			body := toSnapshotDTO(v)
			c.JSON(http.StatusOK, gin.H{"ok": true, "projects": body.Projects, "message": body.Message})
			return
		case livesync.StateFailed:
			writeError(c, v.Err)
			return
		}
	}

	c.JSON(http.StatusGatewayTimeout, gin.H{"ok": false, "error": "timed out waiting for projects"})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidOwner):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrStoreWriteFailed):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrSubscriptionFailed):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
