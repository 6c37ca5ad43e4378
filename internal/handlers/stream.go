package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garageboard/garageboard/internal/pkg/logger"
	"github.com/garageboard/garageboard/internal/realtime"
	"github.com/garageboard/garageboard/internal/realtime/bus"
)

type StreamHandler struct {
	log *logger.Logger
	bus bus.Bus
}

func NewStreamHandler(log *logger.Logger, changeBus bus.Bus) *StreamHandler {
	return &StreamHandler{
		log: log.With("handler", "StreamHandler"),
		bus: changeBus,
	}
}

// GET /api/garages/:garageID/stream
// Relays the shop's change feed as server-sent events so browser clients
// reconcile without polling.
func (h *StreamHandler) Stream(c *gin.Context) {
	garageID, err := uuid.Parse(c.Param("garageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid garage id"})
		return
	}

	events := make(chan realtime.ChangeEvent, 64)
	ctx := c.Request.Context()
	unsubscribe, err := h.bus.Subscribe(ctx, garageID, func(ev realtime.ChangeEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		default:
			// slow consumer; it will catch up on its next full fetch
		}
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			c.SSEvent(string(ev.Op), ev)
			return true
		}
	})
}
