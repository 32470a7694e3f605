package realtime

import (
	"context"
	"errors"
	"net/http"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ItemGetter resolves the item a client wants to watch
type ItemGetter interface {
	GetItem(ctx context.Context, itemID string) (models.Item, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed only carries public item data.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades GET /items/:item_id/live to a WebSocket subscribed to that item
func (h *Hub) Handler(items ItemGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID := c.Param("item_id")

		if _, err := items.GetItem(c.Request.Context(), itemID); err != nil {
			if errors.Is(err, auctionerrors.ErrItemNotFound) {
				utils.JSONError(c, http.StatusNotFound, "ITEM_NOT_FOUND", err, "Item not found")
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "INTERNAL", err, "Internal server error")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader has already written an HTTP error
			utils.Warn("live feed upgrade failed", map[string]any{"item_id": itemID, "error": err.Error()})
			return
		}

		client := newClient(utils.GenerateID(), itemID, conn)
		h.subscribe(client)
		utils.Debug("live client connected", map[string]any{"item_id": itemID, "client": client.id})

		go client.writePump()
		go client.readPump(h)
	}
}
