package handler

import (
	"net/http"
	"strconv"

	"auction-house/internal/auctionerrors"
	catalog "auction-house/internal/catalogService"
	"auction-house/services/auction/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

type ItemHandler struct {
	service CatalogServiceInterface
}

func NewItemHandler(service CatalogServiceInterface) *ItemHandler {
	return &ItemHandler{service: service}
}

// ListItemsHandler handles GET /items?all=true&mine=true
func (h *ItemHandler) ListItemsHandler(c *gin.Context) {
	includeClosed, _ := strconv.ParseBool(c.Query("all"))
	mine, _ := strconv.ParseBool(c.Query("mine"))

	opts := catalog.ListOptions{IncludeClosed: includeClosed}
	if mine {
		opts.OwnerID = helpers.CallerID(c)
		if opts.OwnerID == "" {
			helpers.RespondError(c, "ListItemsHandler", auctionerrors.ErrUnauthenticated, nil)
			return
		}
	}

	views, err := h.service.ListItems(c.Request.Context(), opts)
	if err != nil {
		helpers.RespondError(c, "ListItemsHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, views, "items retrieved successfully")
	helpers.LogSuccess("ListItemsHandler", "items retrieved successfully", map[string]any{
		"count": len(views),
		"all":   includeClosed,
		"mine":  mine,
	})
}

// CreateItemHandler handles POST /items
func (h *ItemHandler) CreateItemHandler(c *gin.Context) {
	ownerID := helpers.CallerID(c)

	var req helpers.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateItemHandler", err)
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), ownerID, catalog.NewItem{
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: *req.StartingPrice,
		EndTime:       *req.EndTime,
	})
	if err != nil {
		helpers.RespondError(c, "CreateItemHandler", err, map[string]any{"owner_id": ownerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, item, "item created successfully")
	helpers.LogSuccess("CreateItemHandler", "item created successfully", map[string]any{
		"item_id":  item.ItemID,
		"owner_id": ownerID,
	})
}

// GetItemHandler handles GET /items/:item_id
func (h *ItemHandler) GetItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	detail, err := h.service.GetItem(c.Request.Context(), itemID)
	if err != nil {
		helpers.RespondError(c, "GetItemHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, detail, "item retrieved successfully")
}

// UpdateItemHandler handles PUT /items/:item_id
func (h *ItemHandler) UpdateItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	userID := helpers.CallerID(c)

	var req helpers.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateItemHandler", err)
		return
	}

	detail, err := h.service.UpdateItem(c.Request.Context(), userID, itemID, catalog.ItemUpdate{
		Title:         req.Title,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
		EndTime:       req.EndTime,
	})
	if err != nil {
		helpers.RespondError(c, "UpdateItemHandler", err, map[string]any{"item_id": itemID, "user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, detail, "item updated successfully")
	helpers.LogSuccess("UpdateItemHandler", "item updated successfully", map[string]any{"item_id": itemID})
}

// DeleteItemHandler handles DELETE /items/:item_id
func (h *ItemHandler) DeleteItemHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	userID := helpers.CallerID(c)

	if err := h.service.DeleteItem(c.Request.Context(), userID, itemID); err != nil {
		helpers.RespondError(c, "DeleteItemHandler", err, map[string]any{"item_id": itemID, "user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"item_id": itemID}, "item deleted successfully")
	helpers.LogSuccess("DeleteItemHandler", "item deleted successfully", map[string]any{"item_id": itemID})
}
