package server

import (
	"context"
	"net/http"

	"auction-house/internal/models"
	"auction-house/internal/realtime"
	handler "auction-house/services/auction/handler"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// Store is the part of the persistence layer the router talks to directly
type Store interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
	GetItem(ctx context.Context, itemID string) (models.Item, error)
	Health(ctx context.Context) map[string]string
}

// Dependencies wires the router to the services behind it
type Dependencies struct {
	Bidding   handler.BiddingServiceInterface
	Catalog   handler.CatalogServiceInterface
	Questions handler.QuestionServiceInterface
	Store     Store
	Hub       *realtime.Hub
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(deps.Bidding)
	itemHandler := handler.NewItemHandler(deps.Catalog)
	questionHandler := handler.NewQuestionHandler(deps.Questions)

	router.GET("/health", healthHandler(deps.Store))

	// reads accept an optional identity, writes demand one
	reader := IdentifyUser(deps.Store, false)
	writer := IdentifyUser(deps.Store, true)

	items := router.Group("/items")
	{
		items.GET("", reader, itemHandler.ListItemsHandler)
		items.POST("", writer, itemHandler.CreateItemHandler)
		items.GET("/:item_id", reader, itemHandler.GetItemHandler)
		items.PUT("/:item_id", writer, itemHandler.UpdateItemHandler)
		items.DELETE("/:item_id", writer, itemHandler.DeleteItemHandler)

		items.GET("/:item_id/bids", reader, biddingHandler.GetBidsByItemHandler)
		items.POST("/:item_id/bids", writer, biddingHandler.PlaceBidHandler)
		items.GET("/:item_id/winning", reader, biddingHandler.GetWinningBidHandler)

		items.GET("/:item_id/questions", reader, questionHandler.ListQuestionsHandler)
		items.POST("/:item_id/questions", writer, questionHandler.AskQuestionHandler)

		if deps.Hub != nil {
			items.GET("/:item_id/live", deps.Hub.Handler(deps.Store))
		}
	}

	questions := router.Group("/questions")
	{
		questions.POST("/:question_id/answers", writer, questionHandler.AnswerQuestionHandler)
	}

	users := router.Group("/users")
	{
		users.GET("/:user_id/items", reader, biddingHandler.GetItemsByUserHandler)
	}

	return router
}

func healthHandler(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := store.Health(c.Request.Context())
		if stats["status"] != "up" {
			utils.Warn("health check failed", map[string]any{"stats": stats})
			c.JSON(http.StatusServiceUnavailable, stats)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
