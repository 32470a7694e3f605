package handler

import (
	"context"

	catalog "auction-house/internal/catalogService"
	"auction-house/internal/models"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mock_services.go -package=handler

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, itemID, userID string, amount decimal.Decimal) (models.Bid, error)
	GetBidsForItem(ctx context.Context, itemID string) ([]models.Bid, error)
	GetWinningBid(ctx context.Context, itemID string) (models.Bid, error)
	GetItemsByUser(ctx context.Context, userID string) ([]models.Item, error)
}

type CatalogServiceInterface interface {
	CreateItem(ctx context.Context, ownerID string, in catalog.NewItem) (models.Item, error)
	GetItem(ctx context.Context, itemID string) (models.ItemDetail, error)
	ListItems(ctx context.Context, opts catalog.ListOptions) ([]models.ItemView, error)
	UpdateItem(ctx context.Context, userID, itemID string, upd catalog.ItemUpdate) (models.ItemDetail, error)
	DeleteItem(ctx context.Context, userID, itemID string) error
}

type QuestionServiceInterface interface {
	AskQuestion(ctx context.Context, itemID, askerID, text string) (models.Question, error)
	ListQuestions(ctx context.Context, itemID string) ([]models.Question, error)
	AnswerQuestion(ctx context.Context, questionID, responderID, text string) (models.Answer, error)
}
