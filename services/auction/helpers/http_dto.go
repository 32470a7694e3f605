package helpers

import (
	"time"

	"auction-house/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type CreateItemRequest struct {
	Title         string           `json:"title" binding:"required"`
	Description   string           `json:"description" binding:"required"`
	StartingPrice *decimal.Decimal `json:"starting_price" binding:"required"`
	EndTime       *time.Time       `json:"end_time" binding:"required"`
}

// UpdateItemRequest is a partial update; omitted fields stay as they are
type UpdateItemRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	StartingPrice *decimal.Decimal `json:"starting_price"`
	EndTime       *time.Time       `json:"end_time"`
}

// TextRequest is the body of both questions and answers
type TextRequest struct {
	Text string `json:"text" binding:"required"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	ItemID    string `json:"item_id"`
	UserID    string `json:"user_id"`
	Amount    string `json:"amount"`
	CreatedAt string `json:"created_at"`
}

func NewBidResponse(bid models.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		ItemID:    bid.ItemID,
		UserID:    bid.UserID,
		Amount:    bid.Amount.StringFixed(2),
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func NewBidResponses(bids []models.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b))
	}
	return out
}
