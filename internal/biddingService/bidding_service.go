package bidding

import (
	"context"
	"fmt"
	"time"

	"auction-house/internal/auction"
	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/realtime"
	"auction-house/internal/repository"
	"auction-house/utils"

	"github.com/shopspring/decimal"
)

// Publisher receives an event for every accepted bid
type Publisher interface {
	Publish(ev realtime.Event)
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo   repository.AuctionDB
	events Publisher
	now    func() time.Time
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *BiddingService) { s.now = now }
}

// WithPublisher sends bid_placed events to p
func WithPublisher(p Publisher) Option {
	return func(s *BiddingService) { s.events = p }
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceBid validates and records a user's bid for an item.
// The open, self-bid and price checks run inside the store's atomic insert, so two
// concurrent bids can never both be accepted against the same price.
func (s *BiddingService) PlaceBid(ctx context.Context, itemID, userID string, amount decimal.Decimal) (models.Bid, error) {
	if err := validateBid(itemID, userID, amount); err != nil {
		return models.Bid{}, err
	}

	// placed_at is stored with microsecond precision; the returned bid must match what is read back
	now := s.now().UTC().Truncate(time.Microsecond)
	bid := models.Bid{
		BidID:     utils.GenerateID(),
		ItemID:    itemID,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: now,
	}

	guard := func(item models.Item, bids []models.Bid) error {
		return auction.Listing{Item: item, Bids: bids}.CheckBid(userID, amount, now)
	}

	if err := s.repo.RecordBid(ctx, bid, guard); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to record bid for item %s by user %s: %w", itemID, userID, err)
	}

	utils.Info("bid placed", map[string]any{"item_id": itemID, "user_id": userID, "amount": amount.StringFixed(2)})

	if s.events != nil {
		s.events.Publish(realtime.Event{
			Type:   realtime.EventBidPlaced,
			ItemID: itemID,
			At:     now,
			Data: map[string]any{
				"bid_id":        bid.BidID,
				"user_id":       userID,
				"amount":        amount,
				"current_price": amount,
			},
		})
	}

	return bid, nil
}

// validateBid checks the request shape. Auction rules are checked by the guard.
func validateBid(itemID, userID string, amount decimal.Decimal) error {
	if itemID == "" || userID == "" {
		return fmt.Errorf("service: %w - missing itemID or userID", auctionerrors.ErrInvalidBid)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}
	if err := auction.CheckMoney(amount); err != nil {
		return fmt.Errorf("service: %w - %v", auctionerrors.ErrInvalidBid, err)
	}
	return nil
}

// GetBidsForItem returns all bids for a specific item, highest first
func (s *BiddingService) GetBidsForItem(ctx context.Context, itemID string) ([]models.Bid, error) {
	if itemID == "" {
		return nil, fmt.Errorf("service: %w - empty item ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for item %s: %w", itemID, err)
	}

	return bids, nil
}

// GetWinningBid returns the highest bid for a specific item
func (s *BiddingService) GetWinningBid(ctx context.Context, itemID string) (models.Bid, error) {
	if itemID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty item ID", auctionerrors.ErrInvalidBid)
	}

	winningBid, err := s.repo.GetWinningBid(ctx, itemID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get winning bid for item %s: %w", itemID, err)
	}

	return winningBid, nil
}

// GetItemsByUser returns all items a user has placed bids on
func (s *BiddingService) GetItemsByUser(ctx context.Context, userID string) ([]models.Item, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrInvalidBid)
	}

	items, err := s.repo.GetItemsByBidder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get items for user %s: %w", userID, err)
	}

	return items, nil
}
