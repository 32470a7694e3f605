package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"auction-house/internal/auction"
	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"

	"github.com/shopspring/decimal"
)

const (
	maxTitleLength = 200
	recentBidLimit = 10
)

// NewItem is the owner's input for a listing
type NewItem struct {
	Title         string
	Description   string
	StartingPrice decimal.Decimal
	EndTime       time.Time
}

// ItemUpdate carries the fields an owner wants to change. Nil fields are left alone.
type ItemUpdate struct {
	Title         *string
	Description   *string
	StartingPrice *decimal.Decimal
	EndTime       *time.Time // always rejected: the end of an auction is fixed at creation
}

// ListOptions narrows ListItems
type ListOptions struct {
	OwnerID       string
	IncludeClosed bool
}

// CatalogService manages item listings and their derived views
type CatalogService struct {
	repo repository.AuctionDB
	now  func() time.Time
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(repo repository.AuctionDB, now func() time.Time) *CatalogService {
	if now == nil {
		now = time.Now
	}
	return &CatalogService{repo: repo, now: now}
}

// CreateItem validates and stores a new listing owned by ownerID
func (s *CatalogService) CreateItem(ctx context.Context, ownerID string, in NewItem) (models.Item, error) {
	now := s.now().UTC().Truncate(time.Microsecond)

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if err := validateListing(title, description, in.StartingPrice); err != nil {
		return models.Item{}, err
	}
	if !in.EndTime.After(now) {
		return models.Item{}, fmt.Errorf("service: %w - end time must be in the future", auctionerrors.ErrInvalidItem)
	}

	item := models.Item{
		ItemID:        utils.GenerateID(),
		OwnerID:       ownerID,
		Title:         title,
		Description:   description,
		StartingPrice: in.StartingPrice,
		EndTime:       in.EndTime.UTC().Truncate(time.Microsecond),
		CreatedAt:     now,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return models.Item{}, fmt.Errorf("service: failed to create item for user %s: %w", ownerID, err)
	}

	utils.Info("item listed", map[string]any{"item_id": item.ItemID, "owner_id": ownerID, "end_time": item.EndTime})
	return item, nil
}

// GetItem returns the item with its derived state, latest bids and Q&A thread
func (s *CatalogService) GetItem(ctx context.Context, itemID string) (models.ItemDetail, error) {
	if itemID == "" {
		return models.ItemDetail{}, fmt.Errorf("service: %w - empty item ID", auctionerrors.ErrInvalidItem)
	}

	listing, err := s.listing(ctx, itemID)
	if err != nil {
		return models.ItemDetail{}, err
	}

	questions, err := s.repo.GetQuestionsByItem(ctx, itemID)
	if err != nil {
		return models.ItemDetail{}, fmt.Errorf("service: failed to get questions for item %s: %w", itemID, err)
	}

	recent := listing.Bids
	if len(recent) > recentBidLimit {
		recent = recent[:recentBidLimit]
	}

	return models.ItemDetail{
		ItemView:   listing.View(s.now()),
		RecentBids: recent,
		Questions:  questions,
	}, nil
}

// ListItems returns item views newest first. Closed auctions are skipped unless requested.
func (s *CatalogService) ListItems(ctx context.Context, opts ListOptions) ([]models.ItemView, error) {
	now := s.now()

	filter := repository.ItemFilter{OwnerID: opts.OwnerID}
	if !opts.IncludeClosed {
		filter.OpenAt = now
	}

	items, err := s.repo.ListItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list items: %w", err)
	}

	views := make([]models.ItemView, 0, len(items))
	for _, item := range items {
		bids, err := s.repo.GetBidsByItem(ctx, item.ItemID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to get bids for item %s: %w", item.ItemID, err)
		}
		views = append(views, auction.Listing{Item: item, Bids: bids}.View(now))
	}
	return views, nil
}

// UpdateItem applies an owner's edit.
// Settled items are frozen, and the starting price only moves while nobody has bid. The checks
// run inside the store's atomic update, so a bid or settlement racing the edit is always seen.
func (s *CatalogService) UpdateItem(ctx context.Context, userID, itemID string, upd ItemUpdate) (models.ItemDetail, error) {
	if itemID == "" {
		return models.ItemDetail{}, fmt.Errorf("service: %w - empty item ID", auctionerrors.ErrInvalidItem)
	}

	edit := func(item *models.Item, bids []models.Bid) error {
		if item.OwnerID != userID {
			return fmt.Errorf("service: %w - only the owner can edit item %s", auctionerrors.ErrPermissionDenied, itemID)
		}
		if item.Settled {
			return fmt.Errorf("service: %w - item %s can no longer be edited", auctionerrors.ErrItemSettled, itemID)
		}
		if upd.EndTime != nil && !upd.EndTime.Equal(item.EndTime) {
			return fmt.Errorf("service: %w - end time cannot be changed", auctionerrors.ErrInvalidItem)
		}

		if upd.Title != nil {
			item.Title = strings.TrimSpace(*upd.Title)
		}
		if upd.Description != nil {
			item.Description = strings.TrimSpace(*upd.Description)
		}
		if upd.StartingPrice != nil && !upd.StartingPrice.Equal(item.StartingPrice) {
			if len(bids) > 0 {
				return fmt.Errorf("service: %w - starting price cannot change once bids exist", auctionerrors.ErrInvalidItem)
			}
			item.StartingPrice = *upd.StartingPrice
		}
		return validateListing(item.Title, item.Description, item.StartingPrice)
	}

	if _, err := s.repo.UpdateItem(ctx, itemID, edit); err != nil {
		return models.ItemDetail{}, fmt.Errorf("service: failed to update item %s: %w", itemID, err)
	}

	utils.Info("item updated", map[string]any{"item_id": itemID, "owner_id": userID})
	return s.GetItem(ctx, itemID)
}

// DeleteItem removes an owner's item along with its bids and questions
func (s *CatalogService) DeleteItem(ctx context.Context, userID, itemID string) error {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("service: failed to get item %s: %w", itemID, err)
	}
	if item.OwnerID != userID {
		return fmt.Errorf("service: %w - only the owner can delete item %s", auctionerrors.ErrPermissionDenied, itemID)
	}

	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("service: failed to delete item %s: %w", itemID, err)
	}

	utils.Info("item deleted", map[string]any{"item_id": itemID, "owner_id": userID})
	return nil
}

func (s *CatalogService) listing(ctx context.Context, itemID string) (auction.Listing, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return auction.Listing{}, fmt.Errorf("service: failed to get item %s: %w", itemID, err)
	}
	bids, err := s.repo.GetBidsByItem(ctx, itemID)
	if err != nil {
		return auction.Listing{}, fmt.Errorf("service: failed to get bids for item %s: %w", itemID, err)
	}
	return auction.Listing{Item: item, Bids: bids}, nil
}

func validateListing(title, description string, startingPrice decimal.Decimal) error {
	if title == "" {
		return fmt.Errorf("service: %w - title is required", auctionerrors.ErrInvalidItem)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("service: %w - title longer than %d characters", auctionerrors.ErrInvalidItem, maxTitleLength)
	}
	if description == "" {
		return fmt.Errorf("service: %w - description is required", auctionerrors.ErrInvalidItem)
	}
	if err := auction.CheckMoney(startingPrice); err != nil {
		return fmt.Errorf("service: %w - starting price: %v", auctionerrors.ErrInvalidItem, err)
	}
	return nil
}
