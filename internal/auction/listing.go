package auction

import (
	"fmt"
	"sort"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"

	"github.com/shopspring/decimal"
)

// Listing is an item together with its complete bid set.
//
// Every derived value (open state, current price, leader) is computed from the
// bid set on each call. Nothing is cached, so a Listing built inside the same
// atomic scope as a bid insertion always judges that bid against the live price.
type Listing struct {
	Item models.Item
	Bids []models.Bid
}

// IsOpen reports whether the auction accepts bids at now. The auction closes at
// EndTime exactly: now == EndTime is already closed.
func (l Listing) IsOpen(now time.Time) bool {
	return now.Before(l.Item.EndTime)
}

// HighestBid returns the bid holding the lead.
//
// The lead goes to the largest amount; among equal amounts the earliest bid
// stands. Equal amounts can only appear in data loaded from elsewhere, since
// bids placed through CheckBid must strictly exceed the current price.
func (l Listing) HighestBid() (models.Bid, bool) {
	if len(l.Bids) == 0 {
		return models.Bid{}, false
	}

	winning := l.Bids[0]
	for _, b := range l.Bids[1:] {
		if b.Amount.GreaterThan(winning.Amount) ||
			(b.Amount.Equal(winning.Amount) && b.CreatedAt.Before(winning.CreatedAt)) {
			winning = b
		}
	}
	return winning, true
}

// CurrentPrice is the highest bid amount, or the starting price when nobody has bid.
func (l Listing) CurrentPrice() decimal.Decimal {
	if top, ok := l.HighestBid(); ok {
		return top.Amount
	}
	return l.Item.StartingPrice
}

// Leader returns the id of the user holding the highest bid.
func (l Listing) Leader() (string, bool) {
	top, ok := l.HighestBid()
	if !ok {
		return "", false
	}
	return top.UserID, true
}

// CheckBid decides whether bidderID may bid amount at now.
//
// Checks run in a fixed order, so a bid that breaks several rules always
// reports the first one:
//  1. ErrAuctionClosed when the auction has ended
//  2. ErrSelfBid when the bidder owns the item
//  3. ErrBidTooLow when amount does not strictly exceed CurrentPrice
func (l Listing) CheckBid(bidderID string, amount decimal.Decimal, now time.Time) error {
	if !l.IsOpen(now) {
		return fmt.Errorf("%w - ended at %s", auctionerrors.ErrAuctionClosed, l.Item.EndTime.UTC().Format(time.RFC3339))
	}
	if bidderID == l.Item.OwnerID {
		return auctionerrors.ErrSelfBid
	}
	current := l.CurrentPrice()
	if amount.LessThanOrEqual(current) {
		return fmt.Errorf("%w - current price is %s", auctionerrors.ErrBidTooLow, current.StringFixed(monetaryPrecision))
	}
	return nil
}

// View snapshots the derived state at now.
func (l Listing) View(now time.Time) models.ItemView {
	view := models.ItemView{
		Item:         l.Item,
		CurrentPrice: l.CurrentPrice(),
		BidCount:     len(l.Bids),
		IsOpen:       l.IsOpen(now),
	}
	if leader, ok := l.Leader(); ok {
		view.LeaderID = &leader
	}
	return view
}

// SortBids orders bids highest amount first, earliest first among equal amounts.
// The slice is sorted in place and returned for convenience.
func SortBids(bids []models.Bid) []models.Bid {
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].Amount.Equal(bids[j].Amount) {
			return bids[i].Amount.GreaterThan(bids[j].Amount)
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	return bids
}
