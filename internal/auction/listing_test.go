package auction

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newListing(start string, bids ...models.Bid) Listing {
	return Listing{
		Item: models.Item{
			ItemID:        "item1",
			OwnerID:       "owner",
			Title:         "Lamp",
			StartingPrice: decimal.RequireFromString(start),
			EndTime:       base.Add(time.Hour),
			CreatedAt:     base,
		},
		Bids: bids,
	}
}

func bid(id, user, amount string, at time.Duration) models.Bid {
	return models.Bid{
		BidID:     id,
		ItemID:    "item1",
		UserID:    user,
		Amount:    decimal.RequireFromString(amount),
		CreatedAt: base.Add(at),
	}
}

func TestListing_NoBids(t *testing.T) {
	l := newListing("12.50")

	check.Equal(t, "12.5", l.CurrentPrice().String())
	leader, ok := l.Leader()
	check.False(t, ok)
	check.Equal(t, "", leader)

	_, ok = l.HighestBid()
	check.False(t, ok)
}

func TestListing_HighestBidWins(t *testing.T) {
	l := newListing("10",
		bid("b1", "alice", "15", time.Minute),
		bid("b2", "bob", "40", 2*time.Minute),
		bid("b3", "carol", "25", 3*time.Minute),
	)

	check.Equal(t, "40", l.CurrentPrice().String())
	leader, ok := l.Leader()
	check.True(t, ok)
	check.Equal(t, "bob", leader)
}

func TestListing_TieKeepsEarliestBid(t *testing.T) {
	l := newListing("10",
		bid("late", "bob", "30", 5*time.Minute),
		bid("early", "alice", "30", time.Minute),
	)

	top, ok := l.HighestBid()
	check.True(t, ok)
	check.Equal(t, "early", top.BidID)
	check.Equal(t, "alice", top.UserID)
}

func TestListing_IsOpen(t *testing.T) {
	l := newListing("10")

	check.True(t, l.IsOpen(base))
	check.True(t, l.IsOpen(l.Item.EndTime.Add(-time.Nanosecond)))
	check.False(t, l.IsOpen(l.Item.EndTime))
	check.False(t, l.IsOpen(l.Item.EndTime.Add(time.Second)))
}

func TestListing_CheckBid(t *testing.T) {
	open := base.Add(10 * time.Minute)
	ended := base.Add(time.Hour)

	tests := []struct {
		name    string
		listing Listing
		bidder  string
		amount  string
		now     time.Time
		wantErr error
	}{
		{name: "first_bid_above_start", listing: newListing("10"), bidder: "alice", amount: "10.01", now: open},
		{name: "first_bid_equal_start", listing: newListing("10"), bidder: "alice", amount: "10", now: open, wantErr: auctionerrors.ErrBidTooLow},
		{name: "below_start", listing: newListing("10"), bidder: "alice", amount: "9.99", now: open, wantErr: auctionerrors.ErrBidTooLow},
		{name: "equal_current", listing: newListing("10", bid("b1", "bob", "20", 0)), bidder: "alice", amount: "20.00", now: open, wantErr: auctionerrors.ErrBidTooLow},
		{name: "above_current", listing: newListing("10", bid("b1", "bob", "20", 0)), bidder: "alice", amount: "20.5", now: open},
		{name: "leader_raises_own_bid", listing: newListing("10", bid("b1", "bob", "20", 0)), bidder: "bob", amount: "21", now: open},
		{name: "self_bid", listing: newListing("10"), bidder: "owner", amount: "100", now: open, wantErr: auctionerrors.ErrSelfBid},
		{name: "closed_at_end_time", listing: newListing("10"), bidder: "alice", amount: "100", now: ended, wantErr: auctionerrors.ErrAuctionClosed},
		{name: "closed_beats_self_bid", listing: newListing("10"), bidder: "owner", amount: "100", now: ended, wantErr: auctionerrors.ErrAuctionClosed},
		{name: "self_bid_beats_too_low", listing: newListing("10"), bidder: "owner", amount: "1", now: open, wantErr: auctionerrors.ErrSelfBid},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.listing.CheckBid(tc.bidder, decimal.RequireFromString(tc.amount), tc.now)
			if tc.wantErr == nil {
				check.NoError(t, err)
				return
			}
			check.Error(t, err)
			check.True(t, errors.Is(err, tc.wantErr))
		})
	}
}

func TestListing_AcceptedBidsRaisePriceMonotonically(t *testing.T) {
	l := newListing("5")
	now := base.Add(time.Minute)
	amounts := []string{"1", "6", "6", "5.99", "7.5", "7", "100", "100.01", "50"}

	accepted := 0
	for i, a := range amounts {
		before := l.CurrentPrice()
		amount := decimal.RequireFromString(a)
		err := l.CheckBid(fmt.Sprintf("user%d", i), amount, now)
		if err != nil {
			check.True(t, errors.Is(err, auctionerrors.ErrBidTooLow))
			check.True(t, amount.LessThanOrEqual(before))
			continue
		}
		check.True(t, amount.GreaterThan(before))
		l.Bids = append(l.Bids, bid(fmt.Sprintf("b%d", i), fmt.Sprintf("user%d", i), a, time.Duration(i)*time.Second))
		check.True(t, l.CurrentPrice().GreaterThanOrEqual(before))
		accepted++
	}

	check.Equal(t, 4, accepted)
	check.Equal(t, "100.01", l.CurrentPrice().String())
}

func TestListing_View(t *testing.T) {
	l := newListing("10", bid("b1", "bob", "20", 0), bid("b2", "carol", "30", time.Minute))

	v := l.View(base)
	check.Equal(t, "item1", v.ItemID)
	check.Equal(t, "30", v.CurrentPrice.String())
	check.Equal(t, 2, v.BidCount)
	check.True(t, v.IsOpen)
	check.NotNil(t, v.LeaderID)
	check.Equal(t, "carol", *v.LeaderID)

	empty := newListing("10").View(base.Add(2 * time.Hour))
	check.Nil(t, empty.LeaderID)
	check.False(t, empty.IsOpen)
	check.Equal(t, "10", empty.CurrentPrice.String())
}

func TestSortBids(t *testing.T) {
	bids := SortBids([]models.Bid{
		bid("b1", "a", "10", 3*time.Second),
		bid("b2", "b", "30", 2*time.Second),
		bid("b3", "c", "10", time.Second),
		bid("b4", "d", "20", 0),
	})

	ids := make([]string, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.BidID)
	}
	check.Equal(t, []string{"b2", "b4", "b3", "b1"}, ids)
}

func TestCheckMoney(t *testing.T) {
	tests := []struct {
		amount string
		ok     bool
	}{
		{"0", true},
		{"0.01", true},
		{"12.5", true},
		{"99999999.99", true},
		{"100000000", false},
		{"-0.01", false},
		{"1.001", false},
		{"10.000", true},
	}

	for _, tc := range tests {
		t.Run(tc.amount, func(t *testing.T) {
			err := CheckMoney(decimal.RequireFromString(tc.amount))
			check.Equal(t, tc.ok, err == nil)
		})
	}
}

func TestFormatMoney(t *testing.T) {
	check.Equal(t, "£100.00", FormatMoney("£", decimal.NewFromInt(100)))
	check.Equal(t, "$12.50", FormatMoney("$", decimal.RequireFromString("12.5")))
}
