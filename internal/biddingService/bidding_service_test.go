package bidding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/internal/realtime"
	"auction-house/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	ctx     = context.Background()
	fixedAt = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return fixedAt }

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

// runGuard makes the mocked RecordBid behave like a store holding item and bids
func runGuard(item model.Item, bids []model.Bid) func(context.Context, model.Bid, repository.BidGuard) error {
	return func(_ context.Context, _ model.Bid, guard repository.BidGuard) error {
		return guard(item, bids)
	}
}

// Tests PlaceBid
func TestBiddingService_PlaceBid(t *testing.T) {
	t.Parallel()

	openItem := model.Item{ItemID: "item1", OwnerID: "owner", StartingPrice: decimal.NewFromInt(50), EndTime: fixedAt.Add(time.Hour)}
	closedItem := model.Item{ItemID: "item1", OwnerID: "owner", StartingPrice: decimal.NewFromInt(50), EndTime: fixedAt}
	leading := []model.Bid{{BidID: "b0", ItemID: "item1", UserID: "user9", Amount: decimal.NewFromInt(100), CreatedAt: fixedAt.Add(-time.Minute)}}

	// Table-driven test cases
	tests := []struct {
		name          string
		itemID        string
		userID        string
		amount        string
		mockSetup     func(m *repository.MockAuctionDB)
		expectError   bool
		expectedError error
	}{
		{
			name:   "valid_first_bid",
			itemID: "item1",
			userID: "user1",
			amount: "100",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().RecordBid(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(runGuard(openItem, nil))
			},
		},
		{
			name:          "empty_itemID",
			itemID:        "",
			userID:        "user1",
			amount:        "50",
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "empty_userID",
			itemID:        "item1",
			userID:        "",
			amount:        "50",
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "zero_amount",
			itemID:        "item1",
			userID:        "user1",
			amount:        "0",
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "negative_amount",
			itemID:        "item1",
			userID:        "user1",
			amount:        "-50",
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "three_decimal_places",
			itemID:        "item1",
			userID:        "user1",
			amount:        "100.005",
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:          "too_large",
			itemID:        "item1",
			userID:        "user1",
			amount:        "100000000",
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:   "bid_too_low",
			itemID: "item1",
			userID: "user2",
			amount: "80",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().RecordBid(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(runGuard(openItem, leading))
			},
			expectError:   true,
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:   "bid_equal_to_current_price",
			itemID: "item1",
			userID: "user2",
			amount: "100.00",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().RecordBid(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(runGuard(openItem, leading))
			},
			expectError:   true,
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:   "auction_closed",
			itemID: "item1",
			userID: "user2",
			amount: "500",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().RecordBid(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(runGuard(closedItem, nil))
			},
			expectError:   true,
			expectedError: auctionerrors.ErrAuctionClosed,
		},
		{
			name:   "self_bid",
			itemID: "item1",
			userID: "owner",
			amount: "500",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().RecordBid(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(runGuard(openItem, nil))
			},
			expectError:   true,
			expectedError: auctionerrors.ErrSelfBid,
		},
		{
			name:   "item_not_found",
			itemID: "itemX",
			userID: "user1",
			amount: "500",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().RecordBid(gomock.Any(), gomock.Any(), gomock.Any()).Return(auctionerrors.ErrItemNotFound)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrItemNotFound,
		},
		{
			name:   "repo_fails",
			itemID: "item1",
			userID: "user3",
			amount: "120",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().RecordBid(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("repo write failed"))
			},
			expectError:   true,
			expectedError: nil, // Service wraps repo error, we don't match specific error here
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // Run tests concurrently

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockAuctionDB(ctrl)
			if tc.mockSetup != nil {
				tc.mockSetup(mockRepo)
			}
			events := &recordingPublisher{}
			service := NewBiddingService(mockRepo, WithClock(fixedClock), WithPublisher(events))

			amount := decimal.RequireFromString(tc.amount)
			bid, err := service.PlaceBid(ctx, tc.itemID, tc.userID, amount)

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
				require.Empty(t, events.events, "rejected bids publish nothing")
				return
			}

			require.NoError(t, err)

			// Validate generated BidID
			require.NotEmpty(t, bid.BidID)
			_, parseErr := uuid.Parse(bid.BidID)
			require.NoError(t, parseErr, "BidID should be a valid UUID")

			// Validate bid fields
			require.Equal(t, tc.itemID, bid.ItemID)
			require.Equal(t, tc.userID, bid.UserID)
			require.True(t, amount.Equal(bid.Amount))
			require.Equal(t, fixedAt, bid.CreatedAt)

			require.Len(t, events.events, 1)
			require.Equal(t, realtime.EventBidPlaced, events.events[0].Type)
			require.Equal(t, tc.itemID, events.events[0].ItemID)
		})
	}
}

// N simultaneous bids of the same amount against a real store: exactly one is accepted
func TestBiddingService_PlaceBid_ConcurrentSameAmount(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	repo.AddItem(model.Item{ItemID: "item1", OwnerID: "owner", StartingPrice: decimal.NewFromInt(10), EndTime: fixedAt.Add(time.Hour)})
	service := NewBiddingService(repo, WithClock(fixedClock))

	const bidders = 100
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		tooLow   int
		other    []error
	)
	amount := decimal.RequireFromString("25.50")

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.PlaceBid(ctx, "item1", fmt.Sprintf("user-%d", i), amount)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, auctionerrors.ErrBidTooLow):
				tooLow++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, other)
	require.Equal(t, 1, accepted)
	require.Equal(t, bidders-1, tooLow)

	winning, err := service.GetWinningBid(ctx, "item1")
	require.NoError(t, err)
	require.Equal(t, "25.5", winning.Amount.String())
}

// Accepted bids on a real store always raise the price
func TestBiddingService_PlaceBid_PriceIsMonotonic(t *testing.T) {
	t.Parallel()

	repo := repository.NewMemoryRepo()
	repo.AddItem(model.Item{ItemID: "item1", OwnerID: "owner", StartingPrice: decimal.NewFromInt(10), EndTime: fixedAt.Add(time.Hour)})
	service := NewBiddingService(repo, WithClock(fixedClock))

	for i, a := range []string{"11", "11", "10.99", "12.5", "12", "40"} {
		_, _ = service.PlaceBid(ctx, "item1", fmt.Sprintf("user-%d", i), decimal.RequireFromString(a))
	}

	bids, err := service.GetBidsForItem(ctx, "item1")
	require.NoError(t, err)
	amounts := make([]string, 0, len(bids))
	for _, b := range bids {
		amounts = append(amounts, b.Amount.String())
	}
	require.Equal(t, []string{"40", "12.5", "11"}, amounts)
}

func TestBiddingService_PlaceBid_TimestampMatchesStoredBid(t *testing.T) {
	t.Parallel()

	at := fixedAt.Add(123456789 * time.Nanosecond)
	repo := repository.NewMemoryRepo()
	repo.AddItem(model.Item{ItemID: "item1", OwnerID: "owner", StartingPrice: decimal.NewFromInt(10), EndTime: fixedAt.Add(time.Hour)})
	service := NewBiddingService(repo, WithClock(func() time.Time { return at }))

	bid, err := service.PlaceBid(ctx, "item1", "alice", decimal.NewFromInt(11))
	require.NoError(t, err)
	require.Equal(t, at.Truncate(time.Microsecond), bid.CreatedAt)
	require.Zero(t, bid.CreatedAt.Nanosecond()%1000)

	stored, err := service.GetWinningBid(ctx, "item1")
	require.NoError(t, err)
	require.Equal(t, bid, stored)
}

// Tests GetBidsForItem
func TestBiddingService_GetBidsForItem(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo)

	now := time.Now().UTC()

	// Initialize bids
	bidsExample := []model.Bid{
		{BidID: "bid2", ItemID: "item1", UserID: "user2", Amount: decimal.NewFromInt(150), CreatedAt: now.Add(1 * time.Second)},
		{BidID: "bid1", ItemID: "item1", UserID: "user1", Amount: decimal.NewFromInt(100), CreatedAt: now},
	}

	tests := []struct {
		name          string
		itemID        string
		mockSetup     func()
		expectError   bool
		expectedError error
		expectedBids  []model.Bid
	}{
		{
			name:   "valid_item_with_bids",
			itemID: "item1",
			mockSetup: func() {
				mockRepo.EXPECT().GetBidsByItem(gomock.Any(), "item1").Return(bidsExample, nil)
			},
			expectedBids: bidsExample,
		},
		{
			name:   "valid_item_no_bids",
			itemID: "item2",
			mockSetup: func() {
				mockRepo.EXPECT().GetBidsByItem(gomock.Any(), "item2").Return([]model.Bid{}, nil)
			},
			expectedBids: []model.Bid{},
		},
		{
			name:          "empty_itemID",
			itemID:        "",
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:   "unknown_item",
			itemID: "item3",
			mockSetup: func() {
				mockRepo.EXPECT().GetBidsByItem(gomock.Any(), "item3").Return(nil, auctionerrors.ErrItemNotFound)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrItemNotFound,
		},
		{
			name:   "repo_error",
			itemID: "item4",
			mockSetup: func() {
				mockRepo.EXPECT().GetBidsByItem(gomock.Any(), "item4").Return(nil, errors.New("db failure"))
			},
			expectError: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // Run tests concurrently

			tc.mockSetup()

			bids, err := service.GetBidsForItem(ctx, tc.itemID)

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.expectedBids, bids)
			}
		})
	}
}

// Test GetWinningBid
func TestBiddingService_GetWinningBid(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo)

	now := time.Now().UTC()

	// Table-driven test cases
	tests := []struct {
		name          string
		itemID        string
		mockSetup     func()
		expectedError error
		expectError   bool
	}{
		{
			name:   "valid_item_with_winning_bid",
			itemID: "item1",
			mockSetup: func() {
				mockRepo.EXPECT().GetWinningBid(gomock.Any(), "item1").Return(model.Bid{
					BidID:     uuid.NewString(),
					ItemID:    "item1",
					UserID:    "user1",
					Amount:    decimal.NewFromInt(100),
					CreatedAt: now,
				}, nil)
			},
		},
		{
			name:        "empty_itemID",
			itemID:      "",
			mockSetup:   func() {},
			expectError: true,
		},
		{
			name:   "repo_returns_no_bids",
			itemID: "item2",
			mockSetup: func() {
				mockRepo.EXPECT().GetWinningBid(gomock.Any(), "item2").Return(model.Bid{}, auctionerrors.ErrNoBids)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrNoBids,
		},
		{
			name:   "repo_returns_error",
			itemID: "item3",
			mockSetup: func() {
				mockRepo.EXPECT().GetWinningBid(gomock.Any(), "item3").Return(model.Bid{}, errors.New("repo error"))
			},
			expectError: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // Run tests concurrently

			tc.mockSetup()

			bid, err := service.GetWinningBid(ctx, tc.itemID)

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.ErrorIs(t, err, tc.expectedError)
				}
				return
			}
			require.NoError(t, err)

			// Validate bid fields
			require.NotEmpty(t, bid.BidID)
			_, err = uuid.Parse(bid.BidID)
			require.NoError(t, err, "BidID should be a valid UUID")
			require.Equal(t, tc.itemID, bid.ItemID)
			require.Equal(t, "user1", bid.UserID)
			require.Equal(t, "100", bid.Amount.String())
			require.WithinDuration(t, now, bid.CreatedAt, 1*time.Second)
		})
	}
}

// Test GetItemsByUser
func TestBiddingService_GetItemsByUser(t *testing.T) {
	ctrl := gomock.NewController(t)

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo)

	// initialize items
	itemsExample := []model.Item{
		{ItemID: "item1", Title: "title1", Description: "description1", StartingPrice: decimal.NewFromInt(1000)},
		{ItemID: "item2", Title: "title2", Description: "description2", StartingPrice: decimal.NewFromInt(500)},
	}

	// Table-driven test cases
	tests := []struct {
		name          string
		userID        string
		mockSetup     func()
		expectError   bool
		expectedError error
		expectedItems []model.Item
	}{
		{
			name:   "valid_user_with_items",
			userID: "user1",
			mockSetup: func() {
				mockRepo.EXPECT().GetItemsByBidder(gomock.Any(), "user1").Return(itemsExample, nil)
			},
			expectedItems: itemsExample,
		},
		{
			name:   "user_without_bids",
			userID: "user2",
			mockSetup: func() {
				mockRepo.EXPECT().GetItemsByBidder(gomock.Any(), "user2").Return(nil, auctionerrors.ErrUserNoBids)
			},
			expectError:   true,
			expectedError: auctionerrors.ErrUserNoBids,
		},
		{
			name:          "empty_userID",
			userID:        "",
			mockSetup:     func() {},
			expectError:   true,
			expectedError: auctionerrors.ErrInvalidBid,
		},
		{
			name:   "repo_error",
			userID: "user3",
			mockSetup: func() {
				mockRepo.EXPECT().GetItemsByBidder(gomock.Any(), "user3").Return(nil, errors.New("db failure"))
			},
			expectError: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel() // Run tests concurrently

			tc.mockSetup()

			items, err := service.GetItemsByUser(ctx, tc.userID)

			if tc.expectError {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.expectedItems, items)
			}
		})
	}
}
