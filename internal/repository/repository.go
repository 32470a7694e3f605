package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-house/internal/auction"
	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository

// BidGuard decides whether a bid may be inserted given the item and its complete bid set.
// It runs inside the same atomic scope as the insertion.
type BidGuard func(item model.Item, bids []model.Bid) error

// ItemEdit changes an item's listing fields in place, given its stored state and complete bid set.
// It runs inside the same atomic scope as the write; returning an error leaves the item untouched.
// Only Title, Description and StartingPrice are persisted from the edited copy.
type ItemEdit func(item *model.Item, bids []model.Bid) error

// ItemFilter narrows ListItems. Zero values disable a filter.
type ItemFilter struct {
	OwnerID string
	OpenAt  time.Time // only items whose auction is still open at this instant
}

// AuctionDB defines the storage interface for the auction system
type AuctionDB interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, userID string) (model.User, error)

	CreateItem(ctx context.Context, item model.Item) error
	GetItem(ctx context.Context, itemID string) (model.Item, error)
	UpdateItem(ctx context.Context, itemID string, edit ItemEdit) (model.Item, error)
	DeleteItem(ctx context.Context, itemID string) error
	ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error)

	RecordBid(ctx context.Context, bid model.Bid, guard BidGuard) error
	GetBidsByItem(ctx context.Context, itemID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, itemID string) (model.Bid, error)
	GetItemsByBidder(ctx context.Context, userID string) ([]model.Item, error)

	CreateQuestion(ctx context.Context, q model.Question) error
	GetQuestion(ctx context.Context, questionID string) (model.Question, error)
	GetQuestionsByItem(ctx context.Context, itemID string) ([]model.Question, error)
	CreateAnswer(ctx context.Context, a model.Answer) error

	GetPendingSettlement(ctx context.Context, now time.Time) ([]model.Item, error)
	MarkSettled(ctx context.Context, itemID string) error

	Health(ctx context.Context) map[string]string
}

var _ AuctionDB = (*MemoryRepo)(nil)

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu        sync.RWMutex
	users     map[string]model.User
	items     map[string]model.Item
	bids      map[string][]model.Bid    // key: itemID -> value: list of bids
	userItems map[string][]string       // key: userID -> value: list of itemIDs user has bid on
	questions map[string]model.Question // key: questionID
	itemQs    map[string][]string       // key: itemID -> value: questionIDs in insertion order
	answers   map[string][]model.Answer // key: questionID -> value: answers oldest first
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:     make(map[string]model.User),
		items:     make(map[string]model.Item),
		bids:      make(map[string][]model.Bid),
		userItems: make(map[string][]string),
		questions: make(map[string]model.Question),
		itemQs:    make(map[string][]string),
		answers:   make(map[string][]model.Answer),
	}
}

// CreateUser stores a new user
func (r *MemoryRepo) CreateUser(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.UserID]; ok {
		return fmt.Errorf("create user %s: %w", user.UserID, auctionerrors.ErrDuplicateUser)
	}
	r.users[user.UserID] = user
	return nil
}

// GetUser returns a user by id
func (r *MemoryRepo) GetUser(_ context.Context, userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return user, nil
}

// CreateItem stores a new item
func (r *MemoryRepo) CreateItem(_ context.Context, item model.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[item.OwnerID]; !ok {
		return fmt.Errorf("create item %s: owner %s: %w", item.ItemID, item.OwnerID, auctionerrors.ErrUserNotFound)
	}
	r.items[item.ItemID] = item
	return nil
}

// GetItem returns an item by id
func (r *MemoryRepo) GetItem(_ context.Context, itemID string) (model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemID]
	if !ok {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	return item, nil
}

// UpdateItem applies edit to an existing item under the write lock, so no bid or settlement can
// land between edit's checks and the write. EndTime, OwnerID, CreatedAt and Settled never change here.
func (r *MemoryRepo) UpdateItem(_ context.Context, itemID string, edit ItemEdit) (model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[itemID]
	if !ok {
		return model.Item{}, fmt.Errorf("update item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}

	edited := stored
	if err := edit(&edited, auction.SortBids(append([]model.Bid(nil), r.bids[itemID]...))); err != nil {
		return model.Item{}, err
	}
	stored.Title = edited.Title
	stored.Description = edited.Description
	stored.StartingPrice = edited.StartingPrice
	r.items[itemID] = stored
	return stored, nil
}

// DeleteItem removes an item together with its bids, questions and answers
func (r *MemoryRepo) DeleteItem(_ context.Context, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[itemID]; !ok {
		return fmt.Errorf("delete item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}

	for _, b := range r.bids[itemID] {
		r.userItems[b.UserID] = removeID(r.userItems[b.UserID], itemID)
		if len(r.userItems[b.UserID]) == 0 {
			delete(r.userItems, b.UserID)
		}
	}
	for _, qid := range r.itemQs[itemID] {
		delete(r.questions, qid)
		delete(r.answers, qid)
	}
	delete(r.itemQs, itemID)
	delete(r.bids, itemID)
	delete(r.items, itemID)
	return nil
}

// ListItems returns items newest first
func (r *MemoryRepo) ListItems(_ context.Context, filter ItemFilter) ([]model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]model.Item, 0, len(r.items))
	for _, item := range r.items {
		if filter.OwnerID != "" && item.OwnerID != filter.OwnerID {
			continue
		}
		if !filter.OpenAt.IsZero() && !filter.OpenAt.Before(item.EndTime) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ItemID < items[j].ItemID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// RecordBid appends a bid if guard accepts it. The write lock makes guard and append one atomic unit.
func (r *MemoryRepo) RecordBid(_ context.Context, bid model.Bid, guard BidGuard) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[bid.ItemID]
	if !ok {
		return fmt.Errorf("record bid for item %s: %w", bid.ItemID, auctionerrors.ErrItemNotFound)
	}

	if guard != nil {
		if err := guard(item, append([]model.Bid(nil), r.bids[bid.ItemID]...)); err != nil {
			return err
		}
	}

	r.bids[bid.ItemID] = append(r.bids[bid.ItemID], bid)

	for _, id := range r.userItems[bid.UserID] {
		if id == bid.ItemID {
			return nil
		}
	}
	r.userItems[bid.UserID] = append(r.userItems[bid.UserID], bid.ItemID)

	return nil
}

// GetBidsByItem returns all bids for an item, highest first
func (r *MemoryRepo) GetBidsByItem(_ context.Context, itemID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.items[itemID]; !ok {
		return nil, fmt.Errorf("get bids for item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	return auction.SortBids(append([]model.Bid{}, r.bids[itemID]...)), nil
}

// GetWinningBid returns the highest bid for an item
func (r *MemoryRepo) GetWinningBid(_ context.Context, itemID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemID]
	if !ok {
		return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}

	winning, ok := auction.Listing{Item: item, Bids: r.bids[itemID]}.HighestBid()
	if !ok {
		return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemID, auctionerrors.ErrNoBids)
	}
	return winning, nil
}

// GetItemsByBidder returns all items a user has bid on
func (r *MemoryRepo) GetItemsByBidder(_ context.Context, userID string) ([]model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	itemIDs, ok := r.userItems[userID]
	if !ok || len(itemIDs) == 0 {
		return nil, fmt.Errorf("get items for user %s: %w", userID, auctionerrors.ErrUserNoBids)
	}

	items := make([]model.Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		if item, exists := r.items[id]; exists {
			items = append(items, item)
		}
	}
	return items, nil
}

// CreateQuestion stores a question on an existing item
func (r *MemoryRepo) CreateQuestion(_ context.Context, q model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[q.ItemID]; !ok {
		return fmt.Errorf("create question on item %s: %w", q.ItemID, auctionerrors.ErrItemNotFound)
	}
	q.Answers = nil
	r.questions[q.QuestionID] = q
	r.itemQs[q.ItemID] = append(r.itemQs[q.ItemID], q.QuestionID)
	return nil
}

// GetQuestion returns a question with its answers
func (r *MemoryRepo) GetQuestion(_ context.Context, questionID string) (model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.questions[questionID]
	if !ok {
		return model.Question{}, fmt.Errorf("get question %s: %w", questionID, auctionerrors.ErrQuestionNotFound)
	}
	q.Answers = append([]model.Answer{}, r.answers[questionID]...)
	return q, nil
}

// GetQuestionsByItem returns an item's questions newest first, each with answers oldest first
func (r *MemoryRepo) GetQuestionsByItem(_ context.Context, itemID string) ([]model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.items[itemID]; !ok {
		return nil, fmt.Errorf("get questions for item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}

	ids := r.itemQs[itemID]
	questions := make([]model.Question, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		q := r.questions[ids[i]]
		q.Answers = append([]model.Answer{}, r.answers[q.QuestionID]...)
		questions = append(questions, q)
	}
	return questions, nil
}

// CreateAnswer stores an answer to an existing question
func (r *MemoryRepo) CreateAnswer(_ context.Context, a model.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.questions[a.QuestionID]; !ok {
		return fmt.Errorf("create answer on question %s: %w", a.QuestionID, auctionerrors.ErrQuestionNotFound)
	}
	r.answers[a.QuestionID] = append(r.answers[a.QuestionID], a)
	return nil
}

// GetPendingSettlement returns ended, unsettled items, earliest end first
func (r *MemoryRepo) GetPendingSettlement(_ context.Context, now time.Time) ([]model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := make([]model.Item, 0)
	for _, item := range r.items {
		if !item.Settled && !item.EndTime.After(now) {
			pending = append(pending, item)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].EndTime.Equal(pending[j].EndTime) {
			return pending[i].ItemID < pending[j].ItemID
		}
		return pending[i].EndTime.Before(pending[j].EndTime)
	})
	return pending, nil
}

// MarkSettled flips the settled flag. It fails with ErrAlreadySettled if another sweep got there first.
func (r *MemoryRepo) MarkSettled(_ context.Context, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return fmt.Errorf("mark item %s settled: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	if item.Settled {
		return fmt.Errorf("mark item %s settled: %w", itemID, auctionerrors.ErrAlreadySettled)
	}
	item.Settled = true
	r.items[itemID] = item
	return nil
}

// Health reports the in-memory store as always up
func (r *MemoryRepo) Health(_ context.Context) map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]string{
		"status": "up",
		"driver": "memory",
		"items":  fmt.Sprintf("%d", len(r.items)),
		"users":  fmt.Sprintf("%d", len(r.users)),
	}
}

// AddItem adds an item to the repository without owner checks. This method is intended for tests and seeding only.
func (r *MemoryRepo) AddItem(item model.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ItemID] = item
}

// AddUser adds a user to the repository. This method is intended for tests and seeding only.
func (r *MemoryRepo) AddUser(user model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.UserID] = user
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
