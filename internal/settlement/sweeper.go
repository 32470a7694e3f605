package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-house/internal/auction"
	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/notify"
	"auction-house/internal/realtime"
	"auction-house/internal/repository"
	"auction-house/utils"

	"github.com/shopspring/decimal"
)

// Kind is the result of settling one item
type Kind string

const (
	// KindWon: the winner was notified and the item is settled
	KindWon Kind = "won"
	// KindUnsold: no bids, settled without any email
	KindUnsold Kind = "unsold"
	// KindDeferred: the winner notification failed, the item stays pending for the next sweep
	KindDeferred Kind = "deferred"
	// KindFailed: a store error or panic, the item stays pending unless it was already marked
	KindFailed Kind = "failed"
	// KindSkipped: another sweep settled the item first
	KindSkipped Kind = "skipped"
)

// Outcome records what happened to one item during a sweep
type Outcome struct {
	ItemID         string
	Kind           Kind
	WinnerID       string
	Amount         decimal.Decimal
	SellerNotified bool
	Err            error
}

// Summary aggregates the outcomes of one sweep
type Summary struct {
	Scanned            int
	Won                int
	Unsold             int
	Deferred           int
	Failed             int
	Skipped            int
	SellerNotifyFailed int
	Outcomes           []Outcome
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Kind {
	case KindWon:
		s.Won++
		if !o.SellerNotified {
			s.SellerNotifyFailed++
		}
	case KindUnsold:
		s.Unsold++
	case KindDeferred:
		s.Deferred++
	case KindFailed:
		s.Failed++
	case KindSkipped:
		s.Skipped++
	}
}

// Publisher receives an auction_settled event for every item the sweep settles
type Publisher interface {
	Publish(ev realtime.Event)
}

// Sweeper closes ended auctions.
//
// For each ended, unsettled item it notifies the winner and the seller, then marks the
// item settled. The settled flag is written only after the winner notification succeeded
// (or immediately when nobody bid), so a failed send is retried by the next sweep and a
// successful one is never repeated. The seller notification does not gate the flag.
type Sweeper struct {
	repo        repository.AuctionDB
	mailer      notify.Mailer
	events      Publisher
	now         func() time.Time
	currency    string
	sendTimeout time.Duration
}

// Option configures a Sweeper
type Option func(*Sweeper)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithPublisher sends auction_settled events to p
func WithPublisher(p Publisher) Option {
	return func(s *Sweeper) { s.events = p }
}

// WithCurrencySymbol sets the symbol printed before amounts in emails
func WithCurrencySymbol(symbol string) Option {
	return func(s *Sweeper) { s.currency = symbol }
}

// WithSendTimeout bounds each individual send. Zero means no bound beyond the sweep's context.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Sweeper) { s.sendTimeout = d }
}

// NewSweeper creates a Sweeper
func NewSweeper(repo repository.AuctionDB, mailer notify.Mailer, opts ...Option) *Sweeper {
	s := &Sweeper{
		repo:     repo,
		mailer:   mailer,
		now:      time.Now,
		currency: "£",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one sweep. It is safe to call repeatedly and concurrently with itself.
// The error is only non-nil when the pending items could not be listed; per-item problems
// are reported in the Summary.
func (s *Sweeper) Run(ctx context.Context) (Summary, error) {
	started := s.now()

	pending, err := s.repo.GetPendingSettlement(ctx, started)
	if err != nil {
		return Summary{}, fmt.Errorf("settlement: list pending items: %w", err)
	}

	summary := Summary{Scanned: len(pending)}
	for _, item := range pending {
		if ctx.Err() != nil {
			utils.Warn("settlement sweep interrupted", map[string]any{"remaining": summary.Scanned - len(summary.Outcomes), "error": ctx.Err().Error()})
			break
		}
		summary.add(s.settleSafely(ctx, item))
	}

	utils.Info("settlement sweep finished", map[string]any{
		"scanned":              summary.Scanned,
		"won":                  summary.Won,
		"unsold":               summary.Unsold,
		"deferred":             summary.Deferred,
		"failed":               summary.Failed,
		"skipped":              summary.Skipped,
		"seller_notify_failed": summary.SellerNotifyFailed,
		"duration_ms":          s.now().Sub(started).Milliseconds(),
	})
	return summary, nil
}

// settleSafely isolates one item: a panic becomes a failed outcome instead of ending the sweep
func (s *Sweeper) settleSafely(ctx context.Context, item models.Item) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{ItemID: item.ItemID, Kind: KindFailed, Err: fmt.Errorf("settlement: panic: %v", r)}
			utils.Error("settlement panicked", map[string]any{"item_id": item.ItemID, "panic": fmt.Sprint(r)})
		}
	}()
	return s.settle(ctx, item)
}

func (s *Sweeper) settle(ctx context.Context, item models.Item) Outcome {
	out := Outcome{ItemID: item.ItemID}

	bids, err := s.repo.GetBidsByItem(ctx, item.ItemID)
	if err != nil {
		return s.failed(out, fmt.Errorf("load bids: %w", err))
	}

	top, ok := auction.Listing{Item: item, Bids: bids}.HighestBid()
	if !ok {
		if err := s.markSettled(ctx, item.ItemID); err != nil {
			return s.markFailed(out, err)
		}
		utils.Info("auction ended without bids", map[string]any{"item_id": item.ItemID, "title": item.Title})
		out.Kind = KindUnsold
		s.publish(item, out)
		return out
	}
	out.WinnerID = top.UserID
	out.Amount = top.Amount

	winner, err := s.repo.GetUser(ctx, top.UserID)
	if err != nil {
		return s.failed(out, fmt.Errorf("load winner %s: %w", top.UserID, err))
	}
	seller, err := s.repo.GetUser(ctx, item.OwnerID)
	if err != nil {
		return s.failed(out, fmt.Errorf("load seller %s: %w", item.OwnerID, err))
	}

	data := newMessageData(item, winner, seller, top.Amount, s.currency)

	msg, err := winnerMessage(data)
	if err != nil {
		return s.failed(out, err)
	}
	if err := s.send(ctx, msg); err != nil {
		utils.Error("failed to notify auction winner", map[string]any{"item_id": item.ItemID, "recipient": msg.To, "error": err.Error()})
		out.Kind = KindDeferred
		out.Err = err
		return out
	}
	utils.Info("sent winner notification", map[string]any{"item_id": item.ItemID, "recipient": msg.To})

	// From here on the winner has been told; the item must be marked even if the seller email fails.
	if msg, err := sellerMessage(data); err != nil {
		utils.Error("failed to render seller notification", map[string]any{"item_id": item.ItemID, "error": err.Error()})
	} else if err := s.send(ctx, msg); err != nil {
		utils.Error("failed to notify seller", map[string]any{"item_id": item.ItemID, "recipient": msg.To, "error": err.Error()})
	} else {
		out.SellerNotified = true
		utils.Info("sent seller notification", map[string]any{"item_id": item.ItemID, "recipient": msg.To})
	}

	if err := s.markSettled(ctx, item.ItemID); err != nil {
		return s.markFailed(out, err)
	}
	out.Kind = KindWon
	s.publish(item, out)
	return out
}

func (s *Sweeper) send(ctx context.Context, msg notify.Message) error {
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}
	return s.mailer.Send(ctx, msg)
}

// markSettled writes the flag with a context that outlives a cancelled sweep:
// once a winner has been notified, losing the flag would notify them again.
func (s *Sweeper) markSettled(ctx context.Context, itemID string) error {
	return s.repo.MarkSettled(context.WithoutCancel(ctx), itemID)
}

func (s *Sweeper) markFailed(out Outcome, err error) Outcome {
	if errors.Is(err, auctionerrors.ErrAlreadySettled) {
		utils.Warn("item settled by a concurrent sweep", map[string]any{"item_id": out.ItemID})
		out.Kind = KindSkipped
		out.Err = err
		return out
	}
	return s.failed(out, fmt.Errorf("mark settled: %w", err))
}

func (s *Sweeper) failed(out Outcome, err error) Outcome {
	utils.Error("failed to settle item", map[string]any{"item_id": out.ItemID, "error": err.Error()})
	out.Kind = KindFailed
	out.Err = err
	return out
}

func (s *Sweeper) publish(item models.Item, out Outcome) {
	if s.events == nil {
		return
	}
	data := map[string]any{"outcome": out.Kind}
	if out.WinnerID != "" {
		data["winner_id"] = out.WinnerID
		data["amount"] = out.Amount
	}
	s.events.Publish(realtime.Event{
		Type:   realtime.EventAuctionSettled,
		ItemID: item.ItemID,
		At:     s.now().UTC(),
		Data:   data,
	})
}
