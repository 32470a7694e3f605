package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-house/internal/auctionerrors"
	bidding "auction-house/internal/biddingService"
	catalog "auction-house/internal/catalogService"
	"auction-house/internal/models"
	question "auction-house/internal/questionService"
	"auction-house/internal/repository"
	"auction-house/utils"

	"github.com/shopspring/decimal"
)

var demoUsers = []models.User{
	{UserID: "alice", Username: "alice", Email: "alice@example.com"},
	{UserID: "bob", Username: "bob", Email: "bob@example.com"},
	{UserID: "charlie", Username: "charlie", Email: "charlie@example.com"},
	{UserID: "diana", Username: "diana", Email: "diana@example.com"},
	{UserID: "eve", Username: "eve", Email: "eve@example.com"},
}

type demoItem struct {
	title       string
	description string
	price       string
	days        int
}

var demoItems = []demoItem{
	{"Vintage Leather Armchair", "Vintage leather armchair from the 1960s, excellent condition with a light patina.", "150.00", 5},
	{"Antique Oak Writing Desk", "Early 1900s oak writing desk with several drawers and original brass handles.", "350.00", 7},
	{"Vintage Vinyl Record Collection", "Fifty-odd records from the 70s and 80s covering rock, jazz and classical. All playable.", "75.00", 3},
	{"Professional DSLR Camera", "Full-frame camera body, shutter count under 10,000, boxed with accessories.", "1200.00", 10},
	{"Handmade Persian Rug", "Hand-knotted 8x10 wool rug in deep reds and blues.", "800.00", 14},
	{"Rare Comic Book Collection", "Graded and slabbed first editions from the 1960s.", "500.00", 6},
	{"Mechanical Watch - Swiss Made", "Automatic movement, sapphire crystal, 42mm case, leather band. Barely worn.", "450.00", 8},
	{"Vintage Tea Set - Fine China", "Twelve-piece bone china tea set with floral pattern and gold trim.", "120.00", 4},
	{"Artist Oil Painting - Original", "Signed contemporary abstract, oil on canvas, 24x36 inches.", "250.00", 12},
	{"Retro Gaming Console Bundle", "Classic console with 15 games and two controllers, all tested.", "180.00", 5},
	{"Antique Brass Telescope", "Brass telescope on a wooden tripod with working optics.", "200.00", 9},
	{"Designer Handbag - Authentic", "Pre-owned designer tote with dust bag and original receipt.", "700.00", 7},
}

var demoQuestions = []string{
	"Is this item still available for viewing before the auction ends?",
	"Can you provide more details about the condition?",
	"Do you offer shipping, or is this pickup only?",
}

const demoAnswer = "Yes, absolutely! Please feel free to contact me for more information or to arrange a viewing."

// Seed fills an empty store with demo users, listings, bids and Q&A.
// It does nothing when the demo users already exist.
func Seed(ctx context.Context, repo repository.AuctionDB, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}

	for i, u := range demoUsers {
		if err := repo.CreateUser(ctx, u); err != nil {
			if i == 0 && errors.Is(err, auctionerrors.ErrDuplicateUser) {
				utils.Info("demo data already present, skipping seed", nil)
				return nil
			}
			return fmt.Errorf("seed: create user %s: %w", u.UserID, err)
		}
	}

	catalogSvc := catalog.NewCatalogService(repo, now)
	biddingSvc := bidding.NewBiddingService(repo, bidding.WithClock(now))
	questionSvc := question.NewQuestionService(repo, now)

	for i, d := range demoItems {
		owner := demoUsers[i%len(demoUsers)]
		item, err := catalogSvc.CreateItem(ctx, owner.UserID, catalog.NewItem{
			Title:         d.title,
			Description:   d.description,
			StartingPrice: decimal.RequireFromString(d.price),
			EndTime:       now().Add(time.Duration(d.days) * 24 * time.Hour),
		})
		if err != nil {
			return fmt.Errorf("seed: create item %q: %w", d.title, err)
		}

		// bids on the first six listings, Q&A on the first four
		if i < 6 {
			if err := seedBids(ctx, biddingSvc, item, i); err != nil {
				return err
			}
		}
		if i < 4 {
			if err := seedQuestion(ctx, questionSvc, item, i); err != nil {
				return err
			}
		}
	}

	utils.Info("demo data created", map[string]any{"users": len(demoUsers), "items": len(demoItems)})
	return nil
}

func seedBids(ctx context.Context, svc *bidding.BiddingService, item models.Item, n int) error {
	price := item.StartingPrice
	for round := 0; round <= n%3; round++ {
		bidder := otherUser(item.OwnerID, n+round)
		price = price.Add(decimal.NewFromInt(int64(5 + 15*round)))
		if _, err := svc.PlaceBid(ctx, item.ItemID, bidder, price); err != nil {
			return fmt.Errorf("seed: bid on %s: %w", item.ItemID, err)
		}
	}
	return nil
}

func seedQuestion(ctx context.Context, svc *question.QuestionService, item models.Item, n int) error {
	asker := otherUser(item.OwnerID, n+1)
	q, err := svc.AskQuestion(ctx, item.ItemID, asker, demoQuestions[n%len(demoQuestions)])
	if err != nil {
		return fmt.Errorf("seed: question on %s: %w", item.ItemID, err)
	}
	if n%2 == 1 {
		return nil
	}
	if _, err := svc.AnswerQuestion(ctx, q.QuestionID, item.OwnerID, demoAnswer); err != nil {
		return fmt.Errorf("seed: answer on %s: %w", item.ItemID, err)
	}
	return nil
}

// otherUser picks a demo user who is not ownerID
func otherUser(ownerID string, n int) string {
	for {
		u := demoUsers[n%len(demoUsers)]
		if u.UserID != ownerID {
			return u.UserID
		}
		n++
	}
}
