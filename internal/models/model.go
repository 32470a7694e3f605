package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a marketplace participant. Users are referenced, never owned, by other entities.
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Item represents an auction listing.
// EndTime is fixed at creation; Settled flips to true exactly once, after the settlement sweep
// has dealt with the ended auction.
type Item struct {
	ItemID        string          `json:"item_id"`
	OwnerID       string          `json:"owner_id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	EndTime       time.Time       `json:"end_time"`
	CreatedAt     time.Time       `json:"created_at"`
	Settled       bool            `json:"settled"`
}

// Bid represents a user's accepted bid on an item. Bids are append-only.
type Bid struct {
	BidID     string          `json:"bid_id"`
	ItemID    string          `json:"item_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Question is asked by any user about an item.
type Question struct {
	QuestionID string    `json:"question_id"`
	ItemID     string    `json:"item_id"`
	AskerID    string    `json:"asker_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	Answers    []Answer  `json:"answers"`
}

// Answer is a reply to a question; only the item's owner may answer.
type Answer struct {
	AnswerID    string    `json:"answer_id"`
	QuestionID  string    `json:"question_id"`
	ResponderID string    `json:"responder_id"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemView is an item together with the state derived from its bid set at a given instant.
type ItemView struct {
	Item
	CurrentPrice decimal.Decimal `json:"current_price"`
	LeaderID     *string         `json:"leader_id"`
	BidCount     int             `json:"bid_count"`
	IsOpen       bool            `json:"is_open"`
}

// ItemDetail extends ItemView with the latest bids and the Q&A thread.
type ItemDetail struct {
	ItemView
	RecentBids []Bid      `json:"recent_bids"`
	Questions  []Question `json:"questions"`
}
