package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schemaSQL string

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const itemColumns = `id, owner_id, title, description, starting_price::text, end_time, created_at, settled`

const bidColumns = `id, item_id, bidder_id, amount::text, placed_at`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

var _ AuctionDB = (*PostgresRepo)(nil)

// PostgresRepo implements AuctionDB on PostgreSQL through a pgx connection pool.
type PostgresRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresRepo connects to the database at url and verifies the connection.
func NewPostgresRepo(ctx context.Context, url string, maxConns int32) (*PostgresRepo, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepo{pool: pool}, nil
}

// Migrate creates the schema if it does not exist yet.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases every pooled connection.
func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func (r *PostgresRepo) CreateUser(ctx context.Context, user model.User) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO users (id, username, email) VALUES ($1, $2, $3)`,
		user.UserID, user.Username, user.Email)
	if isPgError(err, pgUniqueViolation) {
		return fmt.Errorf("create user %s: %w", user.UserID, auctionerrors.ErrDuplicateUser)
	}
	if err != nil {
		return fmt.Errorf("create user %s: %w", user.UserID, err)
	}
	return nil
}

func (r *PostgresRepo) GetUser(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	err := r.pool.QueryRow(ctx, `SELECT id, username, email FROM users WHERE id = $1`, userID).
		Scan(&user.UserID, &user.Username, &user.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, err)
	}
	return user, nil
}

func (r *PostgresRepo) CreateItem(ctx context.Context, item model.Item) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO items (id, owner_id, title, description, starting_price, end_time, created_at, settled)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`,
		item.ItemID, item.OwnerID, item.Title, item.Description, item.StartingPrice.String(),
		item.EndTime, item.CreatedAt, item.Settled)
	if isPgError(err, pgForeignKeyViolation) {
		return fmt.Errorf("create item %s: owner %s: %w", item.ItemID, item.OwnerID, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("create item %s: %w", item.ItemID, err)
	}
	return nil
}

func (r *PostgresRepo) GetItem(ctx context.Context, itemID string) (model.Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("get item %s: %w", itemID, err)
	}
	return item, nil
}

// UpdateItem locks the item row and runs edit against it and its bids inside one transaction.
// RecordBid and MarkSettled take the same row lock, so neither can slip in between edit and the write.
func (r *PostgresRepo) UpdateItem(ctx context.Context, itemID string, edit ItemEdit) (model.Item, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.Item{}, fmt.Errorf("update item %s: begin: %w", itemID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Item{}, fmt.Errorf("update item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("update item %s: lock item: %w", itemID, err)
	}

	bids, err := queryBids(ctx, tx, `SELECT `+bidColumns+` FROM bids WHERE item_id = $1 ORDER BY amount DESC, placed_at`, itemID)
	if err != nil {
		return model.Item{}, fmt.Errorf("update item %s: load bids: %w", itemID, err)
	}

	edited := item
	if err := edit(&edited, bids); err != nil {
		return model.Item{}, err
	}

	if _, err := tx.Exec(ctx, `
        UPDATE items SET title = $2, description = $3, starting_price = $4::numeric
        WHERE id = $1`,
		itemID, edited.Title, edited.Description, edited.StartingPrice.String()); err != nil {
		return model.Item{}, fmt.Errorf("update item %s: %w", itemID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Item{}, fmt.Errorf("update item %s: commit: %w", itemID, err)
	}

	item.Title = edited.Title
	item.Description = edited.Description
	item.StartingPrice = edited.StartingPrice
	return item, nil
}

// DeleteItem relies on ON DELETE CASCADE for bids, questions and answers.
func (r *PostgresRepo) DeleteItem(ctx context.Context, itemID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	return nil
}

func (r *PostgresRepo) ListItems(ctx context.Context, filter ItemFilter) ([]model.Item, error) {
	var (
		conds []string
		args  []any
	)
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conds = append(conds, "owner_id = $"+strconv.Itoa(len(args)))
	}
	if !filter.OpenAt.IsZero() {
		args = append(args, filter.OpenAt)
		conds = append(conds, "end_time > $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	items, err := queryItems(ctx, r.pool, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// RecordBid locks the item row, hands the item and its bids to guard, and inserts the bid in
// the same transaction. Concurrent bids on one item queue behind the row lock; the unique
// (item_id, amount) constraint rejects any duplicate amount that still slips through.
func (r *PostgresRepo) RecordBid(ctx context.Context, bid model.Bid, guard BidGuard) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("record bid for item %s: begin: %w", bid.ItemID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, bid.ItemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("record bid for item %s: %w", bid.ItemID, auctionerrors.ErrItemNotFound)
	}
	if err != nil {
		return fmt.Errorf("record bid for item %s: lock item: %w", bid.ItemID, err)
	}

	if guard != nil {
		bids, err := queryBids(ctx, tx, `SELECT `+bidColumns+` FROM bids WHERE item_id = $1 ORDER BY amount DESC, placed_at`, bid.ItemID)
		if err != nil {
			return fmt.Errorf("record bid for item %s: load bids: %w", bid.ItemID, err)
		}
		if err := guard(item, bids); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO bids (id, item_id, bidder_id, amount, placed_at)
        VALUES ($1, $2, $3, $4::numeric, $5)`,
		bid.BidID, bid.ItemID, bid.UserID, bid.Amount.String(), bid.CreatedAt)
	switch {
	case isPgError(err, pgUniqueViolation):
		return fmt.Errorf("record bid for item %s: %w", bid.ItemID, auctionerrors.ErrBidTooLow)
	case isPgError(err, pgForeignKeyViolation):
		return fmt.Errorf("record bid for item %s: bidder %s: %w", bid.ItemID, bid.UserID, auctionerrors.ErrUserNotFound)
	case err != nil:
		return fmt.Errorf("record bid for item %s: insert: %w", bid.ItemID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("record bid for item %s: commit: %w", bid.ItemID, err)
	}
	return nil
}

func (r *PostgresRepo) GetBidsByItem(ctx context.Context, itemID string) ([]model.Bid, error) {
	if err := r.itemExists(ctx, itemID); err != nil {
		return nil, fmt.Errorf("get bids for item %s: %w", itemID, err)
	}
	bids, err := queryBids(ctx, r.pool, `SELECT `+bidColumns+` FROM bids WHERE item_id = $1 ORDER BY amount DESC, placed_at`, itemID)
	if err != nil {
		return nil, fmt.Errorf("get bids for item %s: %w", itemID, err)
	}
	return bids, nil
}

func (r *PostgresRepo) GetWinningBid(ctx context.Context, itemID string) (model.Bid, error) {
	if err := r.itemExists(ctx, itemID); err != nil {
		return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemID, err)
	}
	bid, err := scanBid(r.pool.QueryRow(ctx, `
        SELECT `+bidColumns+` FROM bids WHERE item_id = $1
        ORDER BY amount DESC, placed_at LIMIT 1`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get winning bid for item %s: %w", itemID, err)
	}
	return bid, nil
}

func (r *PostgresRepo) GetItemsByBidder(ctx context.Context, userID string) ([]model.Item, error) {
	items, err := queryItems(ctx, r.pool, `
        SELECT `+itemColumns+` FROM items
        WHERE id IN (SELECT item_id FROM bids WHERE bidder_id = $1)
        ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("get items for user %s: %w", userID, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("get items for user %s: %w", userID, auctionerrors.ErrUserNoBids)
	}
	return items, nil
}

func (r *PostgresRepo) CreateQuestion(ctx context.Context, q model.Question) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO questions (id, item_id, asker_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		q.QuestionID, q.ItemID, q.AskerID, q.Text, q.CreatedAt)
	if isPgError(err, pgForeignKeyViolation) {
		if existsErr := r.itemExists(ctx, q.ItemID); existsErr != nil {
			return fmt.Errorf("create question on item %s: %w", q.ItemID, existsErr)
		}
		return fmt.Errorf("create question on item %s: asker %s: %w", q.ItemID, q.AskerID, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("create question on item %s: %w", q.ItemID, err)
	}
	return nil
}

func (r *PostgresRepo) GetQuestion(ctx context.Context, questionID string) (model.Question, error) {
	var q model.Question
	err := r.pool.QueryRow(ctx, `SELECT id, item_id, asker_id, text, created_at FROM questions WHERE id = $1`, questionID).
		Scan(&q.QuestionID, &q.ItemID, &q.AskerID, &q.Text, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Question{}, fmt.Errorf("get question %s: %w", questionID, auctionerrors.ErrQuestionNotFound)
	}
	if err != nil {
		return model.Question{}, fmt.Errorf("get question %s: %w", questionID, err)
	}
	q.CreatedAt = q.CreatedAt.UTC()

	answers, err := queryAnswers(ctx, r.pool, `
        SELECT id, question_id, responder_id, text, created_at FROM answers
        WHERE question_id = $1 ORDER BY created_at, id`, questionID)
	if err != nil {
		return model.Question{}, fmt.Errorf("get question %s: %w", questionID, err)
	}
	q.Answers = answers
	return q, nil
}

func (r *PostgresRepo) GetQuestionsByItem(ctx context.Context, itemID string) ([]model.Question, error) {
	if err := r.itemExists(ctx, itemID); err != nil {
		return nil, fmt.Errorf("get questions for item %s: %w", itemID, err)
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, item_id, asker_id, text, created_at FROM questions
        WHERE item_id = $1 ORDER BY created_at DESC, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("get questions for item %s: %w", itemID, err)
	}
	defer rows.Close()

	questions := make([]model.Question, 0)
	index := make(map[string]int)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.QuestionID, &q.ItemID, &q.AskerID, &q.Text, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.CreatedAt = q.CreatedAt.UTC()
		q.Answers = []model.Answer{}
		index[q.QuestionID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	answers, err := queryAnswers(ctx, r.pool, `
        SELECT a.id, a.question_id, a.responder_id, a.text, a.created_at
        FROM answers a JOIN questions q ON q.id = a.question_id
        WHERE q.item_id = $1 ORDER BY a.created_at, a.id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("get answers for item %s: %w", itemID, err)
	}
	for _, a := range answers {
		if i, ok := index[a.QuestionID]; ok {
			questions[i].Answers = append(questions[i].Answers, a)
		}
	}
	return questions, nil
}

func (r *PostgresRepo) CreateAnswer(ctx context.Context, a model.Answer) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO answers (id, question_id, responder_id, text, created_at) VALUES ($1, $2, $3, $4, $5)`,
		a.AnswerID, a.QuestionID, a.ResponderID, a.Text, a.CreatedAt)
	if isPgError(err, pgForeignKeyViolation) {
		return fmt.Errorf("create answer on question %s: %w", a.QuestionID, auctionerrors.ErrQuestionNotFound)
	}
	if err != nil {
		return fmt.Errorf("create answer on question %s: %w", a.QuestionID, err)
	}
	return nil
}

func (r *PostgresRepo) GetPendingSettlement(ctx context.Context, now time.Time) ([]model.Item, error) {
	items, err := queryItems(ctx, r.pool, `
        SELECT `+itemColumns+` FROM items
        WHERE end_time <= $1 AND NOT settled
        ORDER BY end_time, id`, now)
	if err != nil {
		return nil, fmt.Errorf("get items pending settlement: %w", err)
	}
	return items, nil
}

// MarkSettled only updates rows that are still unsettled, so two overlapping sweeps cannot both succeed.
func (r *PostgresRepo) MarkSettled(ctx context.Context, itemID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET settled = TRUE WHERE id = $1 AND NOT settled`, itemID)
	if err != nil {
		return fmt.Errorf("mark item %s settled: %w", itemID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if err := r.itemExists(ctx, itemID); err != nil {
		return fmt.Errorf("mark item %s settled: %w", itemID, err)
	}
	return fmt.Errorf("mark item %s settled: %w", itemID, auctionerrors.ErrAlreadySettled)
}

// Health pings the database and reports pool statistics.
func (r *PostgresRepo) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := map[string]string{"driver": "postgres"}
	if err := r.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	s := r.pool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(s.TotalConns()))
	stats["acquired_conns"] = strconv.Itoa(int(s.AcquiredConns()))
	stats["idle_conns"] = strconv.Itoa(int(s.IdleConns()))
	stats["max_conns"] = strconv.Itoa(int(s.MaxConns()))
	if s.AcquiredConns() == s.MaxConns() {
		stats["message"] = "The connection pool is exhausted."
	}
	return stats
}

func (r *PostgresRepo) itemExists(ctx context.Context, itemID string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id = $1)`, itemID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return auctionerrors.ErrItemNotFound
	}
	return nil
}

func scanItem(row scanner) (model.Item, error) {
	var (
		item  model.Item
		price string
	)
	if err := row.Scan(&item.ItemID, &item.OwnerID, &item.Title, &item.Description, &price,
		&item.EndTime, &item.CreatedAt, &item.Settled); err != nil {
		return model.Item{}, err
	}
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return model.Item{}, fmt.Errorf("parse starting price %q: %w", price, err)
	}
	item.StartingPrice = amount
	item.EndTime = item.EndTime.UTC()
	item.CreatedAt = item.CreatedAt.UTC()
	return item, nil
}

func scanBid(row scanner) (model.Bid, error) {
	var (
		bid    model.Bid
		amount string
	)
	if err := row.Scan(&bid.BidID, &bid.ItemID, &bid.UserID, &amount, &bid.CreatedAt); err != nil {
		return model.Bid{}, err
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return model.Bid{}, fmt.Errorf("parse bid amount %q: %w", amount, err)
	}
	bid.Amount = value
	bid.CreatedAt = bid.CreatedAt.UTC()
	return bid, nil
}

func queryItems(ctx context.Context, q querier, sql string, args ...any) ([]model.Item, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func queryBids(ctx context.Context, q querier, sql string, args ...any) ([]model.Bid, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := make([]model.Bid, 0)
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bid: %w", err)
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bids: %w", err)
	}
	return bids, nil
}

func queryAnswers(ctx context.Context, q querier, sql string, args ...any) ([]model.Answer, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make([]model.Answer, 0)
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.AnswerID, &a.QuestionID, &a.ResponderID, &a.Text, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.CreatedAt = a.CreatedAt.UTC()
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return answers, nil
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
