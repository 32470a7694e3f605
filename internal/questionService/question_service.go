package question

import (
	"context"
	"fmt"
	"strings"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/internal/repository"
	"auction-house/utils"
)

// QuestionService handles the public Q&A thread of an item
type QuestionService struct {
	repo repository.AuctionDB
	now  func() time.Time
}

// NewQuestionService creates a new QuestionService instance
func NewQuestionService(repo repository.AuctionDB, now func() time.Time) *QuestionService {
	if now == nil {
		now = time.Now
	}
	return &QuestionService{repo: repo, now: now}
}

// AskQuestion posts a question about an item. Any user may ask, the owner included.
func (s *QuestionService) AskQuestion(ctx context.Context, itemID, askerID, text string) (models.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Question{}, fmt.Errorf("service: %w - question text is required", auctionerrors.ErrEmptyText)
	}

	q := models.Question{
		QuestionID: utils.GenerateID(),
		ItemID:     itemID,
		AskerID:    askerID,
		Text:       text,
		CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
		Answers:    []models.Answer{},
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return models.Question{}, fmt.Errorf("service: failed to ask question on item %s: %w", itemID, err)
	}

	utils.Info("question asked", map[string]any{"item_id": itemID, "question_id": q.QuestionID, "asker_id": askerID})
	return q, nil
}

// ListQuestions returns an item's questions, newest first, with their answers
func (s *QuestionService) ListQuestions(ctx context.Context, itemID string) ([]models.Question, error) {
	questions, err := s.repo.GetQuestionsByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get questions for item %s: %w", itemID, err)
	}
	return questions, nil
}

// AnswerQuestion records the item owner's reply. Anybody else gets ErrPermissionDenied.
func (s *QuestionService) AnswerQuestion(ctx context.Context, questionID, responderID, text string) (models.Answer, error) {
	q, err := s.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return models.Answer{}, fmt.Errorf("service: failed to get question %s: %w", questionID, err)
	}
	item, err := s.repo.GetItem(ctx, q.ItemID)
	if err != nil {
		return models.Answer{}, fmt.Errorf("service: failed to get item %s: %w", q.ItemID, err)
	}
	if item.OwnerID != responderID {
		return models.Answer{}, fmt.Errorf("service: %w - only the item owner can answer questions", auctionerrors.ErrPermissionDenied)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return models.Answer{}, fmt.Errorf("service: %w - answer text is required", auctionerrors.ErrEmptyText)
	}

	a := models.Answer{
		AnswerID:    utils.GenerateID(),
		QuestionID:  questionID,
		ResponderID: responderID,
		Text:        text,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.CreateAnswer(ctx, a); err != nil {
		return models.Answer{}, fmt.Errorf("service: failed to answer question %s: %w", questionID, err)
	}

	utils.Info("question answered", map[string]any{"item_id": item.ItemID, "question_id": questionID})
	return a, nil
}
