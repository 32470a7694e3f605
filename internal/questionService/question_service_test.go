package question

import (
	"context"
	"errors"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

var (
	ctx = context.Background()
	now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
)

func clock() time.Time { return now }

func newStore() *repository.MemoryRepo {
	repo := repository.NewMemoryRepo()
	repo.AddItem(model.Item{ItemID: "item1", OwnerID: "owner", Title: "Desk", EndTime: now.Add(time.Hour)})
	return repo
}

func TestQuestionService_AskQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		itemID        string
		askerID       string
		text          string
		wantText      string
		expectedError error
	}{
		{name: "valid", itemID: "item1", askerID: "alice", text: "  Any scratches?\n", wantText: "Any scratches?"},
		{name: "owner_may_ask", itemID: "item1", askerID: "owner", text: "FAQ: ships in 2 days", wantText: "FAQ: ships in 2 days"},
		{name: "blank_text", itemID: "item1", askerID: "alice", text: " \t ", expectedError: auctionerrors.ErrEmptyText},
		{name: "unknown_item", itemID: "nope", askerID: "alice", text: "Hello?", expectedError: auctionerrors.ErrItemNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newStore()
			service := NewQuestionService(repo, clock)

			q, err := service.AskQuestion(ctx, tc.itemID, tc.askerID, tc.text)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantText, q.Text)
			require.Equal(t, now, q.CreatedAt)
			require.NotNil(t, q.Answers)

			listed, err := service.ListQuestions(ctx, tc.itemID)
			require.NoError(t, err)
			require.Len(t, listed, 1)
			require.Equal(t, q.QuestionID, listed[0].QuestionID)
		})
	}
}

func TestQuestionService_AnswerQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		questionID    string
		responderID   string
		text          string
		expectedError error
	}{
		{name: "owner_answers", questionID: "q1", responderID: "owner", text: " None at all "},
		{name: "asker_cannot_answer", questionID: "q1", responderID: "alice", text: "I hope not", expectedError: auctionerrors.ErrPermissionDenied},
		{name: "stranger_cannot_answer", questionID: "q1", responderID: "bob", text: "Yes", expectedError: auctionerrors.ErrPermissionDenied},
		{name: "blank_text", questionID: "q1", responderID: "owner", text: "   ", expectedError: auctionerrors.ErrEmptyText},
		{name: "unknown_question", questionID: "qX", responderID: "owner", text: "?", expectedError: auctionerrors.ErrQuestionNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newStore()
			require.NoError(t, repo.CreateQuestion(ctx, model.Question{QuestionID: "q1", ItemID: "item1", AskerID: "alice", Text: "Scratches?", CreatedAt: now}))
			service := NewQuestionService(repo, clock)

			a, err := service.AnswerQuestion(ctx, tc.questionID, tc.responderID, tc.text)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				q, getErr := repo.GetQuestion(ctx, "q1")
				require.NoError(t, getErr)
				require.Empty(t, q.Answers)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "None at all", a.Text)
			require.Equal(t, tc.responderID, a.ResponderID)

			q, err := repo.GetQuestion(ctx, "q1")
			require.NoError(t, err)
			require.Len(t, q.Answers, 1)
			require.Equal(t, a.AnswerID, q.Answers[0].AnswerID)
		})
	}
}

func TestQuestionService_StoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewQuestionService(mockRepo, clock)

	dbErr := errors.New("db failure")
	mockRepo.EXPECT().CreateQuestion(gomock.Any(), gomock.Any()).Return(dbErr)
	mockRepo.EXPECT().GetQuestionsByItem(gomock.Any(), "item1").Return(nil, dbErr)
	mockRepo.EXPECT().GetQuestion(gomock.Any(), "q1").Return(model.Question{QuestionID: "q1", ItemID: "gone"}, nil)
	mockRepo.EXPECT().GetItem(gomock.Any(), "gone").Return(model.Item{}, auctionerrors.ErrItemNotFound)

	_, err := service.AskQuestion(ctx, "item1", "alice", "hi")
	require.ErrorIs(t, err, dbErr)

	_, err = service.ListQuestions(ctx, "item1")
	require.ErrorIs(t, err, dbErr)

	_, err = service.AnswerQuestion(ctx, "q1", "owner", "hi")
	require.ErrorIs(t, err, auctionerrors.ErrItemNotFound)
}
