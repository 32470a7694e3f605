package handler

import (
	"net/http"

	"auction-house/services/auction/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	service QuestionServiceInterface
}

func NewQuestionHandler(service QuestionServiceInterface) *QuestionHandler {
	return &QuestionHandler{service: service}
}

// ListQuestionsHandler handles GET /items/:item_id/questions
func (h *QuestionHandler) ListQuestionsHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	questions, err := h.service.ListQuestions(c.Request.Context(), itemID)
	if err != nil {
		helpers.RespondError(c, "ListQuestionsHandler", err, map[string]any{"item_id": itemID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, questions, "questions retrieved successfully")
}

// AskQuestionHandler handles POST /items/:item_id/questions
func (h *QuestionHandler) AskQuestionHandler(c *gin.Context) {
	itemID := c.Param("item_id")
	askerID := helpers.CallerID(c)

	var req helpers.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "AskQuestionHandler", err)
		return
	}

	q, err := h.service.AskQuestion(c.Request.Context(), itemID, askerID, req.Text)
	if err != nil {
		helpers.RespondError(c, "AskQuestionHandler", err, map[string]any{"item_id": itemID, "user_id": askerID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, q, "question posted successfully")
	helpers.LogSuccess("AskQuestionHandler", "question posted successfully", map[string]any{
		"question_id": q.QuestionID,
		"item_id":     itemID,
	})
}

// AnswerQuestionHandler handles POST /questions/:question_id/answers
func (h *QuestionHandler) AnswerQuestionHandler(c *gin.Context) {
	questionID := c.Param("question_id")
	responderID := helpers.CallerID(c)

	var req helpers.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "AnswerQuestionHandler", err)
		return
	}

	a, err := h.service.AnswerQuestion(c.Request.Context(), questionID, responderID, req.Text)
	if err != nil {
		helpers.RespondError(c, "AnswerQuestionHandler", err, map[string]any{"question_id": questionID, "user_id": responderID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, a, "answer posted successfully")
	helpers.LogSuccess("AnswerQuestionHandler", "answer posted successfully", map[string]any{
		"answer_id":   a.AnswerID,
		"question_id": questionID,
	})
}
