package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-house/internal/auctionerrors"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// CallerKey is the gin context key under which the authenticated user id is stored
const CallerKey = "caller_id"

// CallerID returns the id stored by the identity middleware, or "" outside of it
func CallerID(c *gin.Context) string {
	return c.GetString(CallerKey)
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, "INVALID_REQUEST", wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code, error code and message
func MapErrorToHTTP(err error) (int, string, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrItemNotFound):
		return http.StatusNotFound, "ITEM_NOT_FOUND", "item not found"
	case errors.Is(err, auctionerrors.ErrQuestionNotFound):
		return http.StatusNotFound, "QUESTION_NOT_FOUND", "question not found"
	case errors.Is(err, auctionerrors.ErrUserNotFound):
		return http.StatusNotFound, "USER_NOT_FOUND", "user not found"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusNotFound, "NO_BIDS", "no bids found for item"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "BID_TOO_LOW", "bid amount too low"
	case errors.Is(err, auctionerrors.ErrAuctionClosed):
		return http.StatusConflict, "AUCTION_CLOSED", "auction is closed"
	case errors.Is(err, auctionerrors.ErrSelfBid):
		return http.StatusForbidden, "SELF_BID", "cannot bid on your own item"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "INVALID_BID", "invalid bid details"
	case errors.Is(err, auctionerrors.ErrInvalidItem):
		return http.StatusBadRequest, "INVALID_ITEM", "invalid item details"
	case errors.Is(err, auctionerrors.ErrEmptyText):
		return http.StatusBadRequest, "EMPTY_TEXT", "text is required"
	case errors.Is(err, auctionerrors.ErrItemSettled):
		return http.StatusConflict, "ITEM_SETTLED", "item is settled"
	case errors.Is(err, auctionerrors.ErrPermissionDenied):
		return http.StatusForbidden, "PERMISSION_DENIED", "permission denied"
	case errors.Is(err, auctionerrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED", "unknown or missing user"
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal server error"
	}
}

// RespondError writes the mapped error and logs it. Client mistakes go to warn, the rest to error.
func RespondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, code, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, code, fmt.Errorf("%s: %w", message, err), message)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
