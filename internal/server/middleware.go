package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/internal/models"
	"auction-house/services/auction/helpers"
	"auction-house/utils"

	"github.com/gin-gonic/gin"
)

// UserHeader carries the caller's user id
const UserHeader = "X-User-ID"

// UserLookup resolves the id presented in UserHeader
type UserLookup interface {
	GetUser(ctx context.Context, userID string) (models.User, error)
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	if caller := helpers.CallerID(c); caller != "" {
		fields["user_id"] = caller
	}
	utils.Info("HTTP Request", fields)
}

// IdentifyUser stores the caller's id when the header names a known user.
// An unknown id is always rejected; a missing one only when required is set.
func IdentifyUser(users UserLookup, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(UserHeader))
		if userID == "" {
			if required {
				unauthenticated(c, errors.New("missing "+UserHeader+" header"))
				return
			}
			c.Next()
			return
		}

		if _, err := users.GetUser(c.Request.Context(), userID); err != nil {
			if errors.Is(err, auctionerrors.ErrUserNotFound) {
				unauthenticated(c, err)
				return
			}
			utils.JSONError(c, http.StatusInternalServerError, "INTERNAL", err, "internal server error")
			utils.Error("IdentifyUser: user lookup failed", map[string]any{"user_id": userID, "error": err.Error()})
			return
		}

		c.Set(helpers.CallerKey, userID)
		c.Next()
	}
}

func unauthenticated(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusUnauthorized, "UNAUTHENTICATED", errors.Join(auctionerrors.ErrUnauthenticated, err), "unknown or missing user")
	utils.Warn("IdentifyUser: rejected request", map[string]any{"path": c.Request.URL.Path, "error": err.Error()})
}
