package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sharecal/server/friendship"
	"github.com/sharecal/server/schedule"
	"github.com/sharecal/server/user"
)

// writeServiceError translates a domain error into an HTTP response.
// Unrecognized errors become a 500 without leaking their message.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, user.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, user.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, friendship.ErrSelfRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot befriend yourself"})
	case errors.Is(err, friendship.ErrAlreadyRequested):
		c.JSON(http.StatusConflict, gin.H{"error": "request or relationship already exists"})
	case errors.Is(err, friendship.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "request is not pending"})
	case errors.Is(err, friendship.ErrUserNotFound),
		errors.Is(err, friendship.ErrRequestNotFound),
		errors.Is(err, schedule.ErrUserNotFound),
		errors.Is(err, schedule.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, schedule.ErrNotOwner),
		errors.Is(err, schedule.ErrNotFriends):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
