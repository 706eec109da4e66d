package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sharecal/server/audit"
	"github.com/sharecal/server/friendship"
	mw "github.com/sharecal/server/middleware"
	"github.com/sharecal/server/model"
)

// FriendHandler handles the friendship REST endpoints. All of them run
// behind RequireUser, so a missing principal never reaches a handler.
type FriendHandler struct {
	friends *friendship.Service
	audit   *audit.Service
}

// NewFriendHandler creates a new FriendHandler. auditSvc may be nil.
func NewFriendHandler(friends *friendship.Service, auditSvc *audit.Service) *FriendHandler {
	return &FriendHandler{friends: friends, audit: auditSvc}
}

// SendRequest handles POST /api/users/friends/request?friendEmail=...
func (h *FriendHandler) SendRequest(c *gin.Context) {
	start := time.Now()
	caller, _ := mw.CurrentUser(c)

	friendEmail := c.Query("friendEmail")
	if friendEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "friendEmail is required"})
		return
	}

	err := h.friends.SendRequest(c.Request.Context(), caller.Email, friendEmail)
	h.log(c, start, caller, "friend.request", err)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request sent"})
}

// Accept handles POST /api/users/friends/accept?friendshipId=...
func (h *FriendHandler) Accept(c *gin.Context) {
	start := time.Now()
	caller, _ := mw.CurrentUser(c)

	id, err := strconv.ParseInt(c.Query("friendshipId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friendshipId"})
		return
	}

	err = h.friends.Accept(c.Request.Context(), id)
	h.log(c, start, caller, "friend.accept", err)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "accepted"})
}

// Reject handles POST /api/users/friends/reject?friendshipId=...
func (h *FriendHandler) Reject(c *gin.Context) {
	start := time.Now()
	caller, _ := mw.CurrentUser(c)

	id, err := strconv.ParseInt(c.Query("friendshipId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friendshipId"})
		return
	}

	err = h.friends.Reject(c.Request.Context(), id)
	h.log(c, start, caller, "friend.reject", err)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "rejected"})
}

// List handles GET /api/users/friends.
func (h *FriendHandler) List(c *gin.Context) {
	caller, _ := mw.CurrentUser(c)

	friends, err := h.friends.Friends(c.Request.Context(), caller.Email)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	result := make([]userResponse, len(friends))
	for i := range friends {
		result[i] = toUserResponse(&friends[i])
	}
	c.JSON(http.StatusOK, gin.H{"friends": result})
}

// PendingReceived handles GET /api/users/friends/requests/received.
func (h *FriendHandler) PendingReceived(c *gin.Context) {
	caller, _ := mw.CurrentUser(c)

	pending, err := h.friends.PendingReceived(c.Request.Context(), caller.Email)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	type receivedRequest struct {
		FriendshipID int64        `json:"friendship_id"`
		Requester    userResponse `json:"requester"`
	}
	result := make([]receivedRequest, len(pending))
	for i, p := range pending {
		result[i] = receivedRequest{
			FriendshipID: p.FriendshipID,
			Requester:    toUserResponse(&p.Requester),
		}
	}
	c.JSON(http.StatusOK, gin.H{"requests": result})
}

// Remove handles DELETE /api/users/friends?friendEmail=...
func (h *FriendHandler) Remove(c *gin.Context) {
	start := time.Now()
	caller, _ := mw.CurrentUser(c)

	friendEmail := c.Query("friendEmail")
	if friendEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "friendEmail is required"})
		return
	}

	err := h.friends.RemoveFriend(c.Request.Context(), caller.Email, friendEmail)
	h.log(c, start, caller, "friend.remove", err)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

func (h *FriendHandler) log(c *gin.Context, start time.Time, caller *model.User, action string, opErr error) {
	if h.audit == nil {
		return
	}
	entry := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		UserID:     &caller.ID,
		Email:      caller.Email,
		Action:     action,
		Request:    c.Request.URL.Query(),
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	h.audit.Log(entry)
}
