package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sharecal/server/audit"
	mw "github.com/sharecal/server/middleware"
	"github.com/sharecal/server/model"
	"github.com/sharecal/server/token"
	"github.com/sharecal/server/user"
)

// AuthHandler handles signup, login, and token refresh.
type AuthHandler struct {
	users  *user.Service
	tokens *token.Service
	audit  *audit.Service
}

// NewAuthHandler creates a new AuthHandler. auditSvc may be nil.
func NewAuthHandler(users *user.Service, tokens *token.Service, auditSvc *audit.Service) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, audit: auditSvc}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=64"`
	Nickname string `json:"nickname" binding:"required,min=1,max=32"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Nickname: u.Nickname}
}

// Signup handles POST /api/users/signup.
func (h *AuthHandler) Signup(c *gin.Context) {
	start := time.Now()
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.users.Register(c.Request.Context(), req.Email, req.Password, req.Nickname)
	if err != nil {
		h.log(c, start, nil, req.Email, "signup", err)
		writeServiceError(c, err)
		return
	}

	h.log(c, start, &created.ID, created.Email, "signup", nil)
	c.JSON(http.StatusOK, toUserResponse(created))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/users/login.
func (h *AuthHandler) Login(c *gin.Context) {
	start := time.Now()
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.log(c, start, nil, req.Email, "login", err)
		writeServiceError(c, err)
		return
	}

	h.log(c, start, nil, req.Email, "login", nil)
	c.JSON(http.StatusOK, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /api/users/token/refresh. It exchanges a valid
// refresh token for a new access token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email, err := h.tokens.Validate(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	access, err := h.tokens.IssueAccess(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

func (h *AuthHandler) log(c *gin.Context, start time.Time, userID *int64, email, action string, opErr error) {
	if h.audit == nil {
		return
	}
	entry := audit.Entry{
		TraceID:    mw.GetTraceID(c),
		UserID:     userID,
		Email:      email,
		Action:     action,
		IP:         c.ClientIP(),
		DurationMs: int(time.Since(start).Milliseconds()),
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	h.audit.Log(entry)
}
