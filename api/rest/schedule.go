package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	mw "github.com/sharecal/server/middleware"
	"github.com/sharecal/server/schedule"
)

// ScheduleHandler handles schedule CRUD and friend-visibility reads.
type ScheduleHandler struct {
	schedules *schedule.Service
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(schedules *schedule.Service) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Create handles POST /api/schedules.
func (h *ScheduleHandler) Create(c *gin.Context) {
	caller, _ := mw.CurrentUser(c)

	var in schedule.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.schedules.Create(c.Request.Context(), caller.Email, in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListMine handles GET /api/schedules/user.
func (h *ScheduleHandler) ListMine(c *gin.Context) {
	caller, _ := mw.CurrentUser(c)

	schedules, err := h.schedules.ListMine(c.Request.Context(), caller.Email)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// Get handles GET /api/schedules/:id.
func (h *ScheduleHandler) Get(c *gin.Context) {
	caller, _ := mw.CurrentUser(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	found, err := h.schedules.Get(c.Request.Context(), caller.Email, id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// Update handles PUT /api/schedules/:id.
func (h *ScheduleHandler) Update(c *gin.Context) {
	caller, _ := mw.CurrentUser(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var in schedule.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.schedules.Update(c.Request.Context(), caller.Email, id, in)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /api/schedules/:id.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	caller, _ := mw.CurrentUser(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	if err := h.schedules.Delete(c.Request.Context(), caller.Email, id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// FriendSchedules handles GET /api/schedules/friend?friendEmail=...
// It returns only the friend's public schedules, and only when the
// caller has an accepted friendship with them.
func (h *ScheduleHandler) FriendSchedules(c *gin.Context) {
	caller, _ := mw.CurrentUser(c)

	friendEmail := c.Query("friendEmail")
	if friendEmail == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "friendEmail is required"})
		return
	}

	schedules, err := h.schedules.FriendSchedules(c.Request.Context(), caller.Email, friendEmail)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}
