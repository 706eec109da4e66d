package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sharecal/server/cache"
	"github.com/sharecal/server/model"
	"github.com/sharecal/server/token"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const userKey = "current_user"

// cachedIdentity is the subset of a user stored in the identity cache.
// Identities are immutable after signup, so a short TTL entry can never
// go stale in a way that matters.
type cachedIdentity struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// Authenticate resolves an optional request principal from the
// Authorization header. A missing, invalid, or expired token leaves the
// request anonymous and lets it proceed; rejecting such requests is the
// job of RequireUser on the routes that need a caller identity.
func Authenticate(tokens *token.Service, db *gorm.DB, c cache.Cache, cacheTTL time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.Next()
			return
		}

		email, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			ctx.Next()
			return
		}

		user, err := resolveIdentity(ctx.Request.Context(), db, c, cacheTTL, email)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("identity lookup failed",
					zap.String("email", email),
					zap.Error(err))
			}
			ctx.Next()
			return
		}

		ctx.Set(userKey, user)
		ctx.Next()
	}
}

// resolveIdentity reads the identity through the cache, falling back to
// the database on a miss or on any cache error.
func resolveIdentity(ctx context.Context, db *gorm.DB, c cache.Cache, ttl time.Duration, email string) (*model.User, error) {
	key := "identity:" + email

	if raw, err := c.Get(ctx, key); err == nil {
		var ci cachedIdentity
		if err := json.Unmarshal([]byte(raw), &ci); err == nil {
			return &model.User{ID: ci.ID, Email: ci.Email, Nickname: ci.Nickname}, nil
		}
	}

	var user model.User
	if err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(cachedIdentity{ID: user.ID, Email: user.Email, Nickname: user.Nickname}); err == nil {
		_ = c.Set(ctx, key, string(raw), ttl)
	}
	return &user, nil
}

// RequireUser aborts with 401 when no principal was attached by
// Authenticate. This is the fail-closed half of the gate.
func RequireUser() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := CurrentUser(ctx); !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		ctx.Next()
	}
}

// CurrentUser returns the principal resolved for this request, if any.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	u, ok := v.(*model.User)
	return u, ok
}
