package friendship

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sharecal/server/cache"
	"github.com/sharecal/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Domain errors surfaced to the transport layer.
var (
	ErrSelfRequest      = errors.New("friendship: cannot send a request to yourself")
	ErrUserNotFound     = errors.New("friendship: user not found")
	ErrAlreadyRequested = errors.New("friendship: request or relationship already exists")
	ErrRequestNotFound  = errors.New("friendship: request not found")
	ErrNotPending       = errors.New("friendship: request is not pending")
)

// Event channels published on friendship state changes.
const (
	ChannelRequest = "friend.request"
	ChannelAccept  = "friend.accept"
)

// Event is the payload published for friendship notifications.
type Event struct {
	FriendshipID int64  `json:"friendship_id"`
	FromEmail    string `json:"from_email"`
	ToEmail      string `json:"to_email"`
}

// Request is one received, still-pending friend request.
type Request struct {
	FriendshipID int64      `json:"friendship_id"`
	Requester    model.User `json:"requester"`
}

// Service owns the directed friendship edges and their transitions.
//
// Edges move PENDING → ACCEPTED or PENDING → REJECTED and never back.
// Accepting writes the mirror edge in the same transaction, so an
// accepted relationship always exists in both directions.
type Service struct {
	db     *gorm.DB
	events cache.PubSub
	logger *zap.Logger
}

// New creates a friendship Service. events may be nil; notifications
// are then skipped.
func New(db *gorm.DB, events cache.PubSub, logger *zap.Logger) *Service {
	return &Service{db: db, events: events, logger: logger}
}

// SendRequest creates a PENDING edge from userEmail to friendEmail.
// Only that direction is checked for an existing edge; the reverse
// direction does not block a request.
func (s *Service) SendRequest(ctx context.Context, userEmail, friendEmail string) error {
	if userEmail == friendEmail {
		return ErrSelfRequest
	}

	user, err := s.findUser(ctx, userEmail)
	if err != nil {
		return err
	}
	friend, err := s.findUser(ctx, friendEmail)
	if err != nil {
		return err
	}

	var existing model.Friendship
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ?", user.ID, friend.ID).
		First(&existing).Error
	if err == nil {
		return ErrAlreadyRequested
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	edge := &model.Friendship{
		UserID:   user.ID,
		FriendID: friend.ID,
		Status:   model.FriendshipPending,
	}
	if err := s.db.WithContext(ctx).Create(edge).Error; err != nil {
		// A concurrent request for the same pair loses the race on the
		// (user_id, friend_id) unique index.
		if isUniqueViolation(err) {
			return ErrAlreadyRequested
		}
		return err
	}

	s.publish(ctx, ChannelRequest, Event{
		FriendshipID: edge.ID,
		FromEmail:    user.Email,
		ToEmail:      friend.Email,
	})
	return nil
}

// Accept moves a PENDING edge to ACCEPTED and ensures the mirror edge
// exists with status ACCEPTED. Both writes happen in one transaction;
// the mirror insert is an upsert so concurrent accepts cannot create a
// duplicate reverse edge.
func (s *Service) Accept(ctx context.Context, friendshipID int64) error {
	var edge model.Friendship
	if err := s.db.WithContext(ctx).First(&edge, friendshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if edge.Status != model.FriendshipPending {
		return ErrNotPending
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&edge).Update("status", model.FriendshipAccepted).Error; err != nil {
			return err
		}
		mirror := &model.Friendship{
			UserID:   edge.FriendID,
			FriendID: edge.UserID,
			Status:   model.FriendshipAccepted,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "friend_id"}},
			DoNothing: true,
		}).Create(mirror).Error
	})
	if err != nil {
		return err
	}

	s.publishByIDs(ctx, ChannelAccept, edge.ID, edge.FriendID, edge.UserID)
	return nil
}

// Reject moves a PENDING edge to REJECTED. The edge stays in place;
// there is no path back to pending for the same direction.
func (s *Service) Reject(ctx context.Context, friendshipID int64) error {
	var edge model.Friendship
	if err := s.db.WithContext(ctx).First(&edge, friendshipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if edge.Status != model.FriendshipPending {
		return ErrNotPending
	}
	return s.db.WithContext(ctx).
		Model(&edge).Update("status", model.FriendshipRejected).Error
}

// Friends lists the users on the other end of the caller's outgoing
// ACCEPTED edges.
func (s *Service) Friends(ctx context.Context, userEmail string) ([]model.User, error) {
	user, err := s.findUser(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	var edges []model.Friendship
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", user.ID, model.FriendshipAccepted).
		Find(&edges).Error; err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return []model.User{}, nil
	}

	ids := make([]int64, len(edges))
	for i, e := range edges {
		ids[i] = e.FriendID
	}
	var friends []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&friends).Error; err != nil {
		return nil, err
	}
	return friends, nil
}

// PendingReceived lists requests sent to the caller that are still
// PENDING, each with the edge ID needed to accept or reject it.
func (s *Service) PendingReceived(ctx context.Context, userEmail string) ([]Request, error) {
	user, err := s.findUser(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	var edges []model.Friendship
	if err := s.db.WithContext(ctx).
		Where("friend_id = ? AND status = ?", user.ID, model.FriendshipPending).
		Find(&edges).Error; err != nil {
		return nil, err
	}

	requests := make([]Request, 0, len(edges))
	for _, e := range edges {
		var requester model.User
		if err := s.db.WithContext(ctx).First(&requester, e.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		requests = append(requests, Request{FriendshipID: e.ID, Requester: requester})
	}
	return requests, nil
}

// RemoveFriend deletes the edges between the two users in both
// directions. Either direction may be missing; that is not an error.
func (s *Service) RemoveFriend(ctx context.Context, userEmail, friendEmail string) error {
	user, err := s.findUser(ctx, userEmail)
	if err != nil {
		return err
	}
	friend, err := s.findUser(ctx, friendEmail)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			user.ID, friend.ID, friend.ID, user.ID).
		Delete(&model.Friendship{}).Error
}

func (s *Service) findUser(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) publishByIDs(ctx context.Context, channel string, friendshipID, fromID, toID int64) {
	if s.events == nil {
		return
	}
	var from, to model.User
	if err := s.db.WithContext(ctx).First(&from, fromID).Error; err != nil {
		return
	}
	if err := s.db.WithContext(ctx).First(&to, toID).Error; err != nil {
		return
	}
	s.publish(ctx, channel, Event{FriendshipID: friendshipID, FromEmail: from.Email, ToEmail: to.Email})
}

func (s *Service) publish(ctx context.Context, channel string, ev Event) {
	if s.events == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.events.Publish(ctx, channel, string(payload)); err != nil {
		s.logger.Warn("friendship event publish failed",
			zap.String("channel", channel),
			zap.Error(err))
	}
}

// isUniqueViolation detects duplicate-key errors from common database drivers.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "already exists")
}
