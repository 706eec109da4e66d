package model

import "time"

// FriendshipStatus is the state of a directed friendship edge.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "PENDING"
	FriendshipAccepted FriendshipStatus = "ACCEPTED"
	FriendshipRejected FriendshipStatus = "REJECTED"
)

// Friendship is one directed edge from UserID to FriendID.
// An accepted relationship is stored as two edges, one per direction,
// so listing a user's friends never needs a two-sided join.
// The unique index on (user_id, friend_id) keeps at most one edge per
// ordered pair even under concurrent accepts.
type Friendship struct {
	ID        int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64            `gorm:"uniqueIndex:idx_friendship_pair;not null" json:"user_id"`
	FriendID  int64            `gorm:"uniqueIndex:idx_friendship_pair;not null" json:"friend_id"`
	Status    FriendshipStatus `gorm:"size:16;default:PENDING" json:"status"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}
