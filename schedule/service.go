package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/sharecal/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("schedule: user not found")
	ErrScheduleNotFound = errors.New("schedule: not found")
	ErrNotOwner         = errors.New("schedule: not owned by caller")
	ErrNotFriends       = errors.New("schedule: requester is not an accepted friend of the owner")
)

// Input carries the caller-editable schedule fields.
type Input struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Public      bool      `json:"public"`
}

// Service owns schedule CRUD and the friend-visibility gate.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a schedule Service.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Create stores a new schedule owned by the caller.
func (s *Service) Create(ctx context.Context, ownerEmail string, in Input) (*model.Schedule, error) {
	owner, err := s.findUser(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	sched := &model.Schedule{
		UserID:      owner.ID,
		Title:       in.Title,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Public:      in.Public,
	}
	if err := s.db.WithContext(ctx).Create(sched).Error; err != nil {
		return nil, err
	}
	return sched, nil
}

// ListMine returns every schedule owned by the caller.
func (s *Service) ListMine(ctx context.Context, ownerEmail string) ([]model.Schedule, error) {
	owner, err := s.findUser(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	schedules := []model.Schedule{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", owner.ID).
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// Get returns one schedule owned by the caller.
func (s *Service) Get(ctx context.Context, ownerEmail string, id int64) (*model.Schedule, error) {
	owner, err := s.findUser(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	return s.findOwned(ctx, owner.ID, id)
}

// Update overwrites the editable fields of a schedule owned by the caller.
func (s *Service) Update(ctx context.Context, ownerEmail string, id int64, in Input) (*model.Schedule, error) {
	owner, err := s.findUser(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}
	sched, err := s.findOwned(ctx, owner.ID, id)
	if err != nil {
		return nil, err
	}

	sched.Title = in.Title
	sched.Description = in.Description
	sched.StartTime = in.StartTime
	sched.EndTime = in.EndTime
	sched.Public = in.Public
	if err := s.db.WithContext(ctx).Save(sched).Error; err != nil {
		return nil, err
	}
	return sched, nil
}

// Delete removes a schedule owned by the caller.
func (s *Service) Delete(ctx context.Context, ownerEmail string, id int64) error {
	owner, err := s.findUser(ctx, ownerEmail)
	if err != nil {
		return err
	}
	sched, err := s.findOwned(ctx, owner.ID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(sched).Error
}

// FriendSchedules returns the public schedules of ownerEmail, provided
// an ACCEPTED edge exists from the requester to the owner. Anything
// less than ACCEPTED (pending, rejected, or no edge at all) is refused.
func (s *Service) FriendSchedules(ctx context.Context, requesterEmail, ownerEmail string) ([]model.Schedule, error) {
	requester, err := s.findUser(ctx, requesterEmail)
	if err != nil {
		return nil, err
	}
	owner, err := s.findUser(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}

	var edge model.Friendship
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND friend_id = ? AND status = ?",
			requester.ID, owner.ID, model.FriendshipAccepted).
		First(&edge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFriends
		}
		return nil, err
	}

	schedules := []model.Schedule{}
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND public = ?", owner.ID, true).
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
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

func (s *Service) findOwned(ctx context.Context, ownerID, id int64) (*model.Schedule, error) {
	var sched model.Schedule
	if err := s.db.WithContext(ctx).First(&sched, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	if sched.UserID != ownerID {
		return nil, ErrNotOwner
	}
	return &sched, nil
}
