package services

import (
	"context"
	"errors"
	"time"

	"github.com/purgo-board/apiserver/internal/store"
	"github.com/purgo-board/apiserver/types"
)

// StandingRepository defines persistence operations for penalties and limits.
type StandingRepository interface {
	GetPenalty(ctx context.Context, userID int) (types.PenaltyCounter, error)
	GetLimit(ctx context.Context, userID int) (types.LimitWindow, error)
	SetLimit(ctx context.Context, limit types.LimitWindow) error
}

// StandingService answers whether a user may post and manages restrictions.
type StandingService struct {
	repo StandingRepository
	now  func() time.Time
}

func NewStandingService(repo StandingRepository) *StandingService {
	return &StandingService{repo: repo, now: time.Now}
}

// CheckLimit returns a *RestrictionError while the user's window is active.
func (s *StandingService) CheckLimit(ctx context.Context, userID int) error {
	limit, err := s.Limit(ctx, userID)
	if err != nil {
		return err
	}
	if limit.Restricts(s.now()) {
		return &RestrictionError{Until: *limit.EndDate}
	}
	return nil
}

// Limit returns the user's limit window. A missing row reads as unrestricted.
func (s *StandingService) Limit(ctx context.Context, userID int) (types.LimitWindow, error) {
	limit, err := s.repo.GetLimit(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.LimitWindow{UserID: userID}, nil
		}
		return types.LimitWindow{}, err
	}
	return limit, nil
}

// PenaltyCount returns the user's counter value. A missing row reads as zero.
func (s *StandingService) PenaltyCount(ctx context.Context, userID int) (int, error) {
	penalty, err := s.repo.GetPenalty(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return penalty.Count, nil
}

// Restrict opens a restriction window starting now.
func (s *StandingService) Restrict(ctx context.Context, userID int, duration time.Duration) (types.LimitWindow, error) {
	if duration <= 0 {
		return types.LimitWindow{}, invalid("restriction duration must be positive")
	}
	start := s.now()
	end := start.Add(duration)
	limit := types.LimitWindow{
		UserID:    userID,
		IsActive:  true,
		StartDate: &start,
		EndDate:   &end,
	}
	if err := s.repo.SetLimit(ctx, limit); err != nil {
		return types.LimitWindow{}, err
	}
	return limit, nil
}

// Lift clears the user's restriction window.
func (s *StandingService) Lift(ctx context.Context, userID int) error {
	return s.repo.SetLimit(ctx, types.LimitWindow{UserID: userID, IsActive: false})
}
