package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/purgo-board/apiserver/types"
)

// StandingRepository handles a user's penalty counter and limit window.
type StandingRepository struct {
	db DBTX
}

func NewStandingRepository(db DBTX) *StandingRepository {
	return &StandingRepository{db: db}
}

// CreateDefaults inserts the zero penalty counter and an active limit
// window without bounds.
func (r *StandingRepository) CreateDefaults(ctx context.Context, userID int, at time.Time) error {
	const penaltyQuery = `
		INSERT INTO penalty_counts (user_id, penalty_count, last_update)
		VALUES ($1, 0, $2::date)`
	if _, err := r.db.ExecContext(ctx, penaltyQuery, userID, calendarDate(at)); err != nil {
		return translateError(err)
	}

	const limitQuery = `
		INSERT INTO user_limits (user_id, is_active, start_date, end_date)
		VALUES ($1, TRUE, NULL, NULL)`
	if _, err := r.db.ExecContext(ctx, limitQuery, userID); err != nil {
		return translateError(err)
	}
	return nil
}

func (r *StandingRepository) GetPenalty(ctx context.Context, userID int) (types.PenaltyCounter, error) {
	const query = `
		SELECT user_id, penalty_count, last_update
		FROM penalty_counts
		WHERE user_id = $1`
	var penalty types.PenaltyCounter
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&penalty.UserID,
		&penalty.Count,
		&penalty.LastUpdate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.PenaltyCounter{}, ErrNotFound
		}
		return types.PenaltyCounter{}, err
	}
	return penalty, nil
}

// IncrementPenalty adds exactly one to the counter. The single UPDATE takes
// the row lock, so concurrent increments for one user serialize.
func (r *StandingRepository) IncrementPenalty(ctx context.Context, userID int, at time.Time) (int, error) {
	const query = `
		UPDATE penalty_counts
		SET penalty_count = penalty_count + 1,
			last_update = $2::date
		WHERE user_id = $1
		RETURNING penalty_count`
	var count int
	if err := r.db.QueryRowContext(ctx, query, userID, calendarDate(at)).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return count, nil
}

func (r *StandingRepository) GetLimit(ctx context.Context, userID int) (types.LimitWindow, error) {
	const query = `
		SELECT user_id, is_active, start_date, end_date
		FROM user_limits
		WHERE user_id = $1`
	var limit types.LimitWindow
	var start, end sql.NullTime
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&limit.UserID,
		&limit.IsActive,
		&start,
		&end,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.LimitWindow{}, ErrNotFound
		}
		return types.LimitWindow{}, err
	}
	if start.Valid {
		limit.StartDate = &start.Time
	}
	if end.Valid {
		limit.EndDate = &end.Time
	}
	return limit, nil
}

func (r *StandingRepository) SetLimit(ctx context.Context, limit types.LimitWindow) error {
	const query = `
		UPDATE user_limits
		SET is_active = $1,
			start_date = $2,
			end_date = $3
		WHERE user_id = $4`
	result, err := r.db.ExecContext(ctx, query, limit.IsActive, nullTime(limit.StartDate), nullTime(limit.EndDate), limit.UserID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
