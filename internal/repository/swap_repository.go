package repository

import (
	"context"
	"errors"

	"github.com/shinyyama/skillswap-backend/internal/model"
	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// ErrFeedbackRecorded is returned when the caller's feedback slot is already
// filled or the swap left the completed state underneath the write.
var ErrFeedbackRecorded = errors.New("feedback already recorded")

type SwapRepository interface {
	Create(ctx context.Context, s *model.Swap) error
	FindByID(ctx context.Context, id string) (*model.Swap, error)
	UpdateStatusIfCurrent(ctx context.Context, id string, from, to model.SwapStatus) (int64, error)
	RecordFeedback(ctx context.Context, s *model.Swap, role model.SwapRole, rating int, feedback string) error
	ListByUser(ctx context.Context, uid string) ([]model.Swap, error)
	ListAll(ctx context.Context, status model.SwapStatus) ([]model.Swap, error)
	CountByStatus(ctx context.Context) (map[model.SwapStatus]int64, error)
}

type swapRepository struct {
	db *gorm.DB
}

func NewSwapRepository(db *gorm.DB) SwapRepository {
	return &swapRepository{db: db}
}

func (r *swapRepository) Create(ctx context.Context, s *model.Swap) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *swapRepository) FindByID(ctx context.Context, id string) (*model.Swap, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var s model.Swap
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStatusIfCurrent moves the swap to `to` only while it is still in `from`.
// The returned row count is zero when another writer got there first.
func (r *swapRepository) UpdateStatusIfCurrent(ctx context.Context, id string, from, to model.SwapStatus) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Swap{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": r.db.NowFunc(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// RecordFeedback fills the rating slot owned by role and appends the matching
// entry to the counterpart's ratings in one transaction.
func (r *swapRepository) RecordFeedback(ctx context.Context, s *model.Swap, role model.SwapRole, rating int, feedback string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	ratingCol, feedbackCol := "requester_rating", "requester_feedback"
	rater, rated := s.RequesterID, s.RequestedID
	if role == model.RoleRequested {
		ratingCol, feedbackCol = "requested_rating", "requested_feedback"
		rater, rated = s.RequestedID, s.RequesterID
	}
	var text interface{}
	if feedback != "" {
		text = feedback
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Swap{}).
			Where("id = ? AND status = ? AND "+ratingCol+" IS NULL", s.ID, model.SwapStatusCompleted).
			Updates(map[string]interface{}{
				ratingCol:    rating,
				feedbackCol:  text,
				"updated_at": tx.NowFunc(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrFeedbackRecorded
		}
		entry := &model.UserRating{
			UserID:   rated,
			RaterID:  rater,
			SwapID:   s.ID,
			Rating:   rating,
			Feedback: feedback,
		}
		if err := tx.Create(entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrFeedbackRecorded
			}
			return err
		}
		return nil
	})
}

func (r *swapRepository) ListByUser(ctx context.Context, uid string) ([]model.Swap, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Swap
	if err := r.db.WithContext(ctx).
		Where("requester_id = ? OR requested_id = ?", uid, uid).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListAll returns every swap, newest first; an empty status means no filter.
func (r *swapRepository) ListAll(ctx context.Context, status model.SwapStatus) ([]model.Swap, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).Model(&model.Swap{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var list []model.Swap
	if err := q.Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *swapRepository) CountByStatus(ctx context.Context) (map[model.SwapStatus]int64, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var rows []struct {
		Status model.SwapStatus
		Cnt    int64
	}
	if err := r.db.WithContext(ctx).
		Model(&model.Swap{}).
		Select("status, COUNT(*) AS cnt").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[model.SwapStatus]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Cnt
	}
	return out, nil
}
