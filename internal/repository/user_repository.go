package repository

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shinyyama/skillswap-backend/internal/model"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	Browse(ctx context.Context, skill string) ([]model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetBanned(ctx context.Context, id string, banned bool) error
	ListRatings(ctx context.Context, userID string, limit int) ([]model.UserRating, error)
	RatingSummary(ctx context.Context, userID string) (model.RatingSummary, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	out := make(map[string]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, u := range list {
		out[u.ID] = u
	}
	return out, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var u model.User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) Update(ctx context.Context, u *model.User) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Save(u).Error
}

var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

// skillPattern builds a LIKE pattern for the JSON text the skill lists are
// stored as, so characters encoding/json escapes (& < > " \) still match.
func skillPattern(skill string) string {
	b, _ := json.Marshal(strings.ToLower(skill))
	return "%" + likeEscaper.Replace(string(b[1:len(b)-1])) + "%"
}

// Browse narrows public, non-banned users by a case-insensitive match against
// the stored skill lists. Callers refine the match per skill entry.
func (r *userRepository) Browse(ctx context.Context, skill string) ([]model.User, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	q := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("is_public = ? AND is_banned = ?", true, false)
	if skill = strings.TrimSpace(skill); skill != "" {
		pattern := skillPattern(skill)
		q = q.Where("(LOWER(skills_offered) LIKE ? ESCAPE '!' OR LOWER(skills_wanted) LIKE ? ESCAPE '!')", pattern, pattern)
	}
	var list []model.User
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *userRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("is_banned", banned)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) ListRatings(ctx context.Context, userID string, limit int) ([]model.UserRating, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []model.UserRating
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *userRepository) RatingSummary(ctx context.Context, userID string) (model.RatingSummary, error) {
	var sum model.RatingSummary
	if r.db == nil {
		return sum, ErrDBNotReady
	}
	err := r.db.WithContext(ctx).
		Model(&model.UserRating{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Scan(&sum).Error
	return sum, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}
