package model

import "time"

// UserRating is one entry of a user's received ratings. The (swap, rater)
// pair is unique so a participant rates a given swap once.
type UserRating struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;size:128;index;not null"`
	RaterID   string    `gorm:"column:rater_id;size:128;not null;uniqueIndex:uniq_swap_rater"`
	SwapID    string    `gorm:"column:swap_id;size:36;not null;uniqueIndex:uniq_swap_rater"`
	Rating    int       `gorm:"column:rating;not null"`
	Feedback  string    `gorm:"column:feedback;type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (UserRating) TableName() string {
	return "user_ratings"
}

// RatingSummary is the aggregate shown on a profile.
type RatingSummary struct {
	Average float64
	Count   int64
}
