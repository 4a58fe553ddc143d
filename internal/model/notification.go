package model

import "time"

const (
	NotificationSwapRequested = "swap_requested"
	NotificationSwapAccepted  = "swap_accepted"
	NotificationSwapRejected  = "swap_rejected"
	NotificationSwapCancelled = "swap_cancelled"
	NotificationSwapCompleted = "swap_completed"
	NotificationSwapRated     = "swap_rated"
)

type Notification struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement"`
	UserID    string     `gorm:"column:user_id;size:128;index;not null"`
	Type      string     `gorm:"column:type;size:64;not null"`
	Title     string     `gorm:"column:title;size:255"`
	Body      string     `gorm:"column:body;type:text"`
	SwapID    *string    `gorm:"column:swap_id;size:36;index"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

func (Notification) TableName() string {
	return "notifications"
}
