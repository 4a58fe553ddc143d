package service

import (
	"context"
	"time"

	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/repository"
	"go.uber.org/zap"
)

type NotificationService interface {
	Notify(ctx context.Context, userID, typ, title, body string, swapID *string)
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userID string) error
	MarkBySwap(ctx context.Context, userID, swapID string) error
}

type notificationService struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, logger *zap.Logger) NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &notificationService{repo: repo, logger: logger}
}

// Notify is best-effort; it logs errors but does not return them to avoid breaking main flows.
func (s *notificationService) Notify(ctx context.Context, userID, typ, title, body string, swapID *string) {
	if userID == "" || typ == "" {
		return
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	n := &model.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		SwapID: swapID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("notification not stored", zap.String("user_id", userID), zap.String("type", typ), zap.Error(err))
	}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, storeErr(err, "notifications")
	}
	cnt, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return list, 0, storeErr(err, "notifications")
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return storeErr(s.repo.MarkAllRead(ctx, userID), "notifications")
}

func (s *notificationService) MarkBySwap(ctx context.Context, userID, swapID string) error {
	if userID == "" || swapID == "" {
		return nil
	}
	return storeErr(s.repo.MarkBySwap(ctx, userID, swapID), "notifications")
}

func stringPtr(v string) *string {
	return &v
}

// withShortDeadline bounds side-effect writes so they cannot stall the caller.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}
