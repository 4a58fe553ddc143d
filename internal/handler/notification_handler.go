package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/service"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	svc    service.NotificationService
	logger *zap.Logger
}

func NewNotificationHandler(svc service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

type NotificationResponse struct {
	ID        uint64  `json:"id"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	SwapID    *string `json:"swapId,omitempty"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"createdAt"`
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		SwapID:    n.SwapID,
		Read:      n.ReadAt != nil,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	unreadOnly := c.QueryParam("unread_only") != "false"
	limit := 20
	if lStr := c.QueryParam("limit"); lStr != "" {
		if lParsed, err := strconv.Atoi(lStr); err == nil && lParsed > 0 {
			limit = lParsed
		}
	}
	list, unreadCount, err := h.svc.List(c.Request().Context(), uid, unreadOnly, limit)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, toNotificationResponse(n))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": resp,
		"unreadCount":   unreadCount,
	})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), uid); err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
