package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/skillswap-backend/internal/ai"
	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/service"
	"go.uber.org/zap"
)

// MessageDrafter produces a suggested swap request message.
type MessageDrafter interface {
	Draft(ctx context.Context, in ai.DraftInput) (string, error)
}

type SwapHandler struct {
	svc     service.SwapService
	users   service.UserService
	notify  service.NotificationService
	drafter MessageDrafter
	logger  *zap.Logger
}

func NewSwapHandler(svc service.SwapService, users service.UserService, notify service.NotificationService, drafter MessageDrafter, logger *zap.Logger) *SwapHandler {
	return &SwapHandler{svc: svc, users: users, notify: notify, drafter: drafter, logger: logger}
}

type FeedbackResponse struct {
	Rating   int     `json:"rating"`
	Feedback *string `json:"feedback,omitempty"`
}

type SwapResponse struct {
	ID                string               `json:"id"`
	RequesterID       string               `json:"requesterId"`
	RequestedID       string               `json:"requestedId"`
	SkillOffered      string               `json:"skillOffered"`
	SkillWanted       string               `json:"skillWanted"`
	Message           string               `json:"message"`
	Status            string               `json:"status"`
	RequesterFeedback *FeedbackResponse    `json:"requesterFeedback,omitempty"`
	RequestedFeedback *FeedbackResponse    `json:"requestedFeedback,omitempty"`
	Requester         *UserSummaryResponse `json:"requester,omitempty"`
	Requested         *UserSummaryResponse `json:"requested,omitempty"`
	CreatedAt         string               `json:"createdAt"`
	UpdatedAt         string               `json:"updatedAt"`
}

type UserSummaryResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ProfilePhoto *string `json:"profilePhoto"`
}

func feedbackResponse(rating *int, text *string) *FeedbackResponse {
	if rating == nil {
		return nil
	}
	return &FeedbackResponse{Rating: *rating, Feedback: text}
}

func toSwapResponse(s *model.Swap) SwapResponse {
	return SwapResponse{
		ID:                s.ID,
		RequesterID:       s.RequesterID,
		RequestedID:       s.RequestedID,
		SkillOffered:      s.SkillOffered,
		SkillWanted:       s.SkillWanted,
		Message:           s.Message,
		Status:            string(s.Status),
		RequesterFeedback: feedbackResponse(s.RequesterRating, s.RequesterFeedback),
		RequestedFeedback: feedbackResponse(s.RequestedRating, s.RequestedFeedback),
		CreatedAt:         s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         s.UpdatedAt.Format(time.RFC3339),
	}
}

func toUserSummary(u *service.UserSummary) *UserSummaryResponse {
	if u == nil {
		return nil
	}
	return &UserSummaryResponse{ID: u.ID, Name: u.Name, ProfilePhoto: strPtrOrNil(u.ProfilePhoto)}
}

type proposeRequest struct {
	RequestedID  string `json:"requestedId"`
	SkillOffered string `json:"skillOffered"`
	SkillWanted  string `json:"skillWanted"`
	Message      string `json:"message"`
}

func (h *SwapHandler) Propose(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	var req proposeRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if strings.TrimSpace(req.RequestedID) == "" {
		return badRequest(c, "requestedId is required")
	}
	sw, err := h.svc.Propose(c.Request().Context(), service.ProposeInput{
		RequesterID:  uid,
		RequestedID:  req.RequestedID,
		SkillOffered: req.SkillOffered,
		SkillWanted:  req.SkillWanted,
		Message:      req.Message,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, toSwapResponse(sw))
}

// List returns the caller's swaps. direction=incoming|outgoing|all, status filters by state.
func (h *SwapHandler) List(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	direction := c.QueryParam("direction")
	if direction == "" {
		direction = "all"
	}
	if direction != "all" && direction != "incoming" && direction != "outgoing" {
		return badRequest(c, "direction must be incoming, outgoing or all")
	}
	var status model.SwapStatus
	if raw := c.QueryParam("status"); raw != "" {
		st, ok := model.ParseSwapStatus(raw)
		if !ok {
			return badRequest(c, "unknown status")
		}
		status = st
	}
	list, err := h.svc.ListForUserDetailed(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	resp := make([]SwapResponse, 0, len(list))
	for _, item := range list {
		sw := item.Swap
		if direction == "incoming" && sw.RequestedID != uid {
			continue
		}
		if direction == "outgoing" && sw.RequesterID != uid {
			continue
		}
		if status != "" && sw.Status != status {
			continue
		}
		r := toSwapResponse(&sw)
		r.Requester = toUserSummary(item.Requester)
		r.Requested = toUserSummary(item.Requested)
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"swaps": resp})
}

func (h *SwapHandler) Get(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	sw, err := h.svc.Get(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if h.notify != nil {
		_ = h.notify.MarkBySwap(c.Request().Context(), uid, sw.ID)
	}
	return c.JSON(http.StatusOK, toSwapResponse(sw))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *SwapHandler) UpdateStatus(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	var req statusRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Status == "" {
		return badRequest(c, "status is required")
	}
	sw, err := h.svc.Transition(c.Request().Context(), c.Param("id"), uid, req.Status)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toSwapResponse(sw))
}

func (h *SwapHandler) Cancel(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	sw, err := h.svc.Transition(c.Request().Context(), c.Param("id"), uid, string(model.SwapStatusCancelled))
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toSwapResponse(sw))
}

type feedbackRequest struct {
	Rating   *int   `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h *SwapHandler) SubmitFeedback(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	var req feedbackRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if req.Rating == nil {
		return badRequest(c, "rating is required")
	}
	sw, err := h.svc.SubmitFeedback(c.Request().Context(), c.Param("id"), uid, *req.Rating, req.Feedback)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, toSwapResponse(sw))
}

type draftRequest struct {
	RequestedID  string `json:"requestedId"`
	SkillOffered string `json:"skillOffered"`
	SkillWanted  string `json:"skillWanted"`
	Tone         string `json:"tone"`
}

func (h *SwapHandler) Draft(c echo.Context) error {
	if h.drafter == nil {
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("unavailable", "message drafting is not configured"))
	}
	uid, ok := requireUID(c)
	if !ok {
		return missingUID(c)
	}
	var req draftRequest
	if err := bindStrict(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	if strings.TrimSpace(req.SkillOffered) == "" || strings.TrimSpace(req.SkillWanted) == "" {
		return badRequest(c, "skillOffered and skillWanted are required")
	}
	ctx := c.Request().Context()
	me, err := h.users.Get(ctx, uid)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	other, err := h.users.GetPublicProfile(ctx, req.RequestedID, uid)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	text, err := h.drafter.Draft(ctx, ai.DraftInput{
		RequesterName: me.Name,
		RequestedName: other.User.Name,
		SkillOffered:  req.SkillOffered,
		SkillWanted:   req.SkillWanted,
		Tone:          req.Tone,
	})
	if err != nil {
		h.logger.Warn("draft failed", zap.String("user_id", uid), zap.Error(err))
		return c.JSON(http.StatusBadGateway, NewErrorResponse("draft_failed", "could not draft a message"))
	}
	return c.JSON(http.StatusOK, map[string]string{"message": text})
}
