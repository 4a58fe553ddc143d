package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shinyyama/skillswap-backend/internal/events"
	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/repository"
	"go.uber.org/zap"
)

const (
	maxSkillLen    = 100
	maxMessageLen  = 500
	maxFeedbackLen = 1000
	minRating      = 1
	maxRating      = 5
)

type SwapService interface {
	Propose(ctx context.Context, in ProposeInput) (*model.Swap, error)
	Transition(ctx context.Context, swapID, actorID, target string) (*model.Swap, error)
	SubmitFeedback(ctx context.Context, swapID, actorID string, rating int, feedback string) (*model.Swap, error)
	Get(ctx context.Context, swapID, actorID string) (*model.Swap, error)
	ListForUser(ctx context.Context, userID string) ([]model.Swap, error)
	ListForUserDetailed(ctx context.Context, userID string) ([]SwapWithParties, error)
}

type ProposeInput struct {
	RequesterID  string
	RequestedID  string
	SkillOffered string
	SkillWanted  string
	Message      string
}

// UserSummary is the public slice of a user attached to swap listings.
type UserSummary struct {
	ID           string
	Name         string
	ProfilePhoto string
}

type SwapWithParties struct {
	Swap      model.Swap
	Requester *UserSummary
	Requested *UserSummary
}

type swapService struct {
	swapRepo  repository.SwapRepository
	userRepo  repository.UserRepository
	notify    NotificationService
	publisher events.Publisher
	logger    *zap.Logger
}

func NewSwapService(swapRepo repository.SwapRepository, userRepo repository.UserRepository, notify NotificationService, publisher events.Publisher, logger *zap.Logger) SwapService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &swapService{swapRepo: swapRepo, userRepo: userRepo, notify: notify, publisher: publisher, logger: logger}
}

func (s *swapService) Propose(ctx context.Context, in ProposeInput) (*model.Swap, error) {
	if in.RequesterID == "" {
		return nil, ErrUnauthorized
	}
	requested, err := s.userRepo.FindByID(ctx, in.RequestedID)
	if err != nil {
		return nil, storeErr(err, "requested user")
	}
	if requested.IsBanned {
		return nil, fmt.Errorf("%w: requested user", ErrNotFound)
	}
	if in.RequesterID == in.RequestedID {
		return nil, invalidArg("cannot request a swap with yourself")
	}
	offered := strings.TrimSpace(in.SkillOffered)
	wanted := strings.TrimSpace(in.SkillWanted)
	msg := strings.TrimSpace(in.Message)
	switch {
	case offered == "":
		return nil, invalidArg("skillOffered is required")
	case wanted == "":
		return nil, invalidArg("skillWanted is required")
	case utf8.RuneCountInString(offered) > maxSkillLen:
		return nil, invalidArg("skillOffered exceeds %d characters", maxSkillLen)
	case utf8.RuneCountInString(wanted) > maxSkillLen:
		return nil, invalidArg("skillWanted exceeds %d characters", maxSkillLen)
	case utf8.RuneCountInString(msg) > maxMessageLen:
		return nil, invalidArg("message exceeds %d characters", maxMessageLen)
	}

	sw := &model.Swap{
		RequesterID:  in.RequesterID,
		RequestedID:  in.RequestedID,
		SkillOffered: offered,
		SkillWanted:  wanted,
		Message:      msg,
		Status:       model.SwapStatusPending,
	}
	if err := s.swapRepo.Create(ctx, sw); err != nil {
		return nil, storeErr(err, "swap")
	}
	s.logger.Info("swap proposed",
		zap.String("swap_id", sw.ID),
		zap.String("requester_id", sw.RequesterID),
		zap.String("requested_id", sw.RequestedID))

	s.notify.Notify(ctx, sw.RequestedID, model.NotificationSwapRequested,
		"New swap request",
		fmt.Sprintf("Someone offers %s in exchange for %s.", sw.SkillOffered, sw.SkillWanted),
		stringPtr(sw.ID))
	s.publish(ctx, sw, "", in.RequesterID)
	return sw, nil
}

func (s *swapService) Transition(ctx context.Context, swapID, actorID, target string) (*model.Swap, error) {
	sw, err := s.swapRepo.FindByID(ctx, swapID)
	if err != nil {
		return nil, storeErr(err, "swap")
	}
	role := sw.RoleOf(actorID)
	if role == model.RoleNone {
		return nil, fmt.Errorf("%w: not a participant of this swap", ErrUnauthorized)
	}
	to, ok := model.ParseSwapStatus(target)
	if !ok {
		return nil, invalidArg("unknown status %q", target)
	}
	from := sw.Status
	edge, allowed := model.TransitionAllowed(from, to, role)
	if !edge {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s may not move a swap to %s", ErrUnauthorized, role, to)
	}

	n, err := s.swapRepo.UpdateStatusIfCurrent(ctx, sw.ID, from, to)
	if err != nil {
		return nil, storeErr(err, "swap")
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: swap is no longer %s", ErrConflict, from)
	}

	updated, err := s.swapRepo.FindByID(ctx, sw.ID)
	if err != nil {
		s.logger.Warn("reload after transition failed", zap.String("swap_id", sw.ID), zap.Error(err))
		sw.Status = to
		sw.UpdatedAt = time.Now()
		updated = sw
	}
	s.logger.Info("swap transitioned",
		zap.String("swap_id", sw.ID),
		zap.String("actor_id", actorID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	typ, title := transitionNotice(to)
	s.notify.Notify(ctx, updated.Counterpart(actorID), typ, title,
		fmt.Sprintf("%s for %s", updated.SkillOffered, updated.SkillWanted),
		stringPtr(updated.ID))
	s.publish(ctx, updated, "", actorID)
	return updated, nil
}

func transitionNotice(to model.SwapStatus) (string, string) {
	switch to {
	case model.SwapStatusAccepted:
		return model.NotificationSwapAccepted, "Swap request accepted"
	case model.SwapStatusRejected:
		return model.NotificationSwapRejected, "Swap request rejected"
	case model.SwapStatusCancelled:
		return model.NotificationSwapCancelled, "Swap request cancelled"
	default:
		return model.NotificationSwapCompleted, "Swap completed"
	}
}

func (s *swapService) SubmitFeedback(ctx context.Context, swapID, actorID string, rating int, feedback string) (*model.Swap, error) {
	if rating < minRating || rating > maxRating {
		return nil, invalidArg("rating must be between %d and %d", minRating, maxRating)
	}
	feedback = strings.TrimSpace(feedback)
	if utf8.RuneCountInString(feedback) > maxFeedbackLen {
		return nil, invalidArg("feedback exceeds %d characters", maxFeedbackLen)
	}
	sw, err := s.swapRepo.FindByID(ctx, swapID)
	if err != nil {
		return nil, storeErr(err, "swap")
	}
	role := sw.RoleOf(actorID)
	if role == model.RoleNone {
		return nil, fmt.Errorf("%w: not a participant of this swap", ErrUnauthorized)
	}
	if sw.Status != model.SwapStatusCompleted {
		return nil, fmt.Errorf("%w: feedback requires a completed swap, got %s", ErrInvalidState, sw.Status)
	}
	if sw.HasRated(role) {
		return nil, ErrAlreadyRated
	}

	if err := s.swapRepo.RecordFeedback(ctx, sw, role, rating, feedback); err != nil {
		if errors.Is(err, repository.ErrFeedbackRecorded) {
			return nil, ErrAlreadyRated
		}
		return nil, storeErr(err, "swap")
	}

	updated, err := s.swapRepo.FindByID(ctx, sw.ID)
	if err != nil {
		s.logger.Warn("reload after feedback failed", zap.String("swap_id", sw.ID), zap.Error(err))
		applyFeedback(sw, role, rating, feedback)
		updated = sw
	}
	rated := updated.Counterpart(actorID)
	s.logger.Info("swap rated",
		zap.String("swap_id", sw.ID),
		zap.String("rater_id", actorID),
		zap.String("rated_id", rated),
		zap.Int("rating", rating))

	s.notify.Notify(ctx, rated, model.NotificationSwapRated,
		"You received feedback",
		fmt.Sprintf("You were rated %d/5 for %s.", rating, skillFor(updated, rated)),
		stringPtr(updated.ID))
	s.publish(ctx, updated, events.KindRated, actorID)
	return updated, nil
}

// skillFor names the skill the given participant taught in the swap.
func skillFor(sw *model.Swap, uid string) string {
	if uid == sw.RequesterID {
		return sw.SkillOffered
	}
	return sw.SkillWanted
}

func applyFeedback(sw *model.Swap, role model.SwapRole, rating int, feedback string) {
	var text *string
	if feedback != "" {
		text = &feedback
	}
	if role == model.RoleRequester {
		sw.RequesterRating, sw.RequesterFeedback = &rating, text
		return
	}
	sw.RequestedRating, sw.RequestedFeedback = &rating, text
}

func (s *swapService) Get(ctx context.Context, swapID, actorID string) (*model.Swap, error) {
	sw, err := s.swapRepo.FindByID(ctx, swapID)
	if err != nil {
		return nil, storeErr(err, "swap")
	}
	if sw.RoleOf(actorID) == model.RoleNone {
		return nil, fmt.Errorf("%w: not a participant of this swap", ErrUnauthorized)
	}
	return sw, nil
}

func (s *swapService) ListForUser(ctx context.Context, userID string) ([]model.Swap, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	list, err := s.swapRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "swaps")
	}
	return list, nil
}

func (s *swapService) ListForUserDetailed(ctx context.Context, userID string) ([]SwapWithParties, error) {
	list, err := s.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list)+1)
	seen := map[string]bool{}
	for _, sw := range list {
		for _, id := range []string{sw.RequesterID, sw.RequestedID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	resp := make([]SwapWithParties, 0, len(list))
	for _, sw := range list {
		resp = append(resp, SwapWithParties{
			Swap:      sw,
			Requester: summarize(users, sw.RequesterID),
			Requested: summarize(users, sw.RequestedID),
		})
	}
	return resp, nil
}

func summarize(users map[string]model.User, id string) *UserSummary {
	u, ok := users[id]
	if !ok {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, ProfilePhoto: u.ProfilePhoto}
}

func (s *swapService) publish(ctx context.Context, sw *model.Swap, kind, actorID string) {
	evt := events.SwapEvent{
		Kind:        kind,
		SwapID:      sw.ID,
		RequesterID: sw.RequesterID,
		RequestedID: sw.RequestedID,
		Status:      string(sw.Status),
		ActorID:     actorID,
		At:          time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("swap event not published", zap.String("subject", evt.Subject()), zap.Error(err))
	}
}
