package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type swapFixture struct {
	svc      SwapService
	swaps    *memSwapRepo
	users    *memUserRepo
	notes    *memNotificationRepo
	pub      *recordingPublisher
	u1, u2   string
	outsider string
}

func newSwapFixture(t *testing.T) *swapFixture {
	t.Helper()
	swaps := newMemSwapRepo()
	users := newMemUserRepo(
		model.User{ID: "u1", Name: "Ana", Email: "ana@example.com", IsPublic: true},
		model.User{ID: "u2", Name: "Ben", Email: "ben@example.com", IsPublic: true},
		model.User{ID: "u3", Name: "Cat", Email: "cat@example.com", IsPublic: true},
		model.User{ID: "banned", Name: "Dan", Email: "dan@example.com", IsBanned: true},
	)
	users.ratings = swaps
	notes := &memNotificationRepo{}
	pub := &recordingPublisher{}
	svc := NewSwapService(swaps, users, NewNotificationService(notes, nil), pub, nil)
	return &swapFixture{svc: svc, swaps: swaps, users: users, notes: notes, pub: pub, u1: "u1", u2: "u2", outsider: "u3"}
}

func (f *swapFixture) propose(t *testing.T) *model.Swap {
	t.Helper()
	sw, err := f.svc.Propose(context.Background(), ProposeInput{
		RequesterID:  f.u1,
		RequestedID:  f.u2,
		SkillOffered: "Guitar",
		SkillWanted:  "Photoshop",
	})
	require.NoError(t, err)
	return sw
}

func (f *swapFixture) completed(t *testing.T) *model.Swap {
	t.Helper()
	ctx := context.Background()
	sw := f.propose(t)
	_, err := f.svc.Transition(ctx, sw.ID, f.u2, "accepted")
	require.NoError(t, err)
	sw, err = f.svc.Transition(ctx, sw.ID, f.u1, "completed")
	require.NoError(t, err)
	return sw
}

func TestProposeCreatesPendingSwap(t *testing.T) {
	f := newSwapFixture(t)
	sw, err := f.svc.Propose(context.Background(), ProposeInput{
		RequesterID:  f.u1,
		RequestedID:  f.u2,
		SkillOffered: "  Guitar ",
		SkillWanted:  "Photoshop",
		Message:      " hi ",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sw.ID)
	assert.Equal(t, model.SwapStatusPending, sw.Status)
	assert.Equal(t, "Guitar", sw.SkillOffered)
	assert.Equal(t, "hi", sw.Message)
	assert.Nil(t, sw.RequesterRating)
	assert.Nil(t, sw.RequestedRating)

	notes := f.notes.forUser(f.u2)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationSwapRequested, notes[0].Type)
	assert.Equal(t, []string{"skillswap.swap.pending"}, f.pub.subjects())
}

func TestProposeValidation(t *testing.T) {
	long := strings.Repeat("x", 101)
	tests := []struct {
		name string
		in   ProposeInput
		want error
	}{
		{"unknown requested user", ProposeInput{RequesterID: "u1", RequestedID: "ghost", SkillOffered: "a", SkillWanted: "b"}, ErrNotFound},
		{"banned requested user", ProposeInput{RequesterID: "u1", RequestedID: "banned", SkillOffered: "a", SkillWanted: "b"}, ErrNotFound},
		{"self swap", ProposeInput{RequesterID: "u1", RequestedID: "u1", SkillOffered: "a", SkillWanted: "b"}, ErrInvalidArgument},
		{"blank offered", ProposeInput{RequesterID: "u1", RequestedID: "u2", SkillOffered: "   ", SkillWanted: "b"}, ErrInvalidArgument},
		{"blank wanted", ProposeInput{RequesterID: "u1", RequestedID: "u2", SkillOffered: "a", SkillWanted: ""}, ErrInvalidArgument},
		{"offered too long", ProposeInput{RequesterID: "u1", RequestedID: "u2", SkillOffered: long, SkillWanted: "b"}, ErrInvalidArgument},
		{"message too long", ProposeInput{RequesterID: "u1", RequestedID: "u2", SkillOffered: "a", SkillWanted: "b", Message: strings.Repeat("m", 501)}, ErrInvalidArgument},
		{"anonymous", ProposeInput{RequestedID: "u2", SkillOffered: "a", SkillWanted: "b"}, ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSwapFixture(t)
			_, err := f.svc.Propose(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.swaps.swaps)
		})
	}
}

func TestScenarioAcceptThenComplete(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	sw, err := f.svc.Transition(ctx, sw.ID, f.u2, "accepted")
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusAccepted, sw.Status)

	sw, err = f.svc.Transition(ctx, sw.ID, f.u1, "completed")
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusCompleted, sw.Status)

	assert.Equal(t, []string{"skillswap.swap.pending", "skillswap.swap.accepted", "skillswap.swap.completed"}, f.pub.subjects())
	require.Len(t, f.notes.forUser(f.u1), 1)
	assert.Equal(t, model.NotificationSwapAccepted, f.notes.forUser(f.u1)[0].Type)
	assert.Equal(t, model.NotificationSwapCompleted, f.notes.forUser(f.u2)[0].Type)
}

func TestScenarioRequesterCannotAccept(t *testing.T) {
	f := newSwapFixture(t)
	sw := f.propose(t)

	_, err := f.svc.Transition(context.Background(), sw.ID, f.u1, "accepted")
	assert.ErrorIs(t, err, ErrUnauthorized)

	stored, _ := f.swaps.FindByID(context.Background(), sw.ID)
	assert.Equal(t, model.SwapStatusPending, stored.Status)
}

func TestScenarioRejectedIsTerminal(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	sw, err := f.svc.Transition(ctx, sw.ID, f.u2, "rejected")
	require.NoError(t, err)
	assert.Equal(t, model.SwapStatusRejected, sw.Status)

	_, err = f.svc.Transition(ctx, sw.ID, f.u2, "accepted")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestScenarioFeedbackOnce(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()
	sw := f.completed(t)

	sw, err := f.svc.SubmitFeedback(ctx, sw.ID, f.u1, 5, "great teacher")
	require.NoError(t, err)
	require.NotNil(t, sw.RequesterRating)
	assert.Equal(t, 5, *sw.RequesterRating)
	require.NotNil(t, sw.RequesterFeedback)
	assert.Equal(t, "great teacher", *sw.RequesterFeedback)
	assert.Nil(t, sw.RequestedRating)
	assert.Equal(t, model.SwapStatusCompleted, sw.Status)

	ratings, _ := f.users.ListRatings(ctx, f.u2, 0)
	require.Len(t, ratings, 1)
	assert.Equal(t, f.u1, ratings[0].RaterID)
	assert.Equal(t, 5, ratings[0].Rating)

	_, err = f.svc.SubmitFeedback(ctx, sw.ID, f.u1, 4, "again")
	assert.ErrorIs(t, err, ErrAlreadyRated)

	ratings, _ = f.users.ListRatings(ctx, f.u2, 0)
	assert.Len(t, ratings, 1)
	stored, _ := f.swaps.FindByID(ctx, sw.ID)
	assert.Equal(t, 5, *stored.RequesterRating)
}

func TestFeedbackBothParticipants(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()
	sw := f.completed(t)

	_, err := f.svc.SubmitFeedback(ctx, sw.ID, f.u1, 5, "")
	require.NoError(t, err)
	sw, err = f.svc.SubmitFeedback(ctx, sw.ID, f.u2, 3, "ok")
	require.NoError(t, err)

	assert.Equal(t, 5, *sw.RequesterRating)
	assert.Nil(t, sw.RequesterFeedback)
	assert.Equal(t, 3, *sw.RequestedRating)
	assert.Equal(t, model.SwapStatusCompleted, sw.Status)

	u1Ratings, _ := f.users.ListRatings(ctx, f.u1, 0)
	require.Len(t, u1Ratings, 1)
	assert.Equal(t, 3, u1Ratings[0].Rating)
	assert.Contains(t, f.pub.subjects(), "skillswap.swap.rated")
}

func TestTransitionGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("missing swap", func(t *testing.T) {
		f := newSwapFixture(t)
		_, err := f.svc.Transition(ctx, "nope", f.u1, "accepted")
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("outsider", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.propose(t)
		_, err := f.svc.Transition(ctx, sw.ID, f.outsider, "accepted")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
	t.Run("outsider checked before status", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.propose(t)
		_, err := f.svc.Transition(ctx, sw.ID, f.outsider, "bogus")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
	t.Run("unknown status", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.propose(t)
		_, err := f.svc.Transition(ctx, sw.ID, f.u2, "archived")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
	t.Run("requested cannot cancel", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.propose(t)
		_, err := f.svc.Transition(ctx, sw.ID, f.u2, "cancelled")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
	t.Run("requester cancels", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.propose(t)
		sw, err := f.svc.Transition(ctx, sw.ID, f.u1, "cancelled")
		require.NoError(t, err)
		assert.Equal(t, model.SwapStatusCancelled, sw.Status)
	})
	t.Run("pending cannot complete", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.propose(t)
		_, err := f.svc.Transition(ctx, sw.ID, f.u1, "completed")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
	t.Run("self loop", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.propose(t)
		_, err := f.svc.Transition(ctx, sw.ID, f.u2, "pending")
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
	t.Run("requested completes", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.propose(t)
		_, err := f.svc.Transition(ctx, sw.ID, f.u2, "accepted")
		require.NoError(t, err)
		sw, err = f.svc.Transition(ctx, sw.ID, f.u2, "completed")
		require.NoError(t, err)
		assert.Equal(t, model.SwapStatusCompleted, sw.Status)
	})
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	ctx := context.Background()
	targets := []string{"pending", "accepted", "rejected", "cancelled", "completed"}
	for _, terminal := range []model.SwapStatus{model.SwapStatusRejected, model.SwapStatusCancelled, model.SwapStatusCompleted} {
		f := newSwapFixture(t)
		sw := f.propose(t)
		sw.Status = terminal
		f.swaps.set(*sw)
		for _, target := range targets {
			for _, actor := range []string{f.u1, f.u2} {
				_, err := f.svc.Transition(ctx, sw.ID, actor, target)
				assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s by %s", terminal, target, actor)
			}
		}
		stored, _ := f.swaps.FindByID(ctx, sw.ID)
		assert.Equal(t, terminal, stored.Status)
	}
}

func TestTransitionConflict(t *testing.T) {
	f := newSwapFixture(t)
	sw := f.propose(t)

	// The requester cancels between the service's read and its write.
	f.swaps.beforeUpdate = func() {
		f.swaps.beforeUpdate = nil
		cur, _ := f.swaps.FindByID(context.Background(), sw.ID)
		cur.Status = model.SwapStatusCancelled
		f.swaps.set(*cur)
	}
	_, err := f.svc.Transition(context.Background(), sw.ID, f.u2, "accepted")
	assert.ErrorIs(t, err, ErrConflict)

	stored, _ := f.swaps.FindByID(context.Background(), sw.ID)
	assert.Equal(t, model.SwapStatusCancelled, stored.Status)
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	f := newSwapFixture(t)
	sw := f.propose(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, target := range []string{"accepted", "rejected"} {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			_, errs[i] = f.svc.Transition(context.Background(), sw.ID, f.u2, target)
		}(i, target)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, assertIsOneOf(err, ErrConflict, ErrInvalidTransition), "unexpected error %v", err)
	}
	assert.Equal(t, 1, wins)
}

func assertIsOneOf(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func TestSubmitFeedbackGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("rating range", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.completed(t)
		for _, r := range []int{0, 6, -1} {
			_, err := f.svc.SubmitFeedback(ctx, sw.ID, f.u1, r, "")
			assert.ErrorIs(t, err, ErrInvalidArgument)
		}
		stored, _ := f.swaps.FindByID(ctx, sw.ID)
		assert.Nil(t, stored.RequesterRating)
	})
	t.Run("feedback too long", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.completed(t)
		_, err := f.svc.SubmitFeedback(ctx, sw.ID, f.u1, 4, strings.Repeat("f", 1001))
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
	t.Run("missing swap", func(t *testing.T) {
		f := newSwapFixture(t)
		_, err := f.svc.SubmitFeedback(ctx, "nope", f.u1, 4, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
	t.Run("outsider", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.completed(t)
		_, err := f.svc.SubmitFeedback(ctx, sw.ID, f.outsider, 4, "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
	t.Run("not completed", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.propose(t)
		_, err := f.svc.SubmitFeedback(ctx, sw.ID, f.u1, 4, "")
		assert.ErrorIs(t, err, ErrInvalidState)

		_, err = f.svc.Transition(ctx, sw.ID, f.u2, "accepted")
		require.NoError(t, err)
		_, err = f.svc.SubmitFeedback(ctx, sw.ID, f.u1, 4, "")
		assert.ErrorIs(t, err, ErrInvalidState)
	})
	t.Run("slot taken under the write", func(t *testing.T) {
		f := newSwapFixture(t)
		sw := f.completed(t)
		f.swaps.beforeUpdate = func() {
			f.swaps.beforeUpdate = nil
			cur, _ := f.swaps.FindByID(ctx, sw.ID)
			applyFeedback(cur, model.RoleRequester, 2, "")
			f.swaps.set(*cur)
		}
		_, err := f.svc.SubmitFeedback(ctx, sw.ID, f.u1, 5, "")
		assert.ErrorIs(t, err, ErrAlreadyRated)
	})
}

func TestGetIsParticipantOnly(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()
	sw := f.propose(t)

	got, err := f.svc.Get(ctx, sw.ID, f.u2)
	require.NoError(t, err)
	assert.Equal(t, sw.ID, got.ID)

	_, err = f.svc.Get(ctx, sw.ID, f.outsider)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Get(ctx, "nope", f.u1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListForUser(t *testing.T) {
	f := newSwapFixture(t)
	ctx := context.Background()
	first := f.propose(t)
	second, err := f.svc.Propose(ctx, ProposeInput{RequesterID: f.outsider, RequestedID: f.u1, SkillOffered: "Chess", SkillWanted: "Guitar"})
	require.NoError(t, err)
	_, err = f.svc.Propose(ctx, ProposeInput{RequesterID: f.outsider, RequestedID: f.u2, SkillOffered: "Chess", SkillWanted: "Go"})
	require.NoError(t, err)

	list, err := f.svc.ListForUser(ctx, f.u1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	detailed, err := f.svc.ListForUserDetailed(ctx, f.u1)
	require.NoError(t, err)
	require.Len(t, detailed, 2)
	require.NotNil(t, detailed[0].Requester)
	assert.Equal(t, "Cat", detailed[0].Requester.Name)
	assert.Equal(t, "Ana", detailed[0].Requested.Name)

	_, err = f.svc.ListForUser(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
