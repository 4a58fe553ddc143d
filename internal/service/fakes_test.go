package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shinyyama/skillswap-backend/internal/events"
	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/repository"
	"gorm.io/gorm"
)

type memSwapRepo struct {
	mu    sync.Mutex
	swaps map[string]model.Swap
	// ratings keyed by swapID+"/"+raterID
	ratings map[string]model.UserRating
	seq     int
	// beforeUpdate runs between the service's read and its conditional write.
	beforeUpdate func()
}

func newMemSwapRepo() *memSwapRepo {
	return &memSwapRepo{swaps: map[string]model.Swap{}, ratings: map[string]model.UserRating{}}
}

func (r *memSwapRepo) Create(ctx context.Context, s *model.Swap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := s.BeforeCreate(nil); err != nil {
		return err
	}
	r.seq++
	now := time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	s.CreatedAt, s.UpdatedAt = now, now
	r.swaps[s.ID] = *s
	return nil
}

func (r *memSwapRepo) FindByID(ctx context.Context, id string) (*model.Swap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.swaps[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memSwapRepo) UpdateStatusIfCurrent(ctx context.Context, id string, from, to model.SwapStatus) (int64, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.swaps[id]
	if !ok || s.Status != from {
		return 0, nil
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	r.swaps[id] = s
	return 1, nil
}

func (r *memSwapRepo) RecordFeedback(ctx context.Context, in *model.Swap, role model.SwapRole, rating int, feedback string) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.swaps[in.ID]
	if !ok || s.Status != model.SwapStatusCompleted || s.HasRated(role) {
		return repository.ErrFeedbackRecorded
	}
	rater := s.RequesterID
	if role == model.RoleRequested {
		rater = s.RequestedID
	}
	key := s.ID + "/" + rater
	if _, dup := r.ratings[key]; dup {
		return repository.ErrFeedbackRecorded
	}
	applyFeedback(&s, role, rating, feedback)
	r.swaps[s.ID] = s
	r.ratings[key] = model.UserRating{UserID: s.Counterpart(rater), RaterID: rater, SwapID: s.ID, Rating: rating, Feedback: feedback}
	return nil
}

func (r *memSwapRepo) ratingsFor(userID string) []model.UserRating {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.UserRating
	for _, rt := range r.ratings {
		if rt.UserID == userID {
			out = append(out, rt)
		}
	}
	return out
}

func (r *memSwapRepo) ListByUser(ctx context.Context, uid string) ([]model.Swap, error) {
	return r.list(func(s model.Swap) bool { return s.RequesterID == uid || s.RequestedID == uid }), nil
}

func (r *memSwapRepo) ListAll(ctx context.Context, status model.SwapStatus) ([]model.Swap, error) {
	return r.list(func(s model.Swap) bool { return status == "" || s.Status == status }), nil
}

func (r *memSwapRepo) list(keep func(model.Swap) bool) []model.Swap {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Swap
	for _, s := range r.swaps {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *memSwapRepo) CountByStatus(ctx context.Context) (map[model.SwapStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.SwapStatus]int64{}
	for _, s := range r.swaps {
		out[s.Status]++
	}
	return out, nil
}

func (r *memSwapRepo) set(s model.Swap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.swaps[s.ID] = s
}

type memUserRepo struct {
	mu      sync.Mutex
	users   map[string]model.User
	ratings *memSwapRepo
}

func newMemUserRepo(users ...model.User) *memUserRepo {
	r := &memUserRepo{users: map[string]model.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Create(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	if err := u.BeforeCreate(nil); err != nil {
		return err
	}
	u.CreatedAt = time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *memUserRepo) FindByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]model.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) Update(ctx context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = *u
	return nil
}

func (r *memUserRepo) Browse(ctx context.Context, skill string) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if u.IsPublic && !u.IsBanned {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) List(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memUserRepo) SetBanned(ctx context.Context, id string, banned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsBanned = banned
	r.users[id] = u
	return nil
}

func (r *memUserRepo) ListRatings(ctx context.Context, userID string, limit int) ([]model.UserRating, error) {
	if r.ratings == nil {
		return nil, nil
	}
	return r.ratings.ratingsFor(userID), nil
}

func (r *memUserRepo) RatingSummary(ctx context.Context, userID string) (model.RatingSummary, error) {
	list, _ := r.ListRatings(ctx, userID, 0)
	var sum model.RatingSummary
	for _, rt := range list {
		sum.Average += float64(rt.Rating)
		sum.Count++
	}
	if sum.Count > 0 {
		sum.Average /= float64(sum.Count)
	}
	return sum, nil
}

func (r *memUserRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

type memNotificationRepo struct {
	mu   sync.Mutex
	list []model.Notification
}

func (r *memNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uint64(len(r.list) + 1)
	n.CreatedAt = time.Now()
	r.list = append(r.list, *n)
	return nil
}

func (r *memNotificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Notification
	for i := len(r.list) - 1; i >= 0; i-- {
		n := r.list[i]
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *memNotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	return r.mark(func(n model.Notification) bool { return n.UserID == userID })
}

func (r *memNotificationRepo) MarkBySwap(ctx context.Context, userID, swapID string) error {
	return r.mark(func(n model.Notification) bool {
		return n.UserID == userID && n.SwapID != nil && *n.SwapID == swapID
	})
}

func (r *memNotificationRepo) mark(match func(model.Notification) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for i := range r.list {
		if r.list[i].ReadAt == nil && match(r.list[i]) {
			r.list[i].ReadAt = &now
		}
	}
	return nil
}

func (r *memNotificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	list, _ := r.ListByUser(ctx, userID, true, 0)
	return int64(len(list)), nil
}

func (r *memNotificationRepo) forUser(userID string) []model.Notification {
	list, _ := r.ListByUser(context.Background(), userID, false, 0)
	return list
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.SwapEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.SwapEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject())
	}
	return out
}
