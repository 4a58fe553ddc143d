package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/repository"
	"github.com/shinyyama/skillswap-backend/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxNameLen       = 120
	maxFieldLen      = 255
	maxSkillsPerList = 20
	MaxPhotoBytes    = 5 << 20
	profileRatings   = 20
)

// BanCache is a fast path for ban lookups. found=false means ask the store.
type BanCache interface {
	Get(ctx context.Context, userID string) (banned bool, found bool, err error)
	Set(ctx context.Context, userID string, banned bool) error
}

type PhotoStore interface {
	Upload(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error)
}

type Profile struct {
	User    model.User
	Ratings []model.UserRating
	Summary model.RatingSummary
}

// ProfileUpdate holds the fields a user may change; nil leaves a field untouched.
type ProfileUpdate struct {
	Name          *string
	Location      *string
	SkillsOffered *[]string
	SkillsWanted  *[]string
	Availability  *string
	IsPublic      *bool
}

type UserService interface {
	Get(ctx context.Context, id string) (*model.User, error)
	GetPublicProfile(ctx context.Context, id, viewerID string) (*Profile, error)
	UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*model.User, error)
	Browse(ctx context.Context, skill string) ([]model.User, error)
	SetPhoto(ctx context.Context, id string, r io.Reader, size int64, contentType string) (*model.User, error)
	IsBanned(ctx context.Context, id string) (bool, error)
	EnsureFirebaseUser(ctx context.Context, uid, name, email, photoURL string) (*model.User, error)
}

type userService struct {
	repo   repository.UserRepository
	bans   BanCache
	photos PhotoStore
	logger *zap.Logger
}

// NewUserService wires the directory. photos may be nil when no bucket is configured.
func NewUserService(repo repository.UserRepository, bans BanCache, photos PhotoStore, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{repo: repo, bans: bans, photos: photos, logger: logger}
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}

func (s *userService) GetPublicProfile(ctx context.Context, id, viewerID string) (*Profile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	own := viewerID == u.ID
	if u.IsBanned && !own {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	if !u.IsPublic && !own {
		return nil, fmt.Errorf("%w: profile is private", ErrUnauthorized)
	}
	ratings, err := s.repo.ListRatings(ctx, u.ID, profileRatings)
	if err != nil {
		return nil, storeErr(err, "ratings")
	}
	summary, err := s.repo.RatingSummary(ctx, u.ID)
	if err != nil {
		return nil, storeErr(err, "ratings")
	}
	return &Profile{User: *u, Ratings: ratings, Summary: summary}, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, in ProfileUpdate) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || utf8.RuneCountInString(name) > maxNameLen {
			return nil, invalidArg("name must be 1-%d characters", maxNameLen)
		}
		u.Name = name
	}
	if in.Location != nil {
		loc := strings.TrimSpace(*in.Location)
		if utf8.RuneCountInString(loc) > maxFieldLen {
			return nil, invalidArg("location exceeds %d characters", maxFieldLen)
		}
		u.Location = loc
	}
	if in.Availability != nil {
		av := strings.TrimSpace(*in.Availability)
		if utf8.RuneCountInString(av) > maxFieldLen {
			return nil, invalidArg("availability exceeds %d characters", maxFieldLen)
		}
		if av == "" {
			av = "Not specified"
		}
		u.Availability = av
	}
	if in.SkillsOffered != nil {
		if u.SkillsOffered, err = normalizeSkills(*in.SkillsOffered); err != nil {
			return nil, err
		}
	}
	if in.SkillsWanted != nil {
		if u.SkillsWanted, err = normalizeSkills(*in.SkillsWanted); err != nil {
			return nil, err
		}
	}
	if in.IsPublic != nil {
		u.IsPublic = *in.IsPublic
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, storeErr(err, "user")
	}
	return u, nil
}

// normalizeSkills trims entries, drops blanks and case-insensitive duplicates.
func normalizeSkills(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		skill := strings.TrimSpace(raw)
		if skill == "" {
			continue
		}
		if utf8.RuneCountInString(skill) > maxSkillLen {
			return nil, invalidArg("skill %q exceeds %d characters", skill, maxSkillLen)
		}
		key := strings.ToLower(skill)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, skill)
	}
	if len(out) > maxSkillsPerList {
		return nil, invalidArg("at most %d skills per list", maxSkillsPerList)
	}
	return out, nil
}

func (s *userService) Browse(ctx context.Context, skill string) ([]model.User, error) {
	list, err := s.repo.Browse(ctx, skill)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	needle := strings.ToLower(strings.TrimSpace(skill))
	if needle == "" {
		return list, nil
	}
	out := make([]model.User, 0, len(list))
	for _, u := range list {
		if hasSkill(u.SkillsOffered, needle) || hasSkill(u.SkillsWanted, needle) {
			out = append(out, u)
		}
	}
	return out, nil
}

func hasSkill(skills []string, needle string) bool {
	for _, s := range skills {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func (s *userService) SetPhoto(ctx context.Context, id string, r io.Reader, size int64, contentType string) (*model.User, error) {
	if s.photos == nil {
		return nil, fmt.Errorf("%w: photo storage is not configured", ErrUnavailable)
	}
	if size <= 0 || size > MaxPhotoBytes {
		return nil, invalidArg("photo must be between 1 byte and %d bytes", MaxPhotoBytes)
	}
	path, err := storage.AvatarPath(id, contentType)
	if err != nil {
		return nil, invalidArg("photo must be a png, jpeg, webp or gif image")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.photos.Upload(ctx, path, io.LimitReader(r, MaxPhotoBytes), contentType)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	u.ProfilePhoto = url
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, storeErr(err, "user")
	}
	s.logger.Info("profile photo updated", zap.String("user_id", id), zap.String("object", path))
	return u, nil
}

// IsBanned consults the cache first and repopulates it from the store on a miss.
// Cache failures degrade to a store lookup.
func (s *userService) IsBanned(ctx context.Context, id string) (bool, error) {
	if banned, found, err := s.bans.Get(ctx, id); err != nil {
		s.logger.Warn("ban cache lookup failed", zap.String("user_id", id), zap.Error(err))
	} else if found {
		return banned, nil
	}
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, storeErr(err, "user")
	}
	if err := s.bans.Set(ctx, id, u.IsBanned); err != nil {
		s.logger.Warn("ban cache write failed", zap.String("user_id", id), zap.Error(err))
	}
	return u.IsBanned, nil
}

// EnsureFirebaseUser returns the local row for a Firebase UID, creating it on first sign-in.
func (s *userService) EnsureFirebaseUser(ctx context.Context, uid, name, email, photoURL string) (*model.User, error) {
	if uid == "" {
		return nil, ErrUnauthorized
	}
	u, err := s.repo.FindByID(ctx, uid)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeErr(err, "user")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, invalidArg("firebase account has no email")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	u = &model.User{
		ID:           uid,
		Name:         name,
		Email:        email,
		ProfilePhoto: photoURL,
		IsPublic:     true,
		Availability: "Not specified",
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, storeErr(err, "user")
	}
	s.logger.Info("provisioned firebase user", zap.String("user_id", uid))
	return u, nil
}
