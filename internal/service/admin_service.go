package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/repository"
	"go.uber.org/zap"
)

type Stats struct {
	Users        int64
	TotalSwaps   int64
	PendingSwaps int64
	ByStatus     map[model.SwapStatus]int64
}

// AdminService is read-mostly; its only write is the ban flag. It has no path
// to swap status.
type AdminService interface {
	Stats(ctx context.Context) (*Stats, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	ToggleBan(ctx context.Context, adminID, userID string) (*model.User, error)
	ListSwaps(ctx context.Context, status string) ([]model.Swap, error)
	WriteUsersCSV(ctx context.Context, w io.Writer) error
	WriteSwapsCSV(ctx context.Context, w io.Writer) error
}

type adminService struct {
	users  repository.UserRepository
	swaps  repository.SwapRepository
	bans   BanCache
	logger *zap.Logger
}

func NewAdminService(users repository.UserRepository, swaps repository.SwapRepository, bans BanCache, logger *zap.Logger) AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &adminService{users: users, swaps: swaps, bans: bans, logger: logger}
}

func (s *adminService) Stats(ctx context.Context) (*Stats, error) {
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	byStatus, err := s.swaps.CountByStatus(ctx)
	if err != nil {
		return nil, storeErr(err, "swaps")
	}
	st := &Stats{Users: users, ByStatus: byStatus, PendingSwaps: byStatus[model.SwapStatusPending]}
	for _, n := range byStatus {
		st.TotalSwaps += n
	}
	return st, nil
}

func (s *adminService) ListUsers(ctx context.Context) ([]model.User, error) {
	list, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	return list, nil
}

func (s *adminService) ToggleBan(ctx context.Context, adminID, userID string) (*model.User, error) {
	if adminID == userID {
		return nil, invalidArg("admins cannot ban themselves")
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	if u.IsAdmin() {
		return nil, invalidArg("admins cannot be banned")
	}
	banned := !u.IsBanned
	if err := s.users.SetBanned(ctx, userID, banned); err != nil {
		return nil, storeErr(err, "user")
	}
	u.IsBanned = banned
	if err := s.bans.Set(ctx, userID, banned); err != nil {
		s.logger.Warn("ban cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	s.logger.Info("ban toggled",
		zap.String("admin_id", adminID),
		zap.String("user_id", userID),
		zap.Bool("banned", banned))
	return u, nil
}

func (s *adminService) ListSwaps(ctx context.Context, status string) ([]model.Swap, error) {
	var filter model.SwapStatus
	if status != "" {
		st, ok := model.ParseSwapStatus(status)
		if !ok {
			return nil, invalidArg("unknown status %q", status)
		}
		filter = st
	}
	list, err := s.swaps.ListAll(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "swaps")
	}
	return list, nil
}

func (s *adminService) WriteUsersCSV(ctx context.Context, w io.Writer) error {
	list, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "name", "email", "location", "skills_offered", "skills_wanted", "availability", "public", "banned", "role", "created_at"})
	for _, u := range list {
		_ = cw.Write([]string{
			u.ID,
			csvCell(u.Name),
			csvCell(u.Email),
			csvCell(u.Location),
			csvCell(strings.Join(u.SkillsOffered, "; ")),
			csvCell(strings.Join(u.SkillsWanted, "; ")),
			csvCell(u.Availability),
			strconv.FormatBool(u.IsPublic),
			strconv.FormatBool(u.IsBanned),
			string(u.Role),
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write users csv: %w", err)
	}
	return nil
}

func (s *adminService) WriteSwapsCSV(ctx context.Context, w io.Writer) error {
	list, err := s.ListSwaps(ctx, "")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "requester_id", "requested_id", "skill_offered", "skill_wanted", "status", "requester_rating", "requested_rating", "created_at", "updated_at"})
	for _, sw := range list {
		_ = cw.Write([]string{
			sw.ID,
			sw.RequesterID,
			sw.RequestedID,
			csvCell(sw.SkillOffered),
			csvCell(sw.SkillWanted),
			string(sw.Status),
			optInt(sw.RequesterRating),
			optInt(sw.RequestedRating),
			sw.CreatedAt.UTC().Format(time.RFC3339),
			sw.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write swaps csv: %w", err)
	}
	return nil
}

// csvCell keeps user text from being read as a spreadsheet formula.
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
