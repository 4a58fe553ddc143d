package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/skillswap-backend/internal/auth"
	"github.com/shinyyama/skillswap-backend/internal/config"
	"github.com/shinyyama/skillswap-backend/internal/db"
	"github.com/shinyyama/skillswap-backend/internal/model"
	"github.com/shinyyama/skillswap-backend/internal/repository"
	"github.com/shinyyama/skillswap-backend/internal/storage"
	"gorm.io/gorm"
)

const demoPassword = "password123"

type seedUser struct {
	Key          string
	Name         string
	Email        string
	Location     string
	Offered      []string
	Wanted       []string
	Availability string
	Admin        bool
	Private      bool
}

type seedSwap struct {
	From, To   string
	Offered    string
	Wanted     string
	Message    string
	Status     model.SwapStatus
	FromRating int
	ToRating   int
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("sql db: %w", err)
	}
	defer sqlDB.Close()

	m, err := db.NewMigrator(sqlDB, cfg.DBDriver)
	if err != nil {
		return err
	}
	if err := m.Up(ctx); err != nil {
		return err
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("users already exist; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	var photos *storage.GCSUploader
	if cfg.StorageBucket != "" {
		photos, err = storage.NewGCSUploader(ctx, cfg.StorageBucket, cfg.GCPCredentialsJSON)
		if err != nil {
			log.Printf("storage unavailable, skipping avatars: %v", err)
			photos = nil
		} else {
			defer photos.Close()
		}
	}

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return err
	}

	users := buildSeedUsers()
	swaps := buildSeedSwaps()

	err = gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"notifications", "user_ratings", "swaps", "users"} {
			if err := tx.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		userRepo := repository.NewUserRepository(tx)
		swapRepo := repository.NewSwapRepository(tx)

		ids := make(map[string]string, len(users))
		for _, su := range users {
			u := &model.User{
				Name:          su.Name,
				Email:         su.Email,
				PasswordHash:  hash,
				Location:      su.Location,
				SkillsOffered: su.Offered,
				SkillsWanted:  su.Wanted,
				Availability:  su.Availability,
				IsPublic:      true,
				Role:          model.UserRoleUser,
			}
			if su.Admin {
				u.Role = model.UserRoleAdmin
			}
			if photos != nil {
				if photoURL, err := uploadAvatar(ctx, photos, su.Key); err != nil {
					log.Printf("[%s] avatar skipped: %v", su.Key, err)
				} else {
					u.ProfilePhoto = photoURL
				}
			}
			if err := userRepo.Create(ctx, u); err != nil {
				return fmt.Errorf("insert user %q: %w", su.Email, err)
			}
			if su.Private {
				u.IsPublic = false
				if err := userRepo.Update(ctx, u); err != nil {
					return fmt.Errorf("hide user %q: %w", su.Email, err)
				}
			}
			ids[su.Key] = u.ID
		}

		for _, ss := range swaps {
			s := &model.Swap{
				RequesterID:  ids[ss.From],
				RequestedID:  ids[ss.To],
				SkillOffered: ss.Offered,
				SkillWanted:  ss.Wanted,
				Message:      ss.Message,
				Status:       ss.Status,
			}
			if err := swapRepo.Create(ctx, s); err != nil {
				return fmt.Errorf("insert swap %s->%s: %w", ss.From, ss.To, err)
			}
			if ss.Status != model.SwapStatusCompleted {
				continue
			}
			if ss.FromRating > 0 {
				if err := swapRepo.RecordFeedback(ctx, s, model.RoleRequester, ss.FromRating, "Great teacher, very patient."); err != nil {
					return fmt.Errorf("rate swap %s: %w", s.ID, err)
				}
			}
			if ss.ToRating > 0 {
				if err := swapRepo.RecordFeedback(ctx, s, model.RoleRequested, ss.ToRating, ""); err != nil {
					return fmt.Errorf("rate swap %s: %w", s.ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("seeded %d users and %d swaps (password %q)", len(users), len(swaps), demoPassword)
	return nil
}

func buildSeedUsers() []seedUser {
	return []seedUser{
		{Key: "admin", Name: "Admin", Email: "admin@skillswap.local", Location: "Tokyo", Admin: true, Availability: "Weekdays"},
		{Key: "ana", Name: "Ana Silva", Email: "ana@skillswap.local", Location: "Lisbon",
			Offered: []string{"Guitar", "Portuguese"}, Wanted: []string{"Photoshop", "Cooking"}, Availability: "Weekends"},
		{Key: "ben", Name: "Ben Carter", Email: "ben@skillswap.local", Location: "London",
			Offered: []string{"Photoshop", "Illustrator"}, Wanted: []string{"Guitar"}, Availability: "Evenings"},
		{Key: "chen", Name: "Chen Wei", Email: "chen@skillswap.local", Location: "Taipei",
			Offered: []string{"Cooking", "Mandarin"}, Wanted: []string{"Portuguese", "Go"}, Availability: "Weekends"},
		{Key: "dana", Name: "Dana Ito", Email: "dana@skillswap.local", Location: "Osaka",
			Offered: []string{"Go", "Docker"}, Wanted: []string{"Mandarin"}, Availability: "Evenings"},
		{Key: "eli", Name: "Eli Novak", Email: "eli@skillswap.local", Location: "Prague",
			Offered: []string{"Chess"}, Wanted: []string{"Illustrator"}, Private: true},
	}
}

func buildSeedSwaps() []seedSwap {
	return []seedSwap{
		{From: "ana", To: "ben", Offered: "Guitar", Wanted: "Photoshop", Message: "Happy to start this weekend!", Status: model.SwapStatusPending},
		{From: "chen", To: "ana", Offered: "Cooking", Wanted: "Portuguese", Status: model.SwapStatusAccepted},
		{From: "dana", To: "chen", Offered: "Go", Wanted: "Mandarin", Status: model.SwapStatusCompleted, FromRating: 5, ToRating: 4},
		{From: "ben", To: "dana", Offered: "Illustrator", Wanted: "Docker", Status: model.SwapStatusRejected},
		{From: "eli", To: "ben", Offered: "Chess", Wanted: "Illustrator", Status: model.SwapStatusCancelled},
	}
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.User{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}

func uploadAvatar(ctx context.Context, photos *storage.GCSUploader, key string) (string, error) {
	data, err := fetchPlaceholder(ctx, key)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("avatars/seed/%s.jpg", key)
	return photos.Upload(ctx, path, bytes.NewReader(data), "image/jpeg")
}

func fetchPlaceholder(ctx context.Context, seed string) ([]byte, error) {
	u := fmt.Sprintf("https://picsum.photos/seed/%s/256/256", url.PathEscape(seed))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("placeholder status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
