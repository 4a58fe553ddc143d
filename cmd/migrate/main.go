package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/shinyyama/skillswap-backend/internal/config"
	"github.com/shinyyama/skillswap-backend/internal/db"
)

const usage = "usage: migrate up|down|status|version"

func main() {
	if len(os.Args) != 2 {
		log.Fatal(usage)
	}
	if err := run(context.Background(), os.Args[1]); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}
}

func run(ctx context.Context, cmd string) error {
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

	switch cmd {
	case "up":
		return m.Up(ctx)
	case "down":
		return m.Down(ctx)
	case "status":
		return m.Status(ctx)
	case "version":
		v, err := m.Version(ctx)
		if err != nil {
			return err
		}
		log.Printf("schema version: %d", v)
		return nil
	}
	return fmt.Errorf("unknown command %q; %s", cmd, usage)
}
