package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/qs3c/yardconnect/config"
	"github.com/qs3c/yardconnect/internal/database"
	"github.com/qs3c/yardconnect/internal/pkg/logger"
	"github.com/qs3c/yardconnect/internal/repository"
)

var (
	dryRun      = flag.Bool("dry-run", true, "Only count expired pending reviews, don't change anything")
	ttlHours    = flag.Int("ttl-hours", 0, "Pending reviews older than this many hours are expired (0 = use review.pending_ttl_hours)")
	releaseOnly = flag.Bool("release-only", false, "Keep expired rows for audit, only free them for resubmission")
)

func main() {
	flag.Parse()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&cfg.Log)

	hours := *ttlHours
	if hours <= 0 {
		hours = cfg.Review.PendingTTLHours
	}
	if hours <= 0 {
		log.Error("pending review expiry is disabled, pass -ttl-hours or set review.pending_ttl_hours")
		os.Exit(2)
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	repo := repository.NewPendingReviewRepository(db)
	before := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	expired, err := repo.CountExpired(ctx, before)
	if err != nil {
		log.Error("count expired pending reviews failed", "error", err)
		os.Exit(1)
	}

	var affected int64
	switch {
	case *dryRun:
	case *releaseOnly:
		affected, err = repo.ReleaseExpired(ctx, before)
	default:
		affected, err = repo.DeleteExpired(ctx, before)
	}
	if err != nil {
		log.Error("cleanup failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Pending review cleanup")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Expired before:  %s (%d hours)\n", before.Format(time.RFC3339), hours)
	fmt.Printf("Expired found:   %d\n", expired)
	switch {
	case *dryRun:
		fmt.Println("DRY RUN MODE - nothing was changed, run with -dry-run=false to apply")
	case *releaseOnly:
		fmt.Printf("Released:        %d\n", affected)
	default:
		fmt.Printf("Deleted:         %d\n", affected)
	}

	outstanding, err := repo.CountUnverified(ctx)
	if err != nil {
		log.Warn("count unverified pending reviews failed", "error", err)
	} else {
		fmt.Printf("Still waiting:   %d unverified\n", outstanding)
	}
	fmt.Println(strings.Repeat("=", 60))
}
