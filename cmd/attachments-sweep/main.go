// attachments-sweep removes image files that no student record points
// at. Such orphans are left behind when a request dies between writing an
// image and saving the record, or when an old image could not be deleted.
//
//	go run ./cmd/attachments-sweep --config=config/local.yaml --older-than=1h --dry-run
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/aanand-mishra/student-manager/internal/attachment"
	"github.com/aanand-mishra/student-manager/internal/config"
	"github.com/aanand-mishra/student-manager/internal/storage/open"
)

var (
	olderThan = flag.Duration("older-than", attachment.DefaultSweepGrace, "only remove orphans last modified before this long ago")
	dryRun    = flag.Bool("dry-run", false, "list orphans without removing them")
)

func main() {
	// MustLoad parses the command line, including the flags above.
	cfg := config.MustLoad()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(log)

	store, err := open.Storage(cfg)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	files, err := attachment.New(cfg.Uploads.Dir, cfg.MaxBytes())
	if err != nil {
		log.Error("failed to initialise uploads", slog.String("error", err.Error()))
		os.Exit(1)
	}

	removed, err := attachment.SweepOrphans(store, files, *olderThan, *dryRun)
	for _, name := range removed {
		log.Info("orphan", slog.String("file", name), slog.Bool("removed", !*dryRun))
	}
	if err != nil {
		log.Error("sweep failed", slog.String("error", err.Error()))
		store.Close()
		os.Exit(1)
	}

	log.Info("sweep finished", slog.Int("orphans", len(removed)), slog.Bool("dry_run", *dryRun))
}
